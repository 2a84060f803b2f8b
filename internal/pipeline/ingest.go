package pipeline

import (
	"context"
	"dashd/internal/models"
	"dashd/internal/providers"
	"dashd/internal/services"
	"dashd/internal/upstream"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

const badExtensionMessage = "Please upload a CSV file"

type DownloadInfo struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int    `json:"size"`
}

type PredictionInfo struct {
	Count    int    `json:"count"`
	SheetURL string `json:"sheetUrl,omitempty"`
}

// Outcome is the single result of one submission: exactly one of the
// download, the prediction summary or the error is populated.
type Outcome struct {
	Downloaded   *DownloadInfo                 `json:"downloaded,omitempty"`
	Predictions  *PredictionInfo               `json:"predictions,omitempty"`
	Report       *models.ValidationErrorReport `json:"report,omitempty"`
	ErrorMessage string                        `json:"error,omitempty"`
}

type IngesterInterface interface {
	Submit(ctx context.Context, filename string, file io.Reader) (*Outcome, error)
	PersistentError() string
	DismissError()
}

// Ingester runs one file through the remote validation/prediction endpoint
// and materializes the result. Rejections become a persistent, dismissable
// error distinct from transient notification noise.
type Ingester struct {
	api    upstream.ClientInterface
	usage  services.UsageServiceInterface
	files  *FileWriter
	logger providers.Logger

	mu            sync.Mutex
	persistentErr string
}

func NewIngester(
	api upstream.ClientInterface,
	usage services.UsageServiceInterface,
	files *FileWriter,
	logger providers.Logger,
) IngesterInterface {
	return &Ingester{
		api:    api,
		usage:  usage,
		files:  files,
		logger: logger,
	}
}

// Submit pushes one file through the pipeline. The extension gate runs
// before anything touches the network.
func (in *Ingester) Submit(ctx context.Context, filename string, file io.Reader) (*Outcome, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		in.setPersistentError(badExtensionMessage)
		return &Outcome{ErrorMessage: badExtensionMessage}, nil
	}
	prior := in.PersistentError()
	in.DismissError()

	identity := in.usage.Identity()
	in.logger.Infof(providers.TypePost, "Submitting %s (identity=%q)", filename, identity)

	result, err := in.api.UploadCSV(ctx, filename, file, identity)
	if err != nil {
		return in.submitFailed(err, prior), nil
	}

	if result.CSV {
		return in.materialize(result)
	}

	// Structured response: record and summarize, nothing to download.
	if identity != "" && result.Predictions > 0 {
		go in.usage.RecordUpload(context.Background(), time.Now())
	}
	return &Outcome{
		Predictions: &PredictionInfo{
			Count:    result.Predictions,
			SheetURL: result.SheetURL,
		},
	}, nil
}

func (in *Ingester) submitFailed(err error, prior string) *Outcome {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		in.logger.Warnf(providers.TypePost, "Upload rejected (%d): %s", apiErr.Status, apiErr.Message)
		in.setPersistentError(apiErr.Message)

		payload := apiErr.Payload
		if payload == nil {
			payload = apiErr.Message
		}
		return &Outcome{
			Report:       models.ClassifyValidationErrors(payload),
			ErrorMessage: apiErr.Message,
		}
	}

	// No response at all. The banner only appears when nothing was showing
	// when the submission started; the outcome message is shown either way.
	in.logger.Errorf(providers.TypePost, "Upload transport failure: %s", err)
	if prior == "" {
		in.setPersistentError(err.Error())
	}
	return &Outcome{ErrorMessage: err.Error()}
}

func (in *Ingester) materialize(result *upstream.UploadResult) (*Outcome, error) {
	path, err := in.files.Save(result.Filename, result.Data)
	if err != nil {
		in.logger.Errorf(providers.TypePost, "Download write failed: %s", err)
		return nil, err
	}

	// Accounting runs detached; its failure cannot undo the download.
	go in.usage.RecordUpload(context.Background(), time.Now())

	return &Outcome{
		Downloaded: &DownloadInfo{
			Filename: result.Filename,
			Path:     path,
			Size:     len(result.Data),
		},
	}, nil
}

func (in *Ingester) setPersistentError(msg string) {
	in.mu.Lock()
	in.persistentErr = msg
	in.mu.Unlock()
}

func (in *Ingester) PersistentError() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.persistentErr
}

func (in *Ingester) DismissError() {
	in.setPersistentError("")
}
