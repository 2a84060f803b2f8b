package upstream

import (
	"bytes"
	"context"
	"dashd/internal/providers"
	"dashd/internal/structures"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

const defaultDownloadName = "predictions.csv"

// APIError is a structured rejection from the prediction service. Message is
// the most specific field of the error body (details, then detail, then
// error); Payload keeps the raw field value for the validation classifier,
// which needs the original shape.
type APIError struct {
	Status  int
	Message string
	Payload interface{}
}

func (e *APIError) Error() string {
	return e.Message
}

type UserCounts struct {
	SearchCount int `json:"searchCount"`
	UploadCount int `json:"uploadCount"`
}

type PredictionFile struct {
	Filename     string `json:"filename"`
	Columns      int    `json:"columns"`
	Rows         int    `json:"rows"`
	Timestamp    string `json:"timestamp"`
	UploadNumber int    `json:"upload_number"`
}

// UploadResult is the successful outcome of an upload: either a CSV payload
// to materialize locally, or a structured prediction summary.
type UploadResult struct {
	CSV         bool
	Filename    string
	Data        []byte
	Predictions int
	SheetURL    string
}

type ClientInterface interface {
	Status(ctx context.Context) (bool, error)
	SearchColumns(ctx context.Context, query string) ([]string, error)
	SearchValues(ctx context.Context, column, query string, limit int) ([]string, error)
	RecordSearch(ctx context.Context, identity string) error
	UserStats(ctx context.Context, identity string) (*UserCounts, error)
	UploadCSV(ctx context.Context, filename string, file io.Reader, identity string) (*UploadResult, error)
	PredictionFiles(ctx context.Context, identity string) ([]PredictionFile, error)
}

type Client struct {
	base   string
	http   *http.Client
	upload *http.Client
	logger providers.Logger
}

func NewClient(conf *structures.Config, logger providers.Logger) ClientInterface {
	timeout := conf.Upstream.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: conf.Upstream.BaseURL,
		http: &http.Client{Timeout: timeout},
		// Uploads run for as long as the model needs; the server or the
		// transport bound them, not the client.
		upload: &http.Client{},
		logger: logger,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return parseAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Status(ctx context.Context) (bool, error) {
	var body struct {
		Ready bool `json:"ready"`
	}
	if err := c.getJSON(ctx, "/status", &body); err != nil {
		return false, err
	}
	return body.Ready, nil
}

func (c *Client) SearchColumns(ctx context.Context, query string) ([]string, error) {
	var matches []string
	path := "/search/column?query=" + url.QueryEscape(query)
	if err := c.getJSON(ctx, path, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (c *Client) SearchValues(ctx context.Context, column, query string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("column", column)
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	var matches []string
	if err := c.getJSON(ctx, "/search/value?"+q.Encode(), &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (c *Client) RecordSearch(ctx context.Context, identity string) error {
	path := "/user/search?user_id=" + url.QueryEscape(identity)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("record search returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) UserStats(ctx context.Context, identity string) (*UserCounts, error) {
	var counts UserCounts
	path := "/user/stats?user_id=" + url.QueryEscape(identity)
	if err := c.getJSON(ctx, path, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (c *Client) PredictionFiles(ctx context.Context, identity string) ([]PredictionFile, error) {
	var files []PredictionFile
	path := "/user/prediction-files?user_id=" + url.QueryEscape(identity)
	if err := c.getJSON(ctx, path, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// UploadCSV submits the raw file for validation and prediction. The response
// is either a text/csv body carrying the result file, or a JSON summary.
func (c *Client) UploadCSV(ctx context.Context, filename string, file io.Reader, identity string) (*UploadResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if identity != "" {
		if err := form.WriteField("user_id", identity); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload-csv", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, parseAPIError(resp)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/csv") {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &UploadResult{
			CSV:      true,
			Filename: dispositionFilename(resp.Header.Get("Content-Disposition")),
			Data:     data,
		}, nil
	}

	var body struct {
		Predictions []json.RawMessage `json:"predictions"`
		SheetURL    string            `json:"sheet_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &UploadResult{
		Predictions: len(body.Predictions),
		SheetURL:    body.SheetURL,
	}, nil
}

var filenamePattern = regexp.MustCompile(`filename[^;=\n]*=("[^"]*"|'[^']*'|[^;\n]*)`)

// dispositionFilename pulls the suggested name out of a Content-Disposition
// header, falling back to a fixed default when absent or malformed.
func dispositionFilename(disposition string) string {
	if !strings.Contains(disposition, "filename=") {
		return defaultDownloadName
	}
	m := filenamePattern.FindStringSubmatch(disposition)
	if m == nil || m[1] == "" {
		return defaultDownloadName
	}
	name := strings.Trim(m[1], `'"`)
	if name == "" {
		return defaultDownloadName
	}
	return name
}

// parseAPIError reads a non-2xx JSON body, preferring the most detailed
// field available.
func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: "CSV upload failed"}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	for _, field := range []string{"details", "detail", "error"} {
		if val, ok := body[field]; ok && val != nil {
			apiErr.Payload = val
			apiErr.Message = cast.ToString(val)
			if apiErr.Message == "" {
				if data, err := json.Marshal(val); err == nil {
					apiErr.Message = string(data)
				}
			}
			return apiErr
		}
	}
	return apiErr
}
