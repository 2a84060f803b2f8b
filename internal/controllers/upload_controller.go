package controllers

import (
	"dashd/internal/pipeline"
	"dashd/internal/providers"
	"errors"
	"net/http"
)

const maxUploadBodySize = 64 << 20 // 64 MB

type UploadController struct {
	logger   providers.Logger
	ingester pipeline.IngesterInterface
	merger   pipeline.MergerInterface
}

func NewUploadController(logger providers.Logger, ingester pipeline.IngesterInterface, merger pipeline.MergerInterface) *UploadController {
	return &UploadController{
		logger:   logger,
		ingester: ingester,
		merger:   merger,
	}
}

// Upload runs one multipart file through the ingestion pipeline and maps the
// outcome onto a status code: 200 for a download or prediction summary, 422
// for a categorized rejection, 400 for everything that never reached the
// prediction stage.
func (uc *UploadController) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	outcome, err := uc.ingester.Submit(r.Context(), header.Filename, file)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	switch {
	case outcome.Report != nil:
		writeJSON(w, http.StatusUnprocessableEntity, outcome)
	case outcome.ErrorMessage != "":
		writeJSON(w, http.StatusBadRequest, outcome)
	default:
		writeJSON(w, http.StatusOK, outcome)
	}
}

// Merge joins the multipart "files" parts into one CSV download.
func (uc *UploadController) Merge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodySize)

	if err := r.ParseMultipartForm(maxUploadBodySize); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	parts := r.MultipartForm.File["files"]
	inputs := make([]pipeline.MergeInput, 0, len(parts))
	for _, part := range parts {
		file, err := part.Open()
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		inputs = append(inputs, pipeline.MergeInput{Name: part.Filename, Reader: file})
	}

	info, err := uc.merger.Merge(r.Context(), inputs)
	if err != nil {
		if errors.Is(err, pipeline.ErrTooFewFiles) {
			writeError(w, http.StatusBadRequest, "Please select at least 2 CSV files to merge")
			return
		}
		uc.logger.Errorf(providers.TypePost, "Merge failed: %s", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetUploadError exposes the persistent rejection banner.
func (uc *UploadController) GetUploadError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"error": uc.ingester.PersistentError()})
}

func (uc *UploadController) DismissUploadError(w http.ResponseWriter, r *http.Request) {
	uc.ingester.DismissError()
	w.WriteHeader(http.StatusNoContent)
}
