package controllers

import (
	"bytes"
	"context"
	"dashd/internal/pipeline"
	"dashd/internal/structures"
	"dashd/internal/testutil"
	"dashd/internal/upstream"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadFixture struct {
	api   *testutil.MockUpstream
	usage *testutil.MockUsageService
	docs  *testutil.MockDocStore
	ctrl  *UploadController
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()

	f := &uploadFixture{
		api:   &testutil.MockUpstream{},
		usage: &testutil.MockUsageService{},
		docs:  &testutil.MockDocStore{},
	}
	conf := &structures.Config{Downloads: structures.Downloads{Dir: t.TempDir()}}
	logger := &testutil.MockLogger{}
	files, err := pipeline.NewFileWriter(conf, logger)
	require.NoError(t, err)

	ingester := pipeline.NewIngester(f.api, f.usage, files, logger)
	merger := pipeline.NewMerger(files, f.docs, f.usage, logger, &testutil.MockMetrics{})
	f.ctrl = NewUploadController(logger, ingester, merger)
	return f
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := form.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())
	return &buf, form.FormDataContentType()
}

func TestUploadController_Upload_Download(t *testing.T) {
	f := newUploadFixture(t)
	f.api.UploadCSVFn = func(_ context.Context, _ string, _ io.Reader, _ string) (*upstream.UploadResult, error) {
		return &upstream.UploadResult{CSV: true, Filename: "predicted.csv", Data: []byte("a\n1\n")}, nil
	}

	body, contentType := multipartBody(t, "file", map[string]string{"applicants.csv": "a\n1\n"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.ctrl.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.NotNil(t, outcome.Downloaded)
	assert.Equal(t, "predicted.csv", outcome.Downloaded.Filename)
}

func TestUploadController_Upload_BadExtension(t *testing.T) {
	f := newUploadFixture(t)

	body, contentType := multipartBody(t, "file", map[string]string{"resume.pdf": "x"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.ctrl.Upload(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload a CSV file")
	assert.Zero(t, f.api.UploadCalls)
}

func TestUploadController_Upload_ValidationRejection(t *testing.T) {
	f := newUploadFixture(t)
	f.api.UploadCSVFn = func(_ context.Context, _ string, _ io.Reader, _ string) (*upstream.UploadResult, error) {
		return nil, &upstream.APIError{
			Status:  http.StatusUnprocessableEntity,
			Message: "CSV validation failed",
			Payload: []interface{}{"Missing required columns: GPA"},
		}
	}

	body, contentType := multipartBody(t, "file", map[string]string{"bad.csv": "x"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.ctrl.Upload(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var outcome pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.NotNil(t, outcome.Report)
	assert.Equal(t, []string{"Missing required columns: GPA"}, outcome.Report.MissingColumns)
}

func TestUploadController_Upload_MissingFilePart(t *testing.T) {
	f := newUploadFixture(t)

	body, contentType := multipartBody(t, "wrongfield", map[string]string{"a.csv": "x"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.ctrl.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadController_Merge(t *testing.T) {
	f := newUploadFixture(t)

	body, contentType := multipartBody(t, "files", map[string]string{
		"one.csv": "name,score\nbob,0.9\n",
		"two.csv": "score,name\n0.7,eve\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/merge", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.ctrl.Merge(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var info pipeline.DownloadInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Contains(t, info.Filename, "merged_csv_")
}

func TestUploadController_Merge_TooFewFiles(t *testing.T) {
	f := newUploadFixture(t)

	body, contentType := multipartBody(t, "files", map[string]string{"one.csv": "a\n1\n"})
	req := httptest.NewRequest(http.MethodPost, "/merge", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.ctrl.Merge(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 2 CSV files")
}

func TestUploadController_UploadErrorLifecycle(t *testing.T) {
	f := newUploadFixture(t)

	// Seed the banner with a rejected extension.
	body, contentType := multipartBody(t, "file", map[string]string{"x.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	f.ctrl.Upload(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	f.ctrl.GetUploadError(rec, httptest.NewRequest(http.MethodGet, "/upload/error", nil))
	assert.JSONEq(t, `{"error":"Please upload a CSV file"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	f.ctrl.DismissUploadError(rec, httptest.NewRequest(http.MethodDelete, "/upload/error", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	f.ctrl.GetUploadError(rec, httptest.NewRequest(http.MethodGet, "/upload/error", nil))
	assert.JSONEq(t, `{"error":""}`, rec.Body.String())
}
