package docstore

import (
	"bytes"
	"context"
	"dashd/internal/models"
	"dashd/internal/providers"
	"dashd/internal/structures"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrNotFound reports that a document does not exist. Callers use it to pick
// the update-or-create path; there is no compare-and-swap, so a concurrent
// create between the two steps loses one of the writes.
var ErrNotFound = errors.New("docstore: document not found")

// ActivityEntry is one row of the per-identity activity log.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	FileCount int       `json:"fileCount,omitempty"`
}

// StoreInterface is the client for the managed per-identity document store:
// one statistics document per identity with change subscriptions, one
// uploads-metadata document and an activity log sub-collection.
type StoreInterface interface {
	GetStats(ctx context.Context, identity string) (*models.UsageRecord, error)
	CreateStats(ctx context.Context, identity string, rec *models.UsageRecord) error
	UpdateStats(ctx context.Context, identity string, rec *models.UsageRecord) error
	Watch(ctx context.Context, identity string) (<-chan *models.UsageRecord, error)
	IncrementUploads(ctx context.Context, identity string, ts time.Time) error
	AppendActivity(ctx context.Context, identity string, entry ActivityEntry) error
}

type Client struct {
	base     string
	watchURL string
	http     *http.Client
	logger   providers.Logger
}

func NewClient(conf *structures.Config, logger providers.Logger) StoreInterface {
	timeout := conf.DocStore.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:     conf.DocStore.BaseURL,
		watchURL: conf.DocStore.WatchURL,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

func (c *Client) statsURL(identity string) string {
	return fmt.Sprintf("%s/stats/%s", c.base, identity)
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func (c *Client) write(ctx context.Context, method, url string, body interface{}) error {
	resp, err := c.do(ctx, method, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("docstore: %s %s returned %d", method, url, resp.StatusCode)
	}
	return nil
}

func (c *Client) GetStats(ctx context.Context, identity string) (*models.UsageRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, c.statsURL(identity), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("docstore: GET stats returned %d", resp.StatusCode)
	}

	var rec models.UsageRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, err
	}
	rec.Normalize()
	return &rec, nil
}

func (c *Client) CreateStats(ctx context.Context, identity string, rec *models.UsageRecord) error {
	return c.write(ctx, http.MethodPut, c.statsURL(identity), rec)
}

func (c *Client) UpdateStats(ctx context.Context, identity string, rec *models.UsageRecord) error {
	return c.write(ctx, http.MethodPatch, c.statsURL(identity), rec)
}

type uploadsDoc struct {
	Created      time.Time `json:"created"`
	UploadsCount int       `json:"uploadsCount"`
	LastUpload   time.Time `json:"lastUpload"`
}

// IncrementUploads bumps the uploads counter on the identity's metadata
// document, creating the document on first upload. Update-then-create, same
// non-transactional semantics as the stats document.
func (c *Client) IncrementUploads(ctx context.Context, identity string, ts time.Time) error {
	url := fmt.Sprintf("%s/predictions/%s/uploads", c.base, identity)
	err := c.write(ctx, http.MethodPost, url, map[string]interface{}{"lastUpload": ts})
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	doc := uploadsDoc{Created: time.Now(), UploadsCount: 1, LastUpload: ts}
	return c.write(ctx, http.MethodPut, fmt.Sprintf("%s/predictions/%s", c.base, identity), doc)
}

func (c *Client) AppendActivity(ctx context.Context, identity string, entry ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return c.write(ctx, http.MethodPost, fmt.Sprintf("%s/activity/%s", c.base, identity), entry)
}
