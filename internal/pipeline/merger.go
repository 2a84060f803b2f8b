package pipeline

import (
	"bytes"
	"context"
	"dashd/internal/docstore"
	"dashd/internal/providers"
	"dashd/internal/services"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var ErrTooFewFiles = errors.New("pipeline: need at least two csv files to merge")

// MergeInput is one file handed to the merge tool.
type MergeInput struct {
	Name   string
	Reader io.Reader
}

type MergerInterface interface {
	Merge(ctx context.Context, inputs []MergeInput) (*DownloadInfo, error)
}

// Merger joins several CSV files into one download. The first file's header
// row is canonical; rows from every file are realigned to it by column name,
// columns a file does not have come out empty and rows with no values at all
// are dropped.
type Merger struct {
	files   *FileWriter
	docs    docstore.StoreInterface
	usage   services.UsageServiceInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewMerger(
	files *FileWriter,
	docs docstore.StoreInterface,
	usage services.UsageServiceInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) MergerInterface {
	return &Merger{
		files:   files,
		docs:    docs,
		usage:   usage,
		logger:  logger,
		metrics: metrics,
	}
}

func (m *Merger) Merge(ctx context.Context, inputs []MergeInput) (*DownloadInfo, error) {
	if len(inputs) < 2 {
		return nil, ErrTooFewFiles
	}

	contents, err := m.readAll(inputs)
	if err != nil {
		return nil, err
	}

	var header []string
	var rows [][]string
	for i, content := range contents {
		records, err := parseCSV(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", inputs[i].Name, err)
		}
		if len(records) == 0 {
			if header == nil {
				return nil, fmt.Errorf("%s: file has no header row", inputs[i].Name)
			}
			continue
		}

		local := records[0]
		if header == nil {
			header = local
		}
		for _, record := range records[1:] {
			if allEmpty(record) {
				continue
			}
			rows = append(rows, realign(header, local, record))
		}
	}

	data, err := renderCSV(header, rows)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("merged_csv_%s.csv", time.Now().UTC().Format("2006-01-02"))
	path, err := m.files.Save(name, data)
	if err != nil {
		return nil, err
	}

	m.metrics.IncMerges()
	m.logger.Infof(providers.TypePost, "Merged %d files into %s (%d rows)", len(inputs), name, len(rows))
	m.recordMerge(len(inputs))

	return &DownloadInfo{
		Filename: name,
		Path:     path,
		Size:     len(data),
	}, nil
}

// readAll drains every input concurrently and joins before any parsing
// starts, so a slow reader never interleaves with the merge itself.
func (m *Merger) readAll(inputs []MergeInput) ([][]byte, error) {
	contents := make([][]byte, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input MergeInput) {
			defer wg.Done()
			data, err := io.ReadAll(input.Reader)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", input.Name, err)
				return
			}
			contents[i] = data
		}(i, input)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return contents, nil
}

// recordMerge appends the action to the identity's activity log. Best effort,
// the merged file is already on disk.
func (m *Merger) recordMerge(fileCount int) {
	identity := m.usage.Identity()
	if identity == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		entry := docstore.ActivityEntry{
			Action:    "merge_csv",
			Timestamp: time.Now().UTC(),
			FileCount: fileCount,
		}
		if err := m.docs.AppendActivity(ctx, identity, entry); err != nil {
			m.logger.Warnf(providers.TypeSync, "Recording merge action failed: %s", err)
			m.metrics.IncSyncFailures("docstore")
		}
	}()
}

func parseCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func renderCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// realign maps a record keyed by its file's own header onto the canonical
// header order.
func realign(header, local, record []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		for j, localName := range local {
			if localName == name && j < len(record) {
				out[i] = record[j]
				break
			}
		}
	}
	return out
}

func allEmpty(record []string) bool {
	for _, field := range record {
		if field != "" {
			return false
		}
	}
	return true
}
