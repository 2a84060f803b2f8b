package pipeline

import (
	"dashd/internal/providers"
	"dashd/internal/structures"
	"os"
	"path/filepath"
	"strings"
)

// FileWriter materializes result files in the downloads directory. Writes go
// through a temp file plus rename so a crash never leaves a half-written
// download behind.
type FileWriter struct {
	dir    string
	logger providers.Logger
}

func NewFileWriter(conf *structures.Config, logger providers.Logger) (*FileWriter, error) {
	if err := os.MkdirAll(conf.Downloads.Dir, 0o755); err != nil {
		return nil, err
	}
	return &FileWriter{
		dir:    conf.Downloads.Dir,
		logger: logger,
	}, nil
}

func (f *FileWriter) Save(name string, data []byte) (string, error) {
	target := filepath.Join(f.dir, sanitizeFileName(name))
	tmpFile := target + ".tmp"

	file, err := os.Create(tmpFile)
	if err != nil {
		return "", err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return "", err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return "", err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return "", err
	}

	if err = os.Rename(tmpFile, target); err != nil {
		os.Remove(tmpFile)
		return "", err
	}

	f.logger.Infof(providers.TypeApp, "Saved %s (%d bytes)", target, len(data))
	return target, nil
}

// sanitizeFileName keeps server-suggested names from escaping the downloads
// directory.
func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == ".." {
		return "download.csv"
	}
	return name
}
