package output

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kv-thuringen/kvt-crawler/internal/record"
)

// FileWriter represents a writer that writes to a file in FileDir
type FileWriter struct {
	*WriterConfig
	encode encodeFunc
	logger *slog.Logger
}

// NewFileWriter returns a new FileWriter
func NewFileWriter(wc *WriterConfig, enc encodeFunc) (*FileWriter, error) {
	if wc.FileDir == "" {
		return nil, errors.New("filedir needs to be specified for the FileWriter")
	}
	if err := os.MkdirAll(wc.FileDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", wc.FileDir, err)
	}
	return &FileWriter{
		WriterConfig: wc,
		encode:       enc,
		logger:       slog.With(slog.String("writer", string(wc.Type))),
	}, nil
}

// Path is the file the export is written to.
func (w *FileWriter) Path() string {
	return filepath.Join(w.FileDir, exportBasename+"."+string(w.Type))
}

func (w *FileWriter) Write(s *record.Store) error {
	path := w.Path()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error while trying to open file: %w", err)
	}
	if err := w.encode(f, s); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("error while closing %s: %w", path, err)
	}
	w.logger.Info(fmt.Sprintf("wrote %d items to file %s", len(s.Items), path))
	return nil
}
