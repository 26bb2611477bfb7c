// Package output exports the collection as a json snapshot or as csv and
// renders summary tables.
package output

import (
	"fmt"
	"io"

	"github.com/kv-thuringen/kvt-crawler/internal/record"
)

// Writer writes a whole store to a specific output.
type Writer interface {
	Write(s *record.Store) error
}

// WriterConfig defines where and in which format the collection is
// exported. Without a FileDir the export goes to stdout.
type WriterConfig struct {
	Type    WriterType `yaml:"type" env:"KVT_EXPORT_TYPE" env-default:"json"`
	FileDir string     `yaml:"filedir" env:"KVT_EXPORT_DIR"`
}

// WriterType encapsulates the export format
type WriterType string

const (
	JSON_WRITER_TYPE WriterType = "json"
	CSV_WRITER_TYPE  WriterType = "csv"
)

// exportBasename is the file name of an export without extension.
const exportBasename = "psychologen_sammlung"

type encodeFunc func(w io.Writer, s *record.Store) error

func encoderFor(t WriterType) (encodeFunc, error) {
	switch t {
	case JSON_WRITER_TYPE:
		return EncodeJSON, nil
	case CSV_WRITER_TYPE:
		return EncodeCSV, nil
	default:
		return nil, fmt.Errorf("writer of type '%s' not implemented", t)
	}
}

// NewWriter returns a writer for wc. Exports without a file dir go to
// stdout.
func NewWriter(wc *WriterConfig, stdout io.Writer) (Writer, error) {
	enc, err := encoderFor(wc.Type)
	if err != nil {
		return nil, err
	}
	if wc.FileDir == "" {
		return &StdoutWriter{out: stdout, encode: enc}, nil
	}
	return NewFileWriter(wc, enc)
}

// StdoutWriter writes the export to the given stream.
type StdoutWriter struct {
	out    io.Writer
	encode encodeFunc
}

func (w *StdoutWriter) Write(s *record.Store) error {
	return w.encode(w.out, s)
}
