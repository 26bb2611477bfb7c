package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kv-thuringen/kvt-crawler/internal/record"
)

// EncodeJSON writes the store as indented json without escaping html
// characters, which are common in addresses and notes.
func EncodeJSON(w io.Writer, s *record.Store) error {
	b, err := marshalStore(s)
	if err != nil {
		return err
	}
	var indentBuffer bytes.Buffer
	if err := json.Indent(&indentBuffer, b, "", "  "); err != nil {
		return fmt.Errorf("error while indenting json: %w", err)
	}
	if _, err := w.Write(indentBuffer.Bytes()); err != nil {
		return fmt.Errorf("error while writing json: %w", err)
	}
	return nil
}

func marshalStore(s *record.Store) ([]byte, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(s); err != nil {
		return nil, fmt.Errorf("error while encoding store: %w", err)
	}
	return buffer.Bytes(), nil
}
