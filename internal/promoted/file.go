package promoted

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileLoader reads a promoted document from disk. JSON files parse as YAML,
// so either format works.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(context.Context) ([]Promoted, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read promoted file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a promoted document. An empty document has no entries.
func Parse(r io.Reader) ([]Promoted, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []Promoted{}, nil
		}
		return nil, fmt.Errorf("parse promoted document: %w", err)
	}
	if doc.PromotedResults == nil {
		return []Promoted{}, nil
	}
	return doc.PromotedResults, nil
}
