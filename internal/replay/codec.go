package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iancoleman/orderedmap"
)

// Document is a record plus tooling metadata. Metadata preserves key
// insertion order, so decoding a document and encoding it again produces
// byte-identical output; external replay tooling diffs documents byte for
// byte.
type Document struct {
	Record   *Record                `json:"record"`
	Metadata *orderedmap.OrderedMap `json:"metadata,omitempty"`
}

// NewDocument wraps a record with an empty metadata block.
func NewDocument(record *Record) *Document {
	meta := orderedmap.New()
	return &Document{Record: record, Metadata: meta}
}

// SetMeta records a metadata entry, preserving first-insertion order.
func (d *Document) SetMeta(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = orderedmap.New()
	}
	d.Metadata.Set(key, value)
}

// Meta reads a metadata entry.
func (d *Document) Meta(key string) (any, bool) {
	if d.Metadata == nil {
		return nil, false
	}
	return d.Metadata.Get(key)
}

// Encode serializes the document as newline-terminated JSON.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil || doc.Record == nil {
		return nil, fmt.Errorf("replay: nil document")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("replay: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a document and validates its version and settings.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("replay: decode: %w", err)
	}
	if doc.Record == nil {
		return nil, fmt.Errorf("replay: document missing record")
	}
	if doc.Record.Version != FormatVersion {
		return nil, fmt.Errorf("replay: unsupported record version %d", doc.Record.Version)
	}
	if doc.Record.Settings.PlayerCount <= 0 {
		return nil, fmt.Errorf("replay: record has no players")
	}
	return &doc, nil
}

// WriteFile atomically writes the encoded document.
func WriteFile(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("replay: create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("replay: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replay: replace file: %w", err)
	}
	return nil
}

// ReadFile loads and decodes a document.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: read file: %w", err)
	}
	return Decode(data)
}
