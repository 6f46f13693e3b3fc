package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ankek/terraform-provider-preview/internal/diag"
)

// maxDocumentSize bounds how much JSON is read from a file or reader
const maxDocumentSize = 64 << 20

// ParseDocument decodes and validates a document from JSON
func ParseDocument(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, &diag.ValidationError{Reason: "malformed JSON", Err: err}
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadDocument decodes a document from r
func ReadDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, &diag.ValidationError{Reason: fmt.Sprintf("document larger than %d bytes", maxDocumentSize)}
	}
	return ParseDocument(data)
}

// ParseDocumentFile reads and parses a document file
func ParseDocumentFile(ctx context.Context, path string) (*Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document file: %w", err)
	}
	defer f.Close()

	doc, err := ReadDocument(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}
	return doc, nil
}

// Validate checks the frame and the top-level object list. Nested groups
// are checked while the scene is built, where depth and cycles are bounded.
// Unknown node types are not rejected; they are dropped at render time.
func Validate(doc *Document) error {
	if doc == nil {
		return &diag.ValidationError{Reason: "document is nil"}
	}
	if doc.Frame.Width <= 0 || doc.Frame.Height <= 0 {
		return &diag.ValidationError{
			Field:  "frame",
			Reason: fmt.Sprintf("width and height must be positive, got %dx%d", doc.Frame.Width, doc.Frame.Height),
		}
	}
	for i, n := range doc.Objects {
		if n == nil {
			return &diag.ValidationError{Field: diag.Path{i}.String(), Reason: "node is null"}
		}
	}
	return nil
}
