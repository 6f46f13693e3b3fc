package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/interfaces"
)

// LoadDocument loads a template document from inline JSON or from a file.
// Exactly one source must be given.
func LoadDocument(ctx context.Context, v interfaces.PathValidator, documentPath, documentJSON string) (*document.Document, error) {
	// Check context before proceeding
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	hasPath := strings.TrimSpace(documentPath) != ""
	hasJSON := strings.TrimSpace(documentJSON) != ""

	switch {
	case hasPath && hasJSON:
		return nil, fmt.Errorf("only one of document_path or document_json may be set")
	case hasJSON:
		doc, err := document.ParseDocument([]byte(documentJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to parse document_json: %w", err)
		}
		return doc, nil
	case hasPath:
		if err := v.ValidateInputPath(documentPath); err != nil {
			return nil, fmt.Errorf("invalid document path: %w", err)
		}
		return document.ParseDocumentFile(ctx, documentPath)
	}
	return nil, fmt.Errorf("either document_path or document_json must be provided")
}
