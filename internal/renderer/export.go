package renderer

import (
	"context"
	"fmt"

	"github.com/ankek/terraform-provider-preview/internal/document"
)

// RenderToFile renders doc and writes the encoded image to outputPath
func (r *Renderer) RenderToFile(ctx context.Context, doc *document.Document, outputPath string) (*Result, error) {
	// Check context before starting
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	res, err := r.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := res.WriteFile(outputPath); err != nil {
		return nil, err
	}
	return res, nil
}

// WriteFile writes the encoded image to path, creating parent directories
func (r *Result) WriteFile(path string) error {
	if err := writeFile(path, r.Image); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}
