// Package interfaces defines interfaces for dependency injection and testing
package interfaces

import (
	"context"

	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/fetch"
	"github.com/ankek/terraform-provider-preview/internal/renderer"
)

// Fetcher defines the interface for retrieving remote assets
type Fetcher interface {
	// Fetch downloads and decodes the asset at url
	Fetch(ctx context.Context, url string, kind fetch.Kind) (*fetch.Asset, error)
}

// DocumentRenderer defines the interface for rendering template documents
type DocumentRenderer interface {
	// Render produces the encoded preview of a document
	Render(ctx context.Context, doc *document.Document) (*renderer.Result, error)
}

// Uploader publishes rendered previews and returns where they can be read
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// PathValidator defines the interface for validating file paths
type PathValidator interface {
	// ValidateOutputPath validates an output path for security and accessibility
	ValidateOutputPath(path string) error

	// ValidateInputPath validates an input path (document file)
	ValidateInputPath(path string) error
}

// PreviewGenerator defines the interface for generating previews
type PreviewGenerator interface {
	// Generate renders a template document to an image
	Generate(ctx context.Context, cfg PreviewConfig) (*GenerateResult, error)
}

// PreviewConfig contains all configuration needed to generate a preview
type PreviewConfig struct {
	DocumentPath string
	DocumentJSON string
	// OutputPath may be empty when only the encoded bytes are wanted
	OutputPath string
	Format     string
	Multiplier float64
	// UploadName, when set, publishes the image through the configured Uploader
	UploadName string
}

// GenerateResult contains the results of preview generation
type GenerateResult struct {
	OutputPath  string
	Width       int
	Height      int
	Format      string
	SHA256      string
	DataURI     string
	URL         string
	Bindings    []string
	Diagnostics []string
}
