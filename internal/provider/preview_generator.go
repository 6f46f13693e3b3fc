// Package provider implements the Terraform provider for template previews.
// It provides both resource and data source implementations that render
// design documents to PNG or JPEG images.
package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ankek/terraform-provider-preview/internal/interfaces"
	"github.com/ankek/terraform-provider-preview/internal/renderer"
	"github.com/ankek/terraform-provider-preview/internal/validation"
)

// Ensure PreviewGenerator satisfies the generator interface.
var _ interfaces.PreviewGenerator = &PreviewGenerator{}

// PreviewGenerator handles the core logic of generating previews.
// It is shared between the resource and data source implementations.
type PreviewGenerator struct {
	opts        renderer.Options
	validator   interfaces.PathValidator
	uploader    interfaces.Uploader
	fetcher     interfaces.Fetcher
	newRenderer func(renderer.Options) (interfaces.DocumentRenderer, error)
}

// NewPreviewGenerator creates a generator rendering with opts as the base
// configuration
func NewPreviewGenerator(opts renderer.Options) *PreviewGenerator {
	g := &PreviewGenerator{
		opts:      opts,
		validator: validation.FS{},
	}
	g.newRenderer = func(o renderer.Options) (interfaces.DocumentRenderer, error) {
		if g.fetcher != nil {
			return renderer.NewWithFetcher(g.fetcher, o)
		}
		return renderer.New(o)
	}
	return g
}

// WithFetcher resolves document assets through f instead of over HTTP
func (g *PreviewGenerator) WithFetcher(f interfaces.Fetcher) *PreviewGenerator {
	g.fetcher = f
	return g
}

// WithUploader publishes every preview generated with an UploadName
func (g *PreviewGenerator) WithUploader(u interfaces.Uploader) *PreviewGenerator {
	g.uploader = u
	return g
}

// Generate renders a template document.
//
// It performs the following steps:
//  1. Validates the output path, when one is given
//  2. Loads the document from a file or inline JSON
//  3. Renders it with the per-call format and multiplier
//  4. Writes the file, or returns a data URI when there is no output path
//
// Nodes that could not be rendered do not fail generation; they are listed
// in GenerateResult.Diagnostics.
func (g *PreviewGenerator) Generate(ctx context.Context, cfg interfaces.PreviewConfig) (*interfaces.GenerateResult, error) {
	// Validate output path
	if cfg.OutputPath != "" {
		if err := g.validator.ValidateOutputPath(cfg.OutputPath); err != nil {
			return nil, fmt.Errorf("invalid output path: %w", err)
		}
	}

	doc, err := LoadDocument(ctx, g.validator, cfg.DocumentPath, cfg.DocumentJSON)
	if err != nil {
		return nil, err
	}

	opts := g.opts
	if cfg.Format != "" {
		format, err := renderer.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		opts.Format = format
	}
	if cfg.Multiplier > 0 {
		opts.Multiplier = cfg.Multiplier
	}
	if cfg.OutputPath != "" {
		if err := validation.ValidateOutputExtension(cfg.OutputPath, string(opts.Format)); err != nil {
			return nil, fmt.Errorf("invalid output path: %w", err)
		}
	}

	r, err := g.newRenderer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	res, err := r.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render preview: %w", err)
	}

	sum := sha256.Sum256(res.Image)
	result := &interfaces.GenerateResult{
		OutputPath:  cfg.OutputPath,
		Width:       res.Width,
		Height:      res.Height,
		Format:      string(res.Format),
		SHA256:      hex.EncodeToString(sum[:]),
		Bindings:    res.Bindings,
		Diagnostics: res.Diagnostics.Strings(),
	}

	if cfg.OutputPath != "" {
		if err := res.WriteFile(cfg.OutputPath); err != nil {
			return nil, err
		}
	} else {
		result.DataURI = res.DataURI()
	}

	if cfg.UploadName != "" && g.uploader != nil {
		url, err := g.uploader.Upload(ctx, cfg.UploadName, res.Image, res.Format.MIMEType())
		if err != nil {
			return nil, fmt.Errorf("failed to upload preview: %w", err)
		}
		result.URL = url
	}

	return result, nil
}
