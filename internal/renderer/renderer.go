// Package renderer turns template documents into raster previews. It
// renders scene nodes into drawables, composites them over the frame
// background and encodes the result as PNG or JPEG.
package renderer

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ankek/terraform-provider-preview/internal/diag"
	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/fetch"
	"github.com/ankek/terraform-provider-preview/internal/scene"
)

// DefaultDeadline bounds scene construction, asset fetches included
const DefaultDeadline = 30 * time.Second

// Options contains configuration for rendering
type Options struct {
	Multiplier  float64
	Format      Format
	JPEGQuality int
	// Deadline bounds the whole fetch phase of one render
	Deadline    time.Duration
	MaxDepth    int
	Concurrency int
	Fetch       fetch.Options
	// Fonts defaults to the built-in Go fonts
	Fonts  *Fonts
	Logger hclog.Logger
}

// Renderer renders documents. It holds no per-document state and may be
// used concurrently.
type Renderer struct {
	opts    Options
	builder *scene.Builder
	fonts   *Fonts
	logger  hclog.Logger
}

// Result is the output of one render
type Result struct {
	Image         []byte
	Width, Height int
	Format        Format
	// Bindings lists the merge-field keys left unresolved in the preview
	Bindings    []string
	Diagnostics diag.Diagnostics
}

// DataURI returns the image as a base64 data URI
func (r *Result) DataURI() string {
	return "data:" + r.Format.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(r.Image)
}

// New creates a Renderer fetching assets over HTTP
func New(opts Options) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	fopts := opts.Fetch
	if fopts.Logger == nil {
		fopts.Logger = opts.Logger
	}
	return NewWithFetcher(fetch.New(fopts), opts)
}

// NewWithFetcher creates a Renderer resolving assets through f
func NewWithFetcher(f scene.AssetFetcher, opts Options) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.Fonts == nil {
		fonts, err := NewFonts()
		if err != nil {
			return nil, err
		}
		opts.Fonts = fonts
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	opts.Format = format

	return &Renderer{
		opts: opts,
		builder: scene.NewBuilder(f, scene.Options{
			MaxDepth:    opts.MaxDepth,
			Concurrency: opts.Concurrency,
			Logger:      opts.Logger,
		}),
		fonts:  opts.Fonts,
		logger: opts.Logger,
	}, nil
}

// Render produces the preview of doc. Nodes that fail to resolve or render
// are skipped and reported in Result.Diagnostics; the error is non-nil only
// for invalid documents, cancellation and encoding failures.
func (r *Renderer) Render(ctx context.Context, doc *document.Document) (*Result, error) {
	if err := document.Validate(doc); err != nil {
		return nil, err
	}

	start := time.Now()
	buildCtx, cancel := context.WithTimeout(ctx, r.opts.Deadline)
	defer cancel()

	g, diags, err := r.builder.Build(buildCtx, doc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("render canceled: %w", err)
	}
	if r.logger.IsTrace() {
		r.logger.Trace("scene graph built", "graph", g.String())
	}

	surface, cdiags := Composite(g, doc.Frame, doc.Background, r.fonts)
	for _, d := range cdiags {
		r.logger.Warn("render diagnostic", "path", d.Path.String(), "type", d.NodeType, "error", d.Err)
	}
	diags.Append(cdiags)
	if diags.HasError() {
		r.logger.Error("preview rendered with errors", "diagnostics", len(diags))
	}

	enc := EncodeOptions{
		Multiplier: r.opts.Multiplier,
		Format:     r.opts.Format,
		Quality:    r.opts.JPEGQuality,
	}.withDefaults()
	data, err := Encode(surface, enc)
	if err != nil {
		return nil, err
	}

	w, h := OutputSize(doc.Frame.Width, doc.Frame.Height, enc.Multiplier)
	r.logger.Debug("rendered preview",
		"width", w, "height", h, "format", enc.Format,
		"nodes", g.Len(), "diagnostics", len(diags), "elapsed", time.Since(start))

	return &Result{
		Image:       data,
		Width:       w,
		Height:      h,
		Format:      enc.Format,
		Bindings:    surface.Bindings(),
		Diagnostics: diags,
	}, nil
}
