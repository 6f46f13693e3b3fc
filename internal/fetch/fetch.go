// Package fetch resolves external image and SVG references into decoded
// assets. Every call finishes with an asset or a *diag.ResourceFetchError
// within the configured timeout.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	// raster decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/srwiley/oksvg"

	"github.com/ankek/terraform-provider-preview/internal/diag"
)

// DefaultMaxPixels bounds decoded raster assets
const DefaultMaxPixels = 64 << 20

// Kind selects how fetched bytes are decoded
type Kind int

const (
	KindRaster Kind = iota
	KindVector
)

func (k Kind) String() string {
	if k == KindVector {
		return "vector"
	}
	return "raster"
}

// Asset is a decoded external resource
type Asset struct {
	Kind Kind
	URL  string

	// Image is set for raster assets
	Image image.Image
	// Icon is set for vector assets
	Icon *oksvg.SvgIcon

	// Width and Height are the intrinsic size: pixel size for rasters,
	// viewBox size for vectors.
	Width, Height float64
}

// Options configures a Fetcher
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	MaxBytes     int64
	// MaxPixels bounds the decoded size of raster assets
	MaxPixels    int64
	UserAgent    string
	Logger       hclog.Logger
}

// DefaultOptions returns the fetch settings used when none are configured
func DefaultOptions() Options {
	return Options{
		Timeout:      10 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: time.Second,
		MaxBytes:     32 << 20,
		MaxPixels:    DefaultMaxPixels,
		UserAgent:    "terraform-provider-preview",
	}
}

// Fetcher retrieves and decodes assets. It is safe for concurrent use.
type Fetcher struct {
	client *retryablehttp.Client
	opts   Options
	logger hclog.Logger
}

// New creates a Fetcher. Zero durations, sizes and strings take their
// defaults; RetryMax is used as given.
func New(opts Options) *Fetcher {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = def.RetryWaitMin
	}
	if opts.RetryWaitMax < opts.RetryWaitMin {
		opts.RetryWaitMax = opts.RetryWaitMin
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	logger := opts.Logger.Named("fetch")

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = opts.RetryWaitMin
	client.RetryWaitMax = opts.RetryWaitMax
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = logger

	return &Fetcher{client: client, opts: opts, logger: logger}
}

// Fetch retrieves rawURL and decodes it as kind. Any failure, including a
// timeout, is returned as *diag.ResourceFetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, kind Kind) (*Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	data, err := f.load(ctx, rawURL)
	if err != nil {
		timeout := isTimeout(ctx, err)
		f.logger.Warn("resource fetch failed", "url", truncate(rawURL), "kind", kind, "timeout", timeout, "error", err)
		return nil, &diag.ResourceFetchError{URL: rawURL, Timeout: timeout, Err: err}
	}

	asset, err := Decode(data, kind, f.opts.MaxPixels)
	if err != nil {
		f.logger.Warn("resource decode failed", "url", truncate(rawURL), "kind", kind, "error", err)
		return nil, &diag.ResourceFetchError{URL: rawURL, Err: err}
	}
	asset.URL = rawURL

	f.logger.Debug("resource fetched", "url", truncate(rawURL), "kind", kind, "width", asset.Width, "height", asset.Height)
	return asset, nil
}

// load returns the raw bytes behind rawURL
func (f *Fetcher) load(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("empty source URL")
	}

	if strings.HasPrefix(rawURL, "data:") {
		data, err := decodeDataURI(rawURL)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > f.opts.MaxBytes {
			return nil, fmt.Errorf("resource larger than %d bytes", f.opts.MaxBytes)
		}
		return data, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("resource larger than %d bytes", f.opts.MaxBytes)
	}
	return data, nil
}

// Decode turns raw bytes into an asset of the requested kind. Raster
// images whose header declares more than maxPixels pixels are rejected
// before any pixel memory is allocated.
func Decode(data []byte, kind Kind, maxPixels int64) (*Asset, error) {
	switch kind {
	case KindRaster:
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image header: %w", err)
		}
		if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
			return nil, fmt.Errorf("%s image %dx%d exceeds %d pixels", format, cfg.Width, cfg.Height, maxPixels)
		}
		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		b := img.Bounds()
		if b.Empty() {
			return nil, fmt.Errorf("decoded %s image is empty", format)
		}
		return &Asset{
			Kind:   KindRaster,
			Image:  img,
			Width:  float64(b.Dx()),
			Height: float64(b.Dy()),
		}, nil

	case KindVector:
		icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SVG: %w", err)
		}
		if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
			return nil, fmt.Errorf("SVG has no usable viewBox (%gx%g)", icon.ViewBox.W, icon.ViewBox.H)
		}
		return &Asset{
			Kind:   KindVector,
			Icon:   icon,
			Width:  icon.ViewBox.W,
			Height: icon.ViewBox.H,
		}, nil

	default:
		return nil, fmt.Errorf("unknown asset kind %d", kind)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func truncate(u string) string {
	if len(u) > 96 {
		return u[:96] + "..."
	}
	return u
}
