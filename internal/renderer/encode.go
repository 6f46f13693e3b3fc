package renderer

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gg"

	"github.com/ankek/terraform-provider-preview/internal/diag"
)

// Format is an output image format
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

const (
	DefaultMultiplier  = 3.0
	DefaultJPEGQuality = 90
	// MaxOutputPixels bounds the size of the encoded raster
	MaxOutputPixels = 256 << 20
)

// ParseFormat accepts "png", "jpeg" and "jpg" in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported format: %s (expected png or jpeg)", s)
}

// MIMEType returns the media type of the format
func (f Format) MIMEType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// EncodeOptions configures Encode
type EncodeOptions struct {
	// Multiplier scales the frame to the output resolution
	Multiplier float64
	Format     Format
	// Quality applies to JPEG output, 1 to 100
	Quality int
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.Multiplier <= 0 || math.IsNaN(o.Multiplier) || math.IsInf(o.Multiplier, 0) {
		o.Multiplier = DefaultMultiplier
	}
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultJPEGQuality
	}
	return o
}

// OutputSize returns the pixel size of a width x height frame at multiplier m
func OutputSize(width, height int, m float64) (int, int) {
	return int(math.Round(float64(width) * m)), int(math.Round(float64(height) * m))
}

// Encode rasterizes the surface at the configured multiplier and encodes
// it. Identical surfaces and options produce identical bytes.
func Encode(s *Surface, opts EncodeOptions) ([]byte, error) {
	opts = opts.withDefaults()

	fw := math.Round(float64(s.Width) * opts.Multiplier)
	fh := math.Round(float64(s.Height) * opts.Multiplier)
	if fw*fh > MaxOutputPixels {
		return nil, &diag.RasterizationError{Op: "allocate", Err: fmt.Errorf("output size %.0fx%.0f exceeds %d pixels", fw, fh, MaxOutputPixels)}
	}
	w, h := int(fw), int(fh)
	if w <= 0 || h <= 0 {
		return nil, &diag.RasterizationError{Op: "allocate", Err: fmt.Errorf("empty output size %dx%d", w, h)}
	}

	dc := gg.NewContext(w, h)
	defer dc.Close()

	dc.ClearWithColor(gg.FromColor(s.Base))
	root := gg.Scale(opts.Multiplier, opts.Multiplier)
	for _, d := range s.Drawables {
		if err := d.paint(dc, root); err != nil {
			return nil, asRasterizationError("paint "+d.Path.String(), err)
		}
	}

	var buf bytes.Buffer
	var err error
	switch opts.Format {
	case FormatPNG:
		err = dc.EncodePNG(&buf)
	case FormatJPEG:
		err = dc.EncodeJPEG(&buf, opts.Quality)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return nil, asRasterizationError("encode "+string(opts.Format), err)
	}
	return buf.Bytes(), nil
}

func asRasterizationError(op string, err error) error {
	if _, ok := err.(*diag.RasterizationError); ok {
		return err
	}
	return &diag.RasterizationError{Op: op, Err: err}
}
