// Package config loads the HCL render configuration shared by the provider
// and the command line tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/ankek/terraform-provider-preview/internal/fetch"
	"github.com/ankek/terraform-provider-preview/internal/renderer"
	"github.com/ankek/terraform-provider-preview/internal/scene"
)

// Config is the parsed render configuration
type Config struct {
	Render RenderConfig
	Fetch  FetchConfig
	Fonts  []FontConfig
}

// RenderConfig holds the render block
type RenderConfig struct {
	Multiplier  float64
	Format      renderer.Format
	JPEGQuality int
	Deadline    time.Duration
	MaxDepth    int
}

// FetchConfig holds the fetch block
type FetchConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Concurrency  int
	MaxBytes     int64
	MaxPixels    int64
	UserAgent    string
}

// FontConfig is one font block. Paths are absolute once loaded.
type FontConfig struct {
	Family string
	Files  map[renderer.FontStyle]string
}

// Default returns the configuration used when no file is given
func Default() *Config {
	f := fetch.DefaultOptions()
	return &Config{
		Render: RenderConfig{
			Multiplier:  renderer.DefaultMultiplier,
			Format:      renderer.FormatPNG,
			JPEGQuality: renderer.DefaultJPEGQuality,
			Deadline:    renderer.DefaultDeadline,
			MaxDepth:    scene.DefaultMaxDepth,
		},
		Fetch: FetchConfig{
			Timeout:      f.Timeout,
			RetryMax:     f.RetryMax,
			RetryWaitMin: f.RetryWaitMin,
			RetryWaitMax: f.RetryWaitMax,
			Concurrency:  scene.DefaultConcurrency,
			MaxBytes:     f.MaxBytes,
			MaxPixels:    f.MaxPixels,
			UserAgent:    f.UserAgent,
		},
	}
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "render"},
		{Type: "fetch"},
		{Type: "font", LabelNames: []string{"family"}},
	},
}

var renderSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "multiplier"},
		{Name: "format"},
		{Name: "jpeg_quality"},
		{Name: "deadline"},
		{Name: "max_depth"},
	},
}

var fetchSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "timeout"},
		{Name: "retry_max"},
		{Name: "retry_wait_min"},
		{Name: "retry_wait_max"},
		{Name: "concurrency"},
		{Name: "max_bytes"},
		{Name: "max_pixels"},
		{Name: "user_agent"},
	},
}

var fontSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "regular"},
		{Name: "bold"},
		{Name: "italic"},
		{Name: "bold_italic"},
	},
}

// Load reads and parses an HCL configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses HCL configuration source. Relative font paths resolve
// against the directory of filename.
func Parse(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse errors: %s", diags.Error())
	}

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config: %s", diags.Error())
	}

	cfg := Default()
	seen := make(map[string]bool)
	for _, block := range content.Blocks {
		if block.Type != "font" {
			if seen[block.Type] {
				return nil, fmt.Errorf("%s: duplicate %s block", block.DefRange, block.Type)
			}
			seen[block.Type] = true
		}

		var err error
		switch block.Type {
		case "render":
			err = decodeRender(block.Body, &cfg.Render)
		case "fetch":
			err = decodeFetch(block.Body, &cfg.Fetch)
		case "font":
			var font FontConfig
			font, err = decodeFont(block, filepath.Dir(filename))
			cfg.Fonts = append(cfg.Fonts, font)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.Render.Multiplier <= 0:
		return fmt.Errorf("render.multiplier must be positive, got %g", c.Render.Multiplier)
	case c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100:
		return fmt.Errorf("render.jpeg_quality must be between 1 and 100, got %d", c.Render.JPEGQuality)
	case c.Render.Deadline <= 0:
		return fmt.Errorf("render.deadline must be positive")
	case c.Render.MaxDepth <= 0:
		return fmt.Errorf("render.max_depth must be positive, got %d", c.Render.MaxDepth)
	case c.Fetch.Timeout <= 0:
		return fmt.Errorf("fetch.timeout must be positive")
	case c.Fetch.RetryMax < 0:
		return fmt.Errorf("fetch.retry_max must not be negative, got %d", c.Fetch.RetryMax)
	case c.Fetch.RetryWaitMin > c.Fetch.RetryWaitMax:
		return fmt.Errorf("fetch.retry_wait_min exceeds fetch.retry_wait_max")
	case c.Fetch.Concurrency <= 0:
		return fmt.Errorf("fetch.concurrency must be positive, got %d", c.Fetch.Concurrency)
	case c.Fetch.MaxBytes <= 0:
		return fmt.Errorf("fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes)
	case c.Fetch.MaxPixels <= 0:
		return fmt.Errorf("fetch.max_pixels must be positive, got %d", c.Fetch.MaxPixels)
	}
	if _, err := renderer.ParseFormat(string(c.Render.Format)); err != nil {
		return fmt.Errorf("render.format: %w", err)
	}
	return nil
}

func decodeRender(body hcl.Body, out *RenderConfig) error {
	content, diags := body.Content(renderSchema)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse render block: %s", diags.Error())
	}
	attrs := content.Attributes

	if err := decodeAttr(attrs, "multiplier", &out.Multiplier); err != nil {
		return err
	}
	var format string
	if err := decodeAttr(attrs, "format", &format); err != nil {
		return err
	}
	if format != "" {
		f, err := renderer.ParseFormat(format)
		if err != nil {
			return fmt.Errorf("%s: %w", attrs["format"].Range, err)
		}
		out.Format = f
	}
	if err := decodeAttr(attrs, "jpeg_quality", &out.JPEGQuality); err != nil {
		return err
	}
	if err := decodeDuration(attrs, "deadline", &out.Deadline); err != nil {
		return err
	}
	return decodeAttr(attrs, "max_depth", &out.MaxDepth)
}

func decodeFetch(body hcl.Body, out *FetchConfig) error {
	content, diags := body.Content(fetchSchema)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse fetch block: %s", diags.Error())
	}
	attrs := content.Attributes

	for name, dst := range map[string]*time.Duration{
		"timeout":        &out.Timeout,
		"retry_wait_min": &out.RetryWaitMin,
		"retry_wait_max": &out.RetryWaitMax,
	} {
		if err := decodeDuration(attrs, name, dst); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*int{
		"retry_max":   &out.RetryMax,
		"concurrency": &out.Concurrency,
	} {
		if err := decodeAttr(attrs, name, dst); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*int64{
		"max_bytes":  &out.MaxBytes,
		"max_pixels": &out.MaxPixels,
	} {
		if err := decodeAttr(attrs, name, dst); err != nil {
			return err
		}
	}
	return decodeAttr(attrs, "user_agent", &out.UserAgent)
}

func decodeFont(block *hcl.Block, baseDir string) (FontConfig, error) {
	font := FontConfig{Family: block.Labels[0], Files: make(map[renderer.FontStyle]string)}

	content, diags := block.Body.Content(fontSchema)
	if diags.HasErrors() {
		return font, fmt.Errorf("failed to parse font block: %s", diags.Error())
	}

	for name := range content.Attributes {
		var path string
		if err := decodeAttr(content.Attributes, name, &path); err != nil {
			return font, err
		}
		style, err := renderer.ParseFontStyle(name)
		if err != nil {
			return font, err
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		font.Files[style] = path
	}
	if len(font.Files) == 0 {
		return font, fmt.Errorf("%s: font %q declares no files", block.DefRange, font.Family)
	}
	return font, nil
}

// decodeAttr evaluates a literal attribute into dst, leaving dst untouched
// when the attribute is absent
func decodeAttr(attrs hcl.Attributes, name string, dst interface{}) error {
	attr, ok := attrs[name]
	if !ok {
		return nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return fmt.Errorf("failed to evaluate %s: %s", name, diags.Error())
	}
	if val.IsNull() {
		return nil
	}
	if err := gocty.FromCtyValue(val, dst); err != nil {
		return fmt.Errorf("%s: invalid value for %s: %w", attr.Range, name, err)
	}
	return nil
}

func decodeDuration(attrs hcl.Attributes, name string, dst *time.Duration) error {
	attr, ok := attrs[name]
	if !ok {
		return nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return fmt.Errorf("failed to evaluate %s: %s", name, diags.Error())
	}
	if val.IsNull() {
		return nil
	}

	// bare numbers are seconds
	if val.Type() == cty.Number {
		var secs float64
		if err := gocty.FromCtyValue(val, &secs); err != nil {
			return fmt.Errorf("%s: invalid value for %s: %w", attr.Range, name, err)
		}
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}

	var s string
	if err := gocty.FromCtyValue(val, &s); err != nil {
		return fmt.Errorf("%s: invalid value for %s: %w", attr.Range, name, err)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: invalid duration for %s: %w", attr.Range, name, err)
	}
	*dst = d
	return nil
}

// RendererOptions builds renderer options, loading every configured font
func (c *Config) RendererOptions(logger hclog.Logger) (renderer.Options, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	fonts, err := renderer.NewFonts()
	if err != nil {
		return renderer.Options{}, err
	}
	for _, font := range c.Fonts {
		styles := make([]int, 0, len(font.Files))
		for style := range font.Files {
			styles = append(styles, int(style))
		}
		sort.Ints(styles)
		for _, style := range styles {
			s := renderer.FontStyle(style)
			if err := fonts.RegisterFile(font.Family, s, font.Files[s]); err != nil {
				return renderer.Options{}, fmt.Errorf("font %q: %w", font.Family, err)
			}
			logger.Debug("registered font", "family", font.Family, "path", font.Files[s])
		}
	}

	return renderer.Options{
		Multiplier:  c.Render.Multiplier,
		Format:      c.Render.Format,
		JPEGQuality: c.Render.JPEGQuality,
		Deadline:    c.Render.Deadline,
		MaxDepth:    c.Render.MaxDepth,
		Concurrency: c.Fetch.Concurrency,
		Fetch: fetch.Options{
			Timeout:      c.Fetch.Timeout,
			RetryMax:     c.Fetch.RetryMax,
			RetryWaitMin: c.Fetch.RetryWaitMin,
			RetryWaitMax: c.Fetch.RetryWaitMax,
			MaxBytes:     c.Fetch.MaxBytes,
			MaxPixels:    c.Fetch.MaxPixels,
			UserAgent:    c.Fetch.UserAgent,
			Logger:       logger,
		},
		Fonts:  fonts,
		Logger: logger,
	}, nil
}
