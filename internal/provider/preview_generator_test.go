package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/fetch"
	"github.com/ankek/terraform-provider-preview/internal/interfaces"
	"github.com/ankek/terraform-provider-preview/internal/renderer"
)

const testDocument = `{
	"frame": {"width": 40, "height": 20},
	"background": {"type": "color", "value": "#336699"},
	"objects": [
		{"type": "StaticPath", "left": 5, "top": 5, "metadata": {
			"fill": "#ffffff",
			"value": [["M", 0, 0], ["L", 10, 0], ["L", 10, 10], ["Z"]]
		}}
	]
}`

// fakeRenderer records the options it was built with
type fakeRenderer struct {
	opts renderer.Options
	err  error
}

func (f *fakeRenderer) Render(ctx context.Context, doc *document.Document) (*renderer.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &renderer.Result{
		Image:  []byte("image-bytes"),
		Width:  doc.Frame.Width,
		Height: doc.Frame.Height,
		Format: f.opts.Format,
	}, nil
}

type fakeUploader struct {
	name        string
	contentType string
}

func (u *fakeUploader) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	u.name, u.contentType = name, contentType
	return "https://previews.example.com/" + name, nil
}

func newFakeGenerator(fr *fakeRenderer) *PreviewGenerator {
	g := NewPreviewGenerator(renderer.Options{Multiplier: 2, Format: renderer.FormatPNG})
	g.newRenderer = func(o renderer.Options) (interfaces.DocumentRenderer, error) {
		fr.opts = o
		return fr, nil
	}
	return g
}

func TestPreviewGenerator_Generate(t *testing.T) {
	tmpDir := t.TempDir()

	docFile := filepath.Join(tmpDir, "template.json")
	if err := os.WriteFile(docFile, []byte(testDocument), 0644); err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}

	tests := []struct {
		name    string
		config  interfaces.PreviewConfig
		wantErr string
	}{
		{
			name: "document file",
			config: interfaces.PreviewConfig{
				DocumentPath: docFile,
				OutputPath:   filepath.Join(tmpDir, "preview.png"),
			},
		},
		{
			name: "inline document",
			config: interfaces.PreviewConfig{
				DocumentJSON: testDocument,
				OutputPath:   filepath.Join(tmpDir, "inline.png"),
			},
		},
		{
			name:    "missing input",
			config:  interfaces.PreviewConfig{OutputPath: filepath.Join(tmpDir, "preview.png")},
			wantErr: "must be provided",
		},
		{
			name: "both inputs",
			config: interfaces.PreviewConfig{
				DocumentPath: docFile,
				DocumentJSON: testDocument,
				OutputPath:   filepath.Join(tmpDir, "preview.png"),
			},
			wantErr: "only one of",
		},
		{
			name: "invalid output path",
			config: interfaces.PreviewConfig{
				DocumentPath: docFile,
				OutputPath:   "/nonexistent/directory/preview.png",
			},
			wantErr: "invalid output path",
		},
		{
			name: "non-existent document",
			config: interfaces.PreviewConfig{
				DocumentPath: filepath.Join(tmpDir, "missing.json"),
				OutputPath:   filepath.Join(tmpDir, "preview.png"),
			},
			wantErr: "invalid document path",
		},
		{
			name: "extension does not match format",
			config: interfaces.PreviewConfig{
				DocumentJSON: testDocument,
				OutputPath:   filepath.Join(tmpDir, "preview.png"),
				Format:       "jpeg",
			},
			wantErr: "does not match",
		},
		{
			name: "unsupported format",
			config: interfaces.PreviewConfig{
				DocumentJSON: testDocument,
				OutputPath:   filepath.Join(tmpDir, "preview.gif"),
				Format:       "gif",
			},
			wantErr: "unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGenerator(&fakeRenderer{})
			result, err := g.Generate(context.Background(), tt.config)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Generate() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			data, err := os.ReadFile(tt.config.OutputPath)
			if err != nil {
				t.Fatalf("output file not written: %v", err)
			}
			if string(data) != "image-bytes" {
				t.Errorf("output = %q", data)
			}
			if len(result.SHA256) != 64 {
				t.Errorf("SHA256 = %q", result.SHA256)
			}
			if result.DataURI != "" {
				t.Errorf("DataURI should be empty when writing a file")
			}
			if result.Width != 40 || result.Height != 20 {
				t.Errorf("size = %dx%d", result.Width, result.Height)
			}
		})
	}
}

func TestPreviewGenerator_Overrides(t *testing.T) {
	fr := &fakeRenderer{}
	g := newFakeGenerator(fr)

	_, err := g.Generate(context.Background(), interfaces.PreviewConfig{
		DocumentJSON: testDocument,
		Format:       "JPG",
		Multiplier:   4,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if fr.opts.Format != renderer.FormatJPEG || fr.opts.Multiplier != 4 {
		t.Errorf("renderer options = %+v", fr.opts)
	}

	// base options apply when nothing is overridden
	if _, err := g.Generate(context.Background(), interfaces.PreviewConfig{DocumentJSON: testDocument}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if fr.opts.Format != renderer.FormatPNG || fr.opts.Multiplier != 2 {
		t.Errorf("renderer options = %+v", fr.opts)
	}
}

func TestPreviewGenerator_DataURIAndUpload(t *testing.T) {
	up := &fakeUploader{}
	g := newFakeGenerator(&fakeRenderer{}).WithUploader(up)

	result, err := g.Generate(context.Background(), interfaces.PreviewConfig{
		DocumentJSON: testDocument,
		UploadName:   "card.png",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(result.DataURI, "data:image/png;base64,") {
		t.Errorf("DataURI = %q", result.DataURI)
	}
	if result.URL != "https://previews.example.com/card.png" {
		t.Errorf("URL = %q", result.URL)
	}
	if up.name != "card.png" || up.contentType != "image/png" {
		t.Errorf("upload = %q %q", up.name, up.contentType)
	}
}

func TestPreviewGenerator_RenderError(t *testing.T) {
	boom := errors.New("boom")
	g := newFakeGenerator(&fakeRenderer{err: boom})

	_, err := g.Generate(context.Background(), interfaces.PreviewConfig{DocumentJSON: testDocument})
	if !errors.Is(err, boom) {
		t.Fatalf("Generate() error = %v, want %v", err, boom)
	}
}

func TestPreviewGenerator_RealRenderer(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(tmpDir, "preview.png")

	g := NewPreviewGenerator(renderer.Options{Multiplier: 1})
	result, err := g.Generate(context.Background(), interfaces.PreviewConfig{
		DocumentJSON: testDocument,
		OutputPath:   out,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", result.Diagnostics)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("image size = %v", b)
	}
}

// stubFetcher serves a solid square for every URL
type stubFetcher struct {
	urls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string, kind fetch.Kind) (*fetch.Asset, error) {
	f.urls = append(f.urls, url)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+3] = 0xff, 0xff
	}
	return &fetch.Asset{Kind: fetch.KindRaster, Image: img, Width: 8, Height: 8}, nil
}

func TestPreviewGenerator_WithFetcher(t *testing.T) {
	const doc = `{"frame":{"width":20,"height":20},"objects":[
		{"type":"StaticImage","left":0,"top":0,"metadata":{"src":"https://assets.example.com/logo.png"}},
		{"type":"DynamicText","left":0,"top":10,"width":20,"metadata":{"text":"x","keys":["name"]}}
	]}`

	f := &stubFetcher{}
	g := NewPreviewGenerator(renderer.Options{Multiplier: 1}).WithFetcher(f)
	result, err := g.Generate(context.Background(), interfaces.PreviewConfig{DocumentJSON: doc})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", result.Diagnostics)
	}
	if len(f.urls) != 1 || f.urls[0] != "https://assets.example.com/logo.png" {
		t.Errorf("fetched %v", f.urls)
	}
	if len(result.Bindings) != 1 || result.Bindings[0] != "name" {
		t.Errorf("Bindings = %v, want [name]", result.Bindings)
	}

	uri := strings.TrimPrefix(result.DataURI, "data:image/png;base64,")
	data, err := base64.StdEncoding.DecodeString(uri)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	got := color.NRGBAModel.Convert(img.At(4, 4)).(color.NRGBA)
	if got.R < 0xf0 || got.G > 0x10 || got.B > 0x10 {
		t.Errorf("pixel inside the image = %v, want red", got)
	}
}
