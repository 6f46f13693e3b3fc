package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ankek/terraform-provider-preview/internal/validation"
)

func TestLoadDocument(t *testing.T) {
	tmpDir := t.TempDir()

	docFile := filepath.Join(tmpDir, "template.json")
	if err := os.WriteFile(docFile, []byte(testDocument), 0644); err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}
	badFile := filepath.Join(tmpDir, "broken.json")
	if err := os.WriteFile(badFile, []byte(`{"frame":`), 0644); err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		json    string
		wantErr bool
	}{
		{name: "file", path: docFile},
		{name: "inline", json: testDocument},
		{name: "neither", wantErr: true},
		{name: "both", path: docFile, json: testDocument, wantErr: true},
		{name: "missing file", path: filepath.Join(tmpDir, "missing.json"), wantErr: true},
		{name: "directory", path: tmpDir, wantErr: true},
		{name: "malformed file", path: badFile, wantErr: true},
		{name: "malformed inline", json: `{"objects": [`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := LoadDocument(context.Background(), validation.FS{}, tt.path, tt.json)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if doc.Frame.Width != 40 || doc.Frame.Height != 20 {
				t.Errorf("frame = %+v", doc.Frame)
			}
			if len(doc.Objects) != 1 {
				t.Errorf("objects = %d, want 1", len(doc.Objects))
			}
		})
	}
}

func TestLoadDocumentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := LoadDocument(ctx, validation.FS{}, "", testDocument); err != context.Canceled {
		t.Fatalf("LoadDocument() error = %v, want context.Canceled", err)
	}
}
