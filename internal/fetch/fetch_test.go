package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ankek/terraform-provider-preview/internal/diag"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10" width="20" height="10">
<rect x="0" y="0" width="20" height="10" fill="#0000ff"/>
</svg>`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestFetcher(timeout time.Duration) *Fetcher {
	return New(Options{
		Timeout:      timeout,
		RetryMax:     0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	})
}

func TestFetchRaster(t *testing.T) {
	body := pngBytes(t, 7, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	asset, err := newTestFetcher(time.Second).Fetch(context.Background(), srv.URL+"/a.png", KindRaster)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if asset.Kind != KindRaster || asset.Image == nil {
		t.Fatalf("asset = %+v", asset)
	}
	if asset.Width != 7 || asset.Height != 3 {
		t.Errorf("size = %vx%v, want 7x3", asset.Width, asset.Height)
	}
}

func TestFetchVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write([]byte(testSVG))
	}))
	defer srv.Close()

	asset, err := newTestFetcher(time.Second).Fetch(context.Background(), srv.URL+"/a.svg", KindVector)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if asset.Icon == nil {
		t.Fatal("icon is nil")
	}
	if asset.Width != 20 || asset.Height != 10 {
		t.Errorf("size = %vx%v, want 20x10", asset.Width, asset.Height)
	}
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/garbage":
			_, _ = w.Write([]byte("definitely not an image"))
		case "/big":
			_, _ = w.Write(bytes.Repeat([]byte{0}, 2048))
		}
	}))
	defer srv.Close()

	f := New(Options{Timeout: time.Second, MaxBytes: 1024, RetryWaitMin: time.Millisecond})

	tests := []struct {
		name string
		url  string
		kind Kind
	}{
		{name: "not found", url: srv.URL + "/missing", kind: KindRaster},
		{name: "undecodable raster", url: srv.URL + "/garbage", kind: KindRaster},
		{name: "undecodable vector", url: srv.URL + "/garbage", kind: KindVector},
		{name: "too large", url: srv.URL + "/big", kind: KindRaster},
		{name: "empty url", url: "", kind: KindRaster},
		{name: "unsupported scheme", url: "ftp://example.com/a.png", kind: KindRaster},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := f.Fetch(context.Background(), tt.url, tt.kind)
			if err == nil {
				t.Fatalf("expected error, got asset %+v", asset)
			}
			var ferr *diag.ResourceFetchError
			if !errors.As(err, &ferr) {
				t.Fatalf("error %T is not a ResourceFetchError", err)
			}
			if ferr.Timeout {
				t.Error("Timeout flag set on a non-timeout failure")
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := newTestFetcher(100 * time.Millisecond)

	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL+"/slow.png", KindRaster)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error")
	}
	var ferr *diag.ResourceFetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error %T is not a ResourceFetchError", err)
	}
	if !ferr.Timeout {
		t.Errorf("Timeout = false, err = %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("fetch took %v, timeout was not enforced", elapsed)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	body := pngBytes(t, 2, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := New(Options{Timeout: 2 * time.Second, RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	if _, err := f.Fetch(context.Background(), srv.URL, KindRaster); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestFetchDataURI(t *testing.T) {
	f := newTestFetcher(time.Second)

	raster := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 4, 5))
	asset, err := f.Fetch(context.Background(), raster, KindRaster)
	if err != nil {
		t.Fatalf("Fetch raster data URI: %v", err)
	}
	if asset.Width != 4 || asset.Height != 5 {
		t.Errorf("size = %vx%v, want 4x5", asset.Width, asset.Height)
	}

	vector := "data:image/svg+xml," + strings.ReplaceAll(strings.ReplaceAll(testSVG, "#", "%23"), "\n", "")
	asset, err = f.Fetch(context.Background(), vector, KindVector)
	if err != nil {
		t.Fatalf("Fetch vector data URI: %v", err)
	}
	if asset.Width != 20 {
		t.Errorf("width = %v, want 20", asset.Width)
	}
}

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{name: "plain", uri: "data:,hello%20world", want: "hello world"},
		{name: "base64", uri: "data:text/plain;base64,aGVsbG8=", want: "hello"},
		{name: "base64 without padding", uri: "data:text/plain;base64,aGVsbG8", want: "hello"},
		{name: "missing comma", uri: "data:text/plain", wantErr: true},
		{name: "bad base64", uri: "data:;base64,!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeDataURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring a w x h RGBA
// image with no pixel data behind it
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeRejectsOversizedRaster(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		maxPixels int64
		wantErr   bool
	}{
		{name: "within limit", data: pngBytes(t, 7, 3), maxPixels: 21},
		{name: "over limit", data: pngBytes(t, 7, 3), maxPixels: 20, wantErr: true},
		{name: "header claims 30000x30000", data: pngHeader(30000, 30000), maxPixels: DefaultMaxPixels, wantErr: true},
		{name: "no limit", data: pngBytes(t, 7, 3), maxPixels: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := Decode(tt.data, KindRaster, tt.maxPixels)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), "exceeds") {
				t.Errorf("error = %v, want a size rejection", err)
			}
			if !tt.wantErr && (asset.Width != 7 || asset.Height != 3) {
				t.Errorf("asset size = %gx%g", asset.Width, asset.Height)
			}
		})
	}
}

func TestFetchOversizedRasterIsFetchError(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader(30000, 30000))

	_, err := newTestFetcher(time.Second).Fetch(context.Background(), uri, KindRaster)
	var ferr *diag.ResourceFetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v (%T), want *diag.ResourceFetchError", err, err)
	}
}
