package renderer

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// maxOffscreenPixels bounds the intermediate bitmaps of text and vector nodes
const maxOffscreenPixels = 64 << 20

// blit paints the sr region of src onto dc. s2d maps source pixel
// coordinates to device pixels; only the part landing on the canvas is
// resampled.
func blit(dc *gg.Context, src image.Image, sr image.Rectangle, s2d gg.Matrix) {
	sr = sr.Intersect(src.Bounds())
	if sr.Empty() {
		return
	}

	minX, minY, maxX, maxY := transformedBounds(s2d,
		float64(sr.Min.X), float64(sr.Min.Y), float64(sr.Max.X), float64(sr.Max.Y))
	x0 := max(int(math.Floor(minX)), 0)
	y0 := max(int(math.Floor(minY)), 0)
	x1 := min(int(math.Ceil(maxX)), dc.Width())
	y1 := min(int(math.Ceil(maxY)), dc.Height())
	if x1 <= x0 || y1 <= y0 {
		return
	}

	t := gg.Translate(-float64(x0), -float64(y0)).Multiply(s2d)
	tile := image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0))
	draw.BiLinear.Transform(tile, f64.Aff3{t.A, t.B, t.C, t.D, t.E, t.F}, src, sr, draw.Over, nil)

	// the canvas takes straight alpha
	straight := image.NewNRGBA(tile.Bounds())
	draw.Draw(straight, straight.Bounds(), tile, image.Point{}, draw.Src)

	saved := dc.GetTransform()
	dc.SetTransform(gg.Identity())
	dc.DrawImageEx(gg.ImageBufFromImage(straight), gg.DrawImageOptions{
		X:         float64(x0),
		Y:         float64(y0),
		BlendMode: gg.BlendNormal,
	})
	dc.SetTransform(saved)
}

// offscreenSize returns the pixel size of an intermediate bitmap holding a
// w x h local box at device scale s. A zero size means nothing to draw.
func offscreenSize(w, h, s float64) (int, int, error) {
	fw, fh := math.Ceil(w*s), math.Ceil(h*s)
	if fw*fh > maxOffscreenPixels {
		return 0, 0, fmt.Errorf("%w: %.0fx%.0f", errOffscreenTooLarge, fw, fh)
	}
	if !(fw > 0 && fh > 0) {
		return 0, 0, nil
	}
	return int(fw), int(fh), nil
}
