package renderer

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/ankek/terraform-provider-preview/internal/document"
)

// objectMatrix returns the transform from a node's local frame to its
// parent frame. The local frame has its origin at the center of the node
// box, so content of size w x h occupies [-w/2, w/2] x [-h/2, h/2].
//
// The anchor (Left, Top) is the point of the box selected by OriginX and
// OriginY; the box is scaled and skewed around its center and rotated
// around the anchor.
func objectMatrix(n document.Normalized, w, h float64) gg.Matrix {
	sx, sy := n.ScaleX, n.ScaleY
	if n.FlipX {
		sx = -sx
	}
	if n.FlipY {
		sy = -sy
	}
	rad := n.Angle * math.Pi / 180

	// size of the scaled and skewed box before rotation
	shape := gg.Scale(sx, sy).
		Multiply(gg.Shear(math.Tan(n.SkewX*math.Pi/180), 0)).
		Multiply(gg.Shear(0, math.Tan(n.SkewY*math.Pi/180)))
	dimX, dimY := n.ScaleX*w, n.ScaleY*h
	if n.SkewX != 0 || n.SkewY != 0 {
		dimX, dimY = boxSize(shape, w, h)
	}

	offset := gg.Rotate(rad).TransformVector(gg.Pt((0.5-n.OriginX)*dimX, (0.5-n.OriginY)*dimY))
	cx, cy := n.Left+offset.X, n.Top+offset.Y

	return gg.Translate(cx, cy).Multiply(gg.Rotate(rad)).Multiply(shape)
}

// boxSize returns the axis aligned size of a w x h box centered on the
// origin after m is applied.
func boxSize(m gg.Matrix, w, h float64) (float64, float64) {
	minX, minY, maxX, maxY := transformedBounds(m, -w/2, -h/2, w/2, h/2)
	return maxX - minX, maxY - minY
}

// transformedBounds returns the bounding box of a rectangle mapped by m
func transformedBounds(m gg.Matrix, x0, y0, x1, y1 float64) (minX, minY, maxX, maxY float64) {
	corners := [4]gg.Point{
		m.TransformPoint(gg.Pt(x0, y0)),
		m.TransformPoint(gg.Pt(x1, y0)),
		m.TransformPoint(gg.Pt(x1, y1)),
		m.TransformPoint(gg.Pt(x0, y1)),
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// deviceScale is the length in device pixels of one local unit under m
func deviceScale(m gg.Matrix) float64 {
	return math.Sqrt(math.Abs(m.A*m.E - m.B*m.D))
}
