package renderer

import (
	"math"
	"testing"

	"github.com/gogpu/gg"

	"github.com/ankek/terraform-provider-preview/internal/document"
)

func base() document.Normalized {
	return document.Normalized{ScaleX: 1, ScaleY: 1, Opacity: 1}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestObjectMatrix(t *testing.T) {
	tests := []struct {
		name   string
		node   func() document.Normalized
		w, h   float64
		local  gg.Point
		device gg.Point
	}{
		{
			name: "top left origin",
			node: func() document.Normalized {
				n := base()
				n.Left, n.Top = 10, 20
				return n
			},
			w: 40, h: 30,
			local:  gg.Pt(-20, -15),
			device: gg.Pt(10, 20),
		},
		{
			name: "scaled box keeps its anchor",
			node: func() document.Normalized {
				n := base()
				n.Left, n.Top = 10, 20
				n.ScaleX, n.ScaleY = 2, 2
				return n
			},
			w: 40, h: 30,
			local:  gg.Pt(-20, -15),
			device: gg.Pt(10, 20),
		},
		{
			name: "center origin rotated",
			node: func() document.Normalized {
				n := base()
				n.Left, n.Top = 100, 100
				n.OriginX, n.OriginY = 0.5, 0.5
				n.Angle = 90
				return n
			},
			w: 20, h: 10,
			local:  gg.Pt(10, 0),
			device: gg.Pt(100, 110),
		},
		{
			name: "rotation pivots on the anchor",
			node: func() document.Normalized {
				n := base()
				n.Angle = 90
				return n
			},
			w: 20, h: 10,
			local:  gg.Pt(-10, -5),
			device: gg.Pt(0, 0),
		},
		{
			name: "flip mirrors around the center",
			node: func() document.Normalized {
				n := base()
				n.OriginX, n.OriginY = 0.5, 0.5
				n.FlipX = true
				return n
			},
			w: 20, h: 10,
			local:  gg.Pt(5, 0),
			device: gg.Pt(-5, 0),
		},
		{
			name: "bottom right origin",
			node: func() document.Normalized {
				n := base()
				n.Left, n.Top = 50, 50
				n.OriginX, n.OriginY = 1, 1
				return n
			},
			w: 20, h: 10,
			local:  gg.Pt(10, 5),
			device: gg.Pt(50, 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := objectMatrix(tt.node(), tt.w, tt.h)
			got := m.TransformPoint(tt.local)
			if !near(got.X, tt.device.X) || !near(got.Y, tt.device.Y) {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.local, got, tt.device)
			}
		})
	}
}

func TestObjectMatrixSkewKeepsAnchorOnBoundingBox(t *testing.T) {
	n := base()
	n.Left, n.Top = 0, 0
	n.SkewX = 45
	m := objectMatrix(n, 10, 10)

	minX, minY, _, _ := transformedBounds(m, -5, -5, 5, 5)
	if !near(minX, 0) || !near(minY, 0) {
		t.Errorf("skewed box starts at (%g, %g), want (0, 0)", minX, minY)
	}
	if w, h := boxSize(m, 10, 10); !near(w, 20) || !near(h, 10) {
		t.Errorf("skewed box size = %gx%g, want 20x10", w, h)
	}
}

func TestDeviceScale(t *testing.T) {
	m := gg.Scale(3, 3).Multiply(gg.Rotate(0.7))
	if s := deviceScale(m); !near(s, 3) {
		t.Errorf("deviceScale = %g, want 3", s)
	}
}

func cmd(op string, args ...float64) document.PathCommand {
	return document.PathCommand{Op: op, Args: args}
}

func TestBuildPathBounds(t *testing.T) {
	tests := []struct {
		name        string
		cmds        []document.PathCommand
		x0, y0      float64
		x1, y1      float64
		wantSkipped int
	}{
		{
			name: "triangle",
			cmds: []document.PathCommand{cmd("M", 0, 0), cmd("L", 100, 0), cmd("L", 100, 100), cmd("Z")},
			x1:   100, y1: 100,
		},
		{
			name: "relative lines",
			cmds: []document.PathCommand{cmd("m", 10, 10), cmd("h", 20), cmd("v", 5), cmd("z")},
			x0:   10, y0: 10, x1: 30, y1: 15,
		},
		{
			name: "cubic extrema",
			cmds: []document.PathCommand{cmd("M", 0, 0), cmd("C", 0, 100, 100, 100, 100, 0)},
			x1:   100, y1: 75,
		},
		{
			name: "quadratic",
			cmds: []document.PathCommand{cmd("M", 0, 0), cmd("Q", 50, 100, 100, 0)},
			x1:   100, y1: 50,
		},
		{
			name: "smooth cubic reflects the control point",
			cmds: []document.PathCommand{cmd("M", 0, 0), cmd("C", 0, 40, 40, 40, 40, 0), cmd("S", 80, -40, 80, 0)},
			x0:   0, y0: -30, x1: 80, y1: 30,
		},
		{
			name: "implicit line-to after move",
			cmds: []document.PathCommand{cmd("M", 0, 0, 10, 20)},
			x1:   10, y1: 20,
		},
		{
			name: "malformed commands are skipped",
			cmds: []document.PathCommand{
				cmd("L", 5, 5), cmd("M", 0, 0), cmd("L", 1), cmd("A", 1, 1, 0, 0, 1, 9, 9), cmd("L", 4, 8),
			},
			x1: 4, y1: 8, wantSkipped: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildPath(tt.cmds)
			b := g.bounds
			if !near(b.LLx, tt.x0) || !near(b.LLy, tt.y0) || !near(b.URx, tt.x1) || !near(b.URy, tt.y1) {
				t.Errorf("bounds = %+v, want (%g,%g)-(%g,%g)", b, tt.x0, tt.y0, tt.x1, tt.y1)
			}
			if g.skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", g.skipped, tt.wantSkipped)
			}
		})
	}
}

func TestBuildPathEmpty(t *testing.T) {
	if g := buildPath(nil); !g.empty() {
		t.Error("nil commands should give an empty path")
	}
	g := buildPath([]document.PathCommand{cmd("M", 0, 0), cmd("L", 10, 20)})
	if cx, cy := g.center(); !near(cx, 5) || !near(cy, 10) {
		t.Errorf("center = (%g, %g)", cx, cy)
	}
}
