package renderer

import (
	"math"
	"strings"

	"github.com/gogpu/gg"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"github.com/ankek/terraform-provider-preview/internal/document"
)

// pathGeometry is a literal path resolved to absolute coordinates, with
// quadratic segments raised to cubics.
type pathGeometry struct {
	data   *path.Data
	bounds rect.Rect
	// skipped counts malformed or unsupported commands
	skipped int
}

// argCount is the number of coordinates consumed per repetition of each
// supported command
var argCount = map[byte]int{
	'M': 2, 'L': 2, 'H': 1, 'V': 1, 'C': 6, 'S': 4, 'Q': 4, 'T': 2, 'Z': 0,
}

// buildPath resolves relative, shorthand and smooth commands. Commands with
// the wrong number of arguments are skipped.
func buildPath(cmds []document.PathCommand) *pathGeometry {
	g := &pathGeometry{data: &path.Data{}}
	b := newBoundsTracker()

	var (
		cur, start  vec.Vec2
		lastCtrl    vec.Vec2 // second control point of the previous cubic
		lastQuad    vec.Vec2 // control point of the previous quadratic
		prev        byte
		haveCurrent bool
	)

	for _, c := range cmds {
		if len(c.Op) != 1 {
			g.skipped++
			continue
		}
		op := c.Op[0]
		relative := op >= 'a' && op <= 'z'
		upper := strings.ToUpper(c.Op)[0]

		n, ok := argCount[upper]
		if !ok || (n == 0 && len(c.Args) != 0) || (n > 0 && (len(c.Args) == 0 || len(c.Args)%n != 0)) {
			g.skipped++
			continue
		}
		if upper != 'M' && !haveCurrent {
			g.skipped++
			continue
		}

		abs := func(x, y float64) vec.Vec2 {
			if relative {
				return vec.Vec2{X: cur.X + x, Y: cur.Y + y}
			}
			return vec.Vec2{X: x, Y: y}
		}

		if upper == 'Z' {
			g.data.Close()
			cur = start
			prev = 'Z'
			continue
		}

		for i := 0; i < len(c.Args); i += n {
			a := c.Args[i : i+n]
			switch upper {
			case 'M':
				p := abs(a[0], a[1])
				if i == 0 {
					g.data.MoveTo(p)
					start = p
					haveCurrent = true
				} else {
					// extra coordinate pairs are implicit line-tos
					g.data.LineTo(p)
				}
				b.add(p)
				cur = p
			case 'L', 'H', 'V':
				var p vec.Vec2
				switch upper {
				case 'L':
					p = abs(a[0], a[1])
				case 'H':
					p = vec.Vec2{X: a[0], Y: cur.Y}
					if relative {
						p.X += cur.X
					}
				case 'V':
					p = vec.Vec2{X: cur.X, Y: a[0]}
					if relative {
						p.Y += cur.Y
					}
				}
				g.data.LineTo(p)
				b.add(p)
				cur = p
			case 'C', 'S':
				var c1, c2, p vec.Vec2
				if upper == 'C' {
					c1, c2, p = abs(a[0], a[1]), abs(a[2], a[3]), abs(a[4], a[5])
				} else {
					c1 = cur
					if prev == 'C' || prev == 'S' {
						c1 = reflect(lastCtrl, cur)
					}
					c2, p = abs(a[0], a[1]), abs(a[2], a[3])
				}
				g.data.CubeTo(c1, c2, p)
				b.addCubic(cur, c1, c2, p)
				lastCtrl, cur = c2, p
			case 'Q', 'T':
				var q, p vec.Vec2
				if upper == 'Q' {
					q, p = abs(a[0], a[1]), abs(a[2], a[3])
				} else {
					q = cur
					if prev == 'Q' || prev == 'T' {
						q = reflect(lastQuad, cur)
					}
					p = abs(a[0], a[1])
				}
				c1, c2 := quadToCubic(cur, q, p)
				g.data.CubeTo(c1, c2, p)
				b.addCubic(cur, c1, c2, p)
				lastQuad, cur = q, p
			}
			prev = upper
		}
	}

	g.bounds = b.rect()
	return g
}

// empty reports whether the path encloses nothing drawable
func (g *pathGeometry) empty() bool {
	return len(g.data.Cmds) == 0 || math.IsInf(g.bounds.LLx, 0)
}

// width and height of the path bounding box
func (g *pathGeometry) size() (float64, float64) {
	return g.bounds.URx - g.bounds.LLx, g.bounds.URy - g.bounds.LLy
}

// center of the path bounding box
func (g *pathGeometry) center() (float64, float64) {
	return (g.bounds.LLx + g.bounds.URx) / 2, (g.bounds.LLy + g.bounds.URy) / 2
}

// appendTo replays the path onto the current path of dc
func (g *pathGeometry) appendTo(dc *gg.Context) {
	for cmd, pts := range g.data.Iter() {
		switch cmd {
		case path.CmdMoveTo:
			dc.MoveTo(pts[0].X, pts[0].Y)
		case path.CmdLineTo:
			dc.LineTo(pts[0].X, pts[0].Y)
		case path.CmdQuadTo:
			dc.QuadraticTo(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y)
		case path.CmdCubeTo:
			dc.CubicTo(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, pts[2].X, pts[2].Y)
		case path.CmdClose:
			dc.ClosePath()
		}
	}
}

func reflect(ctrl, about vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: 2*about.X - ctrl.X, Y: 2*about.Y - ctrl.Y}
}

func quadToCubic(p0, q, p1 vec.Vec2) (vec.Vec2, vec.Vec2) {
	return vec.Vec2{X: p0.X + 2.0/3.0*(q.X-p0.X), Y: p0.Y + 2.0/3.0*(q.Y-p0.Y)},
		vec.Vec2{X: p1.X + 2.0/3.0*(q.X-p1.X), Y: p1.Y + 2.0/3.0*(q.Y-p1.Y)}
}

// boundsTracker accumulates the exact bounding box of lines and cubics
type boundsTracker struct {
	minX, minY, maxX, maxY float64
}

func newBoundsTracker() *boundsTracker {
	return &boundsTracker{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
}

func (b *boundsTracker) add(p vec.Vec2) {
	b.minX, b.maxX = math.Min(b.minX, p.X), math.Max(b.maxX, p.X)
	b.minY, b.maxY = math.Min(b.minY, p.Y), math.Max(b.maxY, p.Y)
}

// addCubic adds the end point and every interior extremum of the curve
func (b *boundsTracker) addCubic(p0, p1, p2, p3 vec.Vec2) {
	b.add(p3)
	for _, t := range cubicExtrema(p0.X, p1.X, p2.X, p3.X) {
		b.add(cubicAt(p0, p1, p2, p3, t))
	}
	for _, t := range cubicExtrema(p0.Y, p1.Y, p2.Y, p3.Y) {
		b.add(cubicAt(p0, p1, p2, p3, t))
	}
}

func (b *boundsTracker) rect() rect.Rect {
	return rect.Rect{LLx: b.minX, LLy: b.minY, URx: b.maxX, URy: b.maxY}
}

// cubicExtrema returns the parameters in (0, 1) where the derivative of a
// one dimensional cubic Bezier vanishes.
func cubicExtrema(p0, p1, p2, p3 float64) []float64 {
	a := -p0 + 3*p1 - 3*p2 + p3
	b := 2 * (p0 - 2*p1 + p2)
	c := p1 - p0

	var roots []float64
	const eps = 1e-12
	if math.Abs(a) < eps {
		if math.Abs(b) > eps {
			roots = append(roots, -c/b)
		}
	} else {
		disc := b*b - 4*a*c
		if disc >= 0 {
			sq := math.Sqrt(disc)
			roots = append(roots, (-b+sq)/(2*a), (-b-sq)/(2*a))
		}
	}

	out := roots[:0]
	for _, t := range roots {
		if t > 0 && t < 1 {
			out = append(out, t)
		}
	}
	return out
}

func cubicAt(p0, p1, p2, p3 vec.Vec2, t float64) vec.Vec2 {
	mt := 1 - t
	a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
	return vec.Vec2{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}
