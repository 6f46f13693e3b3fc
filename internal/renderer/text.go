package renderer

import (
	"image"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"

	"github.com/ankek/terraform-provider-preview/internal/diag"
	"github.com/ankek/terraform-provider-preview/internal/document"
)

// textBlock is a laid out text node. All lengths are local units.
type textBlock struct {
	payload document.TextPayload
	lines   []string
	widths  []float64
	width   float64
	height  float64
	fill    color.NRGBA
	bg      *color.NRGBA
	src     *text.FontSource
}

// layoutText measures and wraps the text of p. A positive width wraps
// words onto new lines; otherwise the box grows to the longest line.
func layoutText(p document.TextPayload, width float64, src *text.FontSource) *textBlock {
	face := src.Face(p.FontSize)
	spacing := p.CharSpacing / 1000 * p.FontSize

	measure := func(s string) float64 {
		n := utf8.RuneCountInString(s)
		if n == 0 {
			return 0
		}
		return face.Advance(s) + spacing*float64(n-1)
	}

	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(p.Text, "\r\n", "\n"), "\n") {
		if width <= 0 {
			lines = append(lines, para)
			continue
		}
		lines = append(lines, wrapWords(para, width, measure)...)
	}

	b := &textBlock{payload: p, lines: lines, src: src}
	for _, l := range lines {
		w := measure(l)
		b.widths = append(b.widths, w)
		b.width = math.Max(b.width, w)
	}
	if width > 0 {
		b.width = width
	}
	b.height = p.FontSize * p.LineHeight * float64(len(lines))
	return b
}

// wrapWords breaks para greedily at spaces. A single word wider than width
// stays on its own line.
func wrapWords(para string, width float64, measure func(string) float64) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if measure(candidate) <= width {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}

// draw rasterizes the block at the device scale of m and blits it. The box
// is w x h local units centered on the local origin.
func (b *textBlock) draw(dc *gg.Context, m gg.Matrix, w, h float64) error {
	s := deviceScale(m)
	pw, ph, err := offscreenSize(w, h, s)
	if err != nil {
		return &diag.RasterizationError{Op: "text", Err: err}
	}
	if pw == 0 || ph == 0 {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	if b.bg != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(*b.bg), image.Point{}, draw.Src)
	}

	p := b.payload
	size := p.FontSize * s
	face := b.src.Face(size)
	metrics := face.Metrics()
	advance := size * p.LineHeight
	spacing := p.CharSpacing / 1000 * size

	for i, line := range b.lines {
		lineWidth := b.widths[i] * s
		var x float64
		switch p.TextAlign {
		case "center":
			x = (float64(pw) - lineWidth) / 2
		case "right":
			x = float64(pw) - lineWidth
		}
		top := float64(i) * advance
		baseline := top + (advance-(metrics.Ascent+metrics.Descent))/2 + metrics.Ascent

		if spacing == 0 {
			text.Draw(img, line, face, x, baseline, b.fill)
		} else {
			cx := x
			for _, r := range line {
				glyph := string(r)
				text.Draw(img, glyph, face, cx, baseline, b.fill)
				cx += face.Advance(glyph) + spacing
			}
		}

		if p.Underline && lineWidth > 0 {
			thickness := math.Max(size/15, 1)
			y := baseline + metrics.Descent/2
			r := image.Rect(int(x), int(y), int(math.Ceil(x+lineWidth)), int(math.Ceil(y+thickness)))
			draw.Draw(img, r, image.NewUniform(b.fill), image.Point{}, draw.Over)
		}
	}

	s2d := m.Multiply(gg.Translate(-w/2, -h/2)).Multiply(gg.Scale(w/float64(pw), h/float64(ph)))
	blit(dc, img, img.Bounds(), s2d)
	return nil
}
