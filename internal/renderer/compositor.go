package renderer

import (
	"image/color"
	"slices"
	"strings"

	"github.com/ankek/terraform-provider-preview/internal/diag"
	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/scene"
)

var white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Surface is a composed frame: a base fill plus drawables in paint order
type Surface struct {
	Width, Height int
	Base          color.NRGBA
	Drawables     []*Drawable
}

// Composite renders every node of g over the base fill of the frame. A
// node that cannot be rendered is left out and reported; it never aborts
// the frame.
func Composite(g *scene.Graph, frame document.Frame, bg *document.Background, fonts *Fonts) (*Surface, diag.Diagnostics) {
	var diags diag.Diagnostics

	base, err := baseColor(bg)
	if err != nil {
		diags.Add(nil, "background", err)
	}
	s := &Surface{Width: frame.Width, Height: frame.Height, Base: base}

	if fonts == nil {
		if fonts, err = NewFonts(); err != nil {
			diags = append(diags, diag.Diagnostic{Severity: diag.SeverityError, NodeType: "font", Err: err})
			return s, diags
		}
	}

	if g == nil {
		return s, diags
	}
	for _, n := range g.Nodes {
		d, err := render(n, fonts, &diags)
		if err != nil {
			diags.Add(n.Path, string(n.Type()), err)
			continue
		}
		s.Drawables = append(s.Drawables, d)
	}
	return s, diags
}

// Bindings returns the sorted merge-field keys of every dynamic
// placeholder on the surface, nested groups included
func (s *Surface) Bindings() []string {
	var keys []string
	var walk func(ds []*Drawable)
	walk = func(ds []*Drawable) {
		for _, d := range ds {
			keys = append(keys, d.Keys...)
			for _, kv := range d.KeyValues {
				keys = append(keys, kv.Key)
			}
			walk(d.Children())
		}
	}
	walk(s.Drawables)
	slices.Sort(keys)
	return slices.Compact(keys)
}

// baseColor resolves the frame fill. Anything other than a valid color
// background falls back to white.
func baseColor(bg *document.Background) (color.NRGBA, error) {
	if bg == nil || (bg.Type == "" && bg.Value == "") {
		return white, nil
	}
	if !strings.EqualFold(strings.TrimSpace(bg.Type), "color") {
		return white, &diag.UnsupportedTypeError{Kind: "background", Type: bg.Type}
	}
	c, err := parseColor(bg.Value)
	if err != nil {
		return white, &diag.ValidationError{Field: "background.value", Reason: "invalid color", Err: err}
	}
	return c, nil
}
