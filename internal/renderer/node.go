package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/ankek/terraform-provider-preview/internal/diag"
	"github.com/ankek/terraform-provider-preview/internal/document"
	"github.com/ankek/terraform-provider-preview/internal/scene"
)

var (
	errOffscreenTooLarge = errors.New("offscreen bitmap too large")
	errMissingAsset      = errors.New("node has no resolved asset")
)

var (
	black = color.NRGBA{A: 0xff}
	// placeholder colors for unbound merge fields
	dynamicImageFill    = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x66}
	dynamicImageOutline = color.NRGBA{R: 0x5a, G: 0x5a, B: 0x5a, A: 0xcc}
)

// Drawable is a rendered node ready to be painted
type Drawable struct {
	Path diag.Path
	Type document.ObjectType
	// Transform maps the node's local frame into its parent's frame
	Transform gg.Matrix
	Opacity   float64
	// Width and Height of the node box in local units
	Width, Height float64
	// Keys and KeyValues are the merge-field bindings of dynamic
	// placeholders, left unresolved in the preview
	Keys      []string
	KeyValues []document.KeyValue

	prim primitive
}

// Children returns the members of a group drawable
func (d *Drawable) Children() []*Drawable {
	if g, ok := d.prim.(*groupPrimitive); ok {
		return g.children
	}
	return nil
}

// primitive paints node content. m maps the local frame to device pixels.
type primitive interface {
	draw(dc *gg.Context, m gg.Matrix) error
}

// paint composes the drawable transform with parent and draws it, inside an
// isolated layer when partially transparent
func (d *Drawable) paint(dc *gg.Context, parent gg.Matrix) error {
	if d.Opacity <= 0 || d.prim == nil {
		return nil
	}
	m := parent.Multiply(d.Transform)
	if d.Opacity < 1 {
		dc.PushLayer(gg.BlendNormal, d.Opacity)
		defer dc.PopLayer()
	}
	return d.prim.draw(dc, m)
}

// RenderNode converts one scene node into a drawable. Groups are rendered
// recursively; when some members fail the group is still returned together
// with an error describing the failures.
func RenderNode(n *scene.Node, fonts *Fonts) (*Drawable, error) {
	var diags diag.Diagnostics
	d, err := render(n, fonts, &diags)
	if err != nil {
		return nil, err
	}
	return d, diags.ErrorOrNil()
}

func render(n *scene.Node, fonts *Fonts, diags *diag.Diagnostics) (*Drawable, error) {
	props := n.Props
	d := &Drawable{Path: n.Path, Type: props.Type, Opacity: props.Opacity}

	switch p := props.Payload.(type) {
	case document.TextPayload:
		renderText(d, props, p, fonts)
	case document.ImagePayload:
		if n.Asset == nil || n.Asset.Image == nil {
			return nil, errMissingAsset
		}
		renderImage(d, props, p, n.Asset.Image)
	case document.DynamicImagePayload:
		w, h := props.Width, props.Height
		d.Width, d.Height = w, h
		d.Keys, d.KeyValues = p.Keys, p.KeyValues
		d.Transform = objectMatrix(props, w, h)
		d.prim = &rectPrimitive{w: w, h: h, fill: dynamicImageFill, outline: &dynamicImageOutline}
	case document.VectorPayload:
		if n.Asset == nil || n.Asset.Icon == nil {
			return nil, errMissingAsset
		}
		renderVector(d, props, n.Asset.Icon, n.Asset.Width, n.Asset.Height)
	case document.PathPayload:
		geom := buildPath(p.Commands)
		if geom.skipped > 0 {
			diags.Add(n.Path, string(props.Type), &diag.ValidationError{
				Field:  "path",
				Reason: fmt.Sprintf("%d malformed or unsupported commands skipped", geom.skipped),
			})
		}
		w, h := geom.size()
		if geom.empty() {
			w, h = 0, 0
		}
		d.Width, d.Height = w, h
		d.Transform = objectMatrix(props, w, h)
		if !geom.empty() {
			d.prim = &pathPrimitive{geom: geom, fill: colorOr(props.Fill, black)}
		}
	case document.BackgroundPayload:
		d.Transform = gg.Identity()
		d.prim = &framePrimitive{fill: colorOr(props.Fill, black)}
	case document.GroupPayload:
		g := &groupPrimitive{}
		for _, child := range n.Children {
			cd, err := render(child, fonts, diags)
			if err != nil {
				diags.Add(child.Path, string(child.Type()), err)
				continue
			}
			g.children = append(g.children, cd)
		}
		d.Width, d.Height = props.Width, props.Height
		d.Transform = objectMatrix(props, props.Width, props.Height)
		d.prim = g
	default:
		return nil, &diag.UnsupportedTypeError{Type: string(props.Type)}
	}
	return d, nil
}

func renderText(d *Drawable, props document.Normalized, p document.TextPayload, fonts *Fonts) {
	src := fonts.source(p.FontFamily, p.FontWeight, p.FontStyle == "italic")

	var wrap float64
	if props.HasWidth {
		wrap = props.Width
	}
	block := layoutText(p, wrap, src)
	block.fill = colorOr(props.Fill, black)
	if p.Dynamic {
		d.Keys, d.KeyValues = p.Keys, p.KeyValues
		block.fill = colorOr(document.DynamicTextFill, black)
		bg := colorOr(document.DynamicTextBgColor, black)
		block.bg = &bg
	}

	w := block.width
	h := math.Max(props.Height, block.height)
	d.Width, d.Height = w, h
	d.Transform = objectMatrix(props, w, h)
	d.prim = &textPrimitive{block: block, w: w, h: h}
}

func renderImage(d *Drawable, props document.Normalized, p document.ImagePayload, img image.Image) {
	b := img.Bounds()
	w, h := props.Width, props.Height
	if !props.HasWidth {
		w = math.Max(float64(b.Dx())-p.CropX, 0)
	}
	if !props.HasHeight {
		h = math.Max(float64(b.Dy())-p.CropY, 0)
	}
	d.Width, d.Height = w, h
	d.Transform = objectMatrix(props, w, h)

	ox := float64(b.Min.X) + p.CropX
	oy := float64(b.Min.Y) + p.CropY
	sr := image.Rect(int(math.Floor(ox)), int(math.Floor(oy)), int(math.Ceil(ox+w)), int(math.Ceil(oy+h)))
	d.prim = &imagePrimitive{img: img, sr: sr, ox: ox, oy: oy, w: w, h: h}
}

func renderVector(d *Drawable, props document.Normalized, icon *oksvg.SvgIcon, vw, vh float64) {
	w, h := props.Width, props.Height
	if !props.HasWidth || !props.HasHeight {
		w, h = vw, vh
	}
	d.Width, d.Height = w, h
	d.Transform = objectMatrix(props, w, h)
	d.prim = &vectorPrimitive{icon: icon, w: w, h: h}
}

type pathPrimitive struct {
	geom *pathGeometry
	fill color.NRGBA
}

func (p *pathPrimitive) draw(dc *gg.Context, m gg.Matrix) error {
	if p.fill.A == 0 {
		return nil
	}
	cx, cy := p.geom.center()
	dc.SetTransform(m.Multiply(gg.Translate(-cx, -cy)))
	defer dc.SetTransform(gg.Identity())

	p.geom.appendTo(dc)
	dc.SetColor(p.fill)
	dc.SetFillRule(gg.FillRuleNonZero)
	if err := dc.Fill(); err != nil {
		return &diag.RasterizationError{Op: "fill path", Err: err}
	}
	return nil
}

// rectPrimitive fills the node box and optionally outlines it
type rectPrimitive struct {
	w, h    float64
	fill    color.NRGBA
	outline *color.NRGBA
}

func (r *rectPrimitive) draw(dc *gg.Context, m gg.Matrix) error {
	if r.w <= 0 || r.h <= 0 {
		return nil
	}
	dc.SetTransform(m)
	defer dc.SetTransform(gg.Identity())

	dc.DrawRectangle(-r.w/2, -r.h/2, r.w, r.h)
	dc.SetColor(r.fill)
	if err := dc.Fill(); err != nil {
		return &diag.RasterizationError{Op: "fill rectangle", Err: err}
	}

	if r.outline != nil {
		dc.DrawRectangle(-r.w/2, -r.h/2, r.w, r.h)
		dc.SetColor(*r.outline)
		dc.SetLineWidth(math.Max(math.Min(r.w, r.h)/100, 1))
		if err := dc.Stroke(); err != nil {
			return &diag.RasterizationError{Op: "stroke rectangle", Err: err}
		}
	}
	return nil
}

// framePrimitive covers the whole canvas
type framePrimitive struct {
	fill color.NRGBA
}

func (f *framePrimitive) draw(dc *gg.Context, _ gg.Matrix) error {
	dc.SetTransform(gg.Identity())
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
	dc.SetColor(f.fill)
	if err := dc.Fill(); err != nil {
		return &diag.RasterizationError{Op: "fill background", Err: err}
	}
	return nil
}

type textPrimitive struct {
	block *textBlock
	w, h  float64
}

func (t *textPrimitive) draw(dc *gg.Context, m gg.Matrix) error {
	return t.block.draw(dc, m, t.w, t.h)
}

type imagePrimitive struct {
	img    image.Image
	sr     image.Rectangle
	ox, oy float64
	w, h   float64
}

func (p *imagePrimitive) draw(dc *gg.Context, m gg.Matrix) error {
	if p.w <= 0 || p.h <= 0 {
		return nil
	}
	s2d := m.Multiply(gg.Translate(-p.w/2-p.ox, -p.h/2-p.oy))
	blit(dc, p.img, p.sr, s2d)
	return nil
}

type vectorPrimitive struct {
	icon *oksvg.SvgIcon
	w, h float64
}

func (v *vectorPrimitive) draw(dc *gg.Context, m gg.Matrix) error {
	pw, ph, err := offscreenSize(v.w, v.h, deviceScale(m))
	if err != nil {
		return &diag.RasterizationError{Op: "vector", Err: err}
	}
	if pw == 0 || ph == 0 {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	v.icon.SetTarget(0, 0, float64(pw), float64(ph))
	scanner := rasterx.NewScannerGV(pw, ph, img, img.Bounds())
	v.icon.Draw(rasterx.NewDasher(pw, ph, scanner), 1.0)

	s2d := m.Multiply(gg.Translate(-v.w/2, -v.h/2)).Multiply(gg.Scale(v.w/float64(pw), v.h/float64(ph)))
	blit(dc, img, img.Bounds(), s2d)
	return nil
}

// groupPrimitive paints its members in order under the group transform
type groupPrimitive struct {
	children []*Drawable
}

func (g *groupPrimitive) draw(dc *gg.Context, m gg.Matrix) error {
	for _, c := range g.children {
		if err := c.paint(dc, m); err != nil {
			return err
		}
	}
	return nil
}
