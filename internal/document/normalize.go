package document

import (
	"strconv"
	"strings"
)

// Defaults applied by Normalize
const (
	DefaultFill        = "#000000"
	DefaultText        = "Default Text"
	DefaultFontSize    = 40.0
	DefaultLineHeight  = 1.16
	DefaultFontWeight  = 400
	DefaultTextAlign   = "left"
	DefaultFontFamily  = ""
	DynamicTextFill    = "#2c3e50"
	DynamicTextBgColor = "#ecf0f1"
)

// Normalized is a fully populated, read-only view of one node. Every
// default has been applied; downstream code never inspects raw attributes.
type Normalized struct {
	Type ObjectType

	Left, Top     float64
	Width, Height float64
	// HasWidth and HasHeight are false when the node declared no positive size
	HasWidth, HasHeight bool

	ScaleX, ScaleY float64
	Angle          float64 // degrees, clockwise
	Opacity        float64
	FlipX, FlipY   bool
	SkewX, SkewY   float64 // degrees

	// OriginX and OriginY locate the anchor point (Left, Top) as a fraction
	// of the node box: 0 is left/top, 0.5 center, 1 right/bottom.
	OriginX, OriginY float64

	Fill string

	// Payload holds the variant specific data, nil for unknown types
	Payload Payload
}

// Payload is the variant specific part of a normalized node
type Payload interface {
	payload()
}

// KeyValue is one merge-field binding carried by dynamic nodes
type KeyValue struct {
	Key   string
	Value string
}

// TextPayload is carried by StaticText and DynamicText nodes
type TextPayload struct {
	Text        string
	TextAlign   string
	FontFamily  string
	FontSize    float64
	FontWeight  int
	FontStyle   string
	CharSpacing float64 // thousandths of an em
	LineHeight  float64 // multiple of the font size
	Underline   bool

	// Dynamic marks an unbound merge field
	Dynamic   bool
	Keys      []string
	KeyValues []KeyValue
}

// ImagePayload is carried by StaticImage nodes
type ImagePayload struct {
	Src          string
	CropX, CropY float64
}

// DynamicImagePayload is carried by DynamicImage nodes
type DynamicImagePayload struct {
	Keys      []string
	KeyValues []KeyValue
}

// VectorPayload is carried by StaticVector nodes
type VectorPayload struct {
	Src string
}

// PathCommand is one literal path instruction such as ["C", x1, y1, x2, y2, x, y]
type PathCommand struct {
	Op   string
	Args []float64
}

// PathPayload is carried by StaticPath nodes
type PathPayload struct {
	Commands []PathCommand
}

// BackgroundPayload is carried by Background nodes; the fill is the common one
type BackgroundPayload struct{}

// GroupPayload is carried by Group nodes; children are normalized separately
type GroupPayload struct {
	Children int
}

func (TextPayload) payload()         {}
func (ImagePayload) payload()        {}
func (DynamicImagePayload) payload() {}
func (VectorPayload) payload()       {}
func (PathPayload) payload()         {}
func (BackgroundPayload) payload()   {}
func (GroupPayload) payload()        {}

// Normalize applies every default to a raw node. It never fails: absent or
// malformed values fall back to their defaults.
func Normalize(n *Node) Normalized {
	if n == nil {
		n = &Node{}
	}

	// geometry prefers top-level fields, style and payload prefer metadata
	geom := merge(n.Metadata, n.Attributes)
	style := merge(n.Attributes, n.Metadata)

	out := Normalized{
		Type:    n.Type,
		ScaleX:  1,
		ScaleY:  1,
		Opacity: 1,
		Fill:    DefaultFill,
	}

	out.Left, _ = geom.Float("left")
	out.Top, _ = geom.Float("top")
	if w, ok := geom.Float("width"); ok && w > 0 {
		out.Width, out.HasWidth = w, true
	}
	if h, ok := geom.Float("height"); ok && h > 0 {
		out.Height, out.HasHeight = h, true
	}
	if s, ok := geom.Float("scaleX"); ok && s != 0 {
		out.ScaleX = s
	}
	if s, ok := geom.Float("scaleY"); ok && s != 0 {
		out.ScaleY = s
	}
	if o, ok := geom.Float("opacity"); ok {
		out.Opacity = clamp(o, 0, 1)
	}
	out.FlipX, _ = geom.Bool("flipX")
	out.FlipY, _ = geom.Bool("flipY")
	out.SkewX, _ = geom.Float("skewX")
	out.SkewY, _ = geom.Float("skewY")

	out.Angle, _ = style.Float("angle")
	if fill, ok := style.String("fill"); ok && strings.TrimSpace(fill) != "" {
		out.Fill = strings.TrimSpace(fill)
	}
	out.OriginX = originFraction(style["originX"], map[string]float64{"left": 0, "center": 0.5, "right": 1})
	out.OriginY = originFraction(style["originY"], map[string]float64{"top": 0, "center": 0.5, "bottom": 1})

	switch n.Type {
	case TypeStaticText:
		out.Payload = normalizeText(style, false)
	case TypeDynamicText:
		out.Payload = normalizeText(style, true)
	case TypeStaticImage:
		p := ImagePayload{}
		p.Src, _ = style.String("src")
		p.CropX, _ = style.Float("cropX")
		p.CropY, _ = style.Float("cropY")
		p.CropX, p.CropY = max(p.CropX, 0), max(p.CropY, 0)
		out.Payload = p
	case TypeDynamicImage:
		keys, _ := style.Strings("keys")
		out.Payload = DynamicImagePayload{Keys: keys, KeyValues: keyValues(style)}
	case TypeStaticVector:
		p := VectorPayload{}
		p.Src, _ = style.String("src")
		out.Payload = p
	case TypeStaticPath:
		out.Payload = PathPayload{Commands: pathCommands(style)}
	case TypeBackground:
		out.Payload = BackgroundPayload{}
	case TypeGroup:
		out.Payload = GroupPayload{Children: len(n.Objects)}
	}

	return out
}

func normalizeText(attrs Attributes, dynamic bool) TextPayload {
	p := TextPayload{
		Text:       DefaultText,
		TextAlign:  DefaultTextAlign,
		FontFamily: DefaultFontFamily,
		FontSize:   DefaultFontSize,
		FontWeight: DefaultFontWeight,
		FontStyle:  "normal",
		LineHeight: DefaultLineHeight,
		Dynamic:    dynamic,
	}

	if text, ok := attrs.String("text"); ok && text != "" {
		p.Text = text
	}
	if align, ok := attrs.String("textAlign"); ok {
		switch a := strings.ToLower(align); a {
		case "left", "center", "right", "justify":
			p.TextAlign = a
		case "justify-left":
			p.TextAlign = "justify"
		}
	}
	if family, ok := attrs.String("fontFamily"); ok {
		p.FontFamily = strings.TrimSpace(family)
	}
	if size, ok := attrs.Float("fontSize"); ok && size > 0 {
		p.FontSize = size
	}
	p.FontWeight = fontWeight(attrs["fontWeight"])
	if style, ok := attrs.String("fontStyle"); ok && strings.EqualFold(style, "italic") {
		p.FontStyle = "italic"
	}
	p.CharSpacing, _ = attrs.Float("charSpacing")
	// older editor builds wrote the key in lower case
	for _, key := range []string{"lineHeight", "lineheight"} {
		if lh, ok := attrs.Float(key); ok && lh > 0 {
			p.LineHeight = lh
			break
		}
	}
	p.Underline, _ = attrs.Bool("underline")

	if dynamic {
		p.Keys, _ = attrs.Strings("keys")
		p.KeyValues = keyValues(attrs)
	}
	return p
}

func fontWeight(v interface{}) int {
	switch w := v.(type) {
	case float64:
		if w >= 100 && w <= 1000 {
			return int(w)
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(w)) {
		case "bold", "bolder":
			return 700
		case "lighter":
			return 300
		case "normal", "":
			return DefaultFontWeight
		}
		if n, err := strconv.Atoi(strings.TrimSpace(w)); err == nil && n >= 100 && n <= 1000 {
			return n
		}
	}
	return DefaultFontWeight
}

func keyValues(attrs Attributes) []KeyValue {
	list, ok := attrs.List("keyValues")
	if !ok {
		return nil
	}
	out := make([]KeyValue, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		kv := Attributes(m)
		key, _ := kv.String("key")
		value, _ := kv.String("value")
		if key == "" {
			continue
		}
		out = append(out, KeyValue{Key: key, Value: value})
	}
	return out
}

// pathCommands reads the value list, dropping entries that are not a list
// starting with a command letter followed by numbers.
func pathCommands(attrs Attributes) []PathCommand {
	list, ok := attrs.List("value")
	if !ok {
		return nil
	}

	cmds := make([]PathCommand, 0, len(list))
	for _, entry := range list {
		parts, ok := entry.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		op, ok := parts[0].(string)
		if !ok || op == "" {
			continue
		}

		args := make([]float64, 0, len(parts)-1)
		valid := true
		for _, p := range parts[1:] {
			f, err := toFloat(p)
			if err != nil {
				valid = false
				break
			}
			args = append(args, f)
		}
		if !valid {
			continue
		}
		cmds = append(cmds, PathCommand{Op: op, Args: args})
	}
	return cmds
}

func originFraction(v interface{}, names map[string]float64) float64 {
	switch o := v.(type) {
	case string:
		if f, ok := names[strings.ToLower(strings.TrimSpace(o))]; ok {
			return f
		}
		if f, err := strconv.ParseFloat(o, 64); err == nil {
			return f
		}
	case float64:
		return o
	}
	return 0
}

// merge returns a new map with the entries of base overlaid by top
func merge(base, top Attributes) Attributes {
	out := make(Attributes, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
