package renderer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// FontStyle selects one face of a family
type FontStyle int

const (
	StyleRegular FontStyle = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
)

// ParseFontStyle maps a config key such as "bold_italic" to a FontStyle
func ParseFontStyle(s string) (FontStyle, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "regular", "normal":
		return StyleRegular, nil
	case "bold":
		return StyleBold, nil
	case "italic":
		return StyleItalic, nil
	case "bold_italic", "bolditalic":
		return StyleBoldItalic, nil
	}
	return StyleRegular, fmt.Errorf("unknown font style %q", s)
}

func styleFor(weight int, italic bool) FontStyle {
	bold := weight >= 600
	switch {
	case bold && italic:
		return StyleBoldItalic
	case bold:
		return StyleBold
	case italic:
		return StyleItalic
	}
	return StyleRegular
}

type fontFamily [4]*text.FontSource

// Fonts maps family names to parsed font sources. Lookups are safe for
// concurrent use; unknown families fall back to the Go fonts.
type Fonts struct {
	mu       sync.RWMutex
	families map[string]*fontFamily
	fallback *fontFamily
}

var (
	goFontsOnce sync.Once
	goFonts     *fontFamily
	goFontsErr  error
)

func loadGoFonts() (*fontFamily, error) {
	goFontsOnce.Do(func() {
		fam := &fontFamily{}
		for style, data := range map[FontStyle][]byte{
			StyleRegular:    goregular.TTF,
			StyleBold:       gobold.TTF,
			StyleItalic:     goitalic.TTF,
			StyleBoldItalic: gobolditalic.TTF,
		} {
			src, err := text.NewFontSource(data)
			if err != nil {
				goFontsErr = fmt.Errorf("failed to load built-in font: %w", err)
				return
			}
			fam[style] = src
		}
		goFonts = fam
	})
	return goFonts, goFontsErr
}

// NewFonts returns a registry holding only the built-in Go fonts
func NewFonts() (*Fonts, error) {
	fallback, err := loadGoFonts()
	if err != nil {
		return nil, err
	}
	return &Fonts{
		families: make(map[string]*fontFamily),
		fallback: fallback,
	}, nil
}

// Register adds a TrueType or OpenType face for family
func (f *Fonts) Register(family string, style FontStyle, data []byte) error {
	src, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("failed to parse font %q: %w", family, err)
	}

	key := strings.ToLower(strings.TrimSpace(family))
	f.mu.Lock()
	defer f.mu.Unlock()
	fam, ok := f.families[key]
	if !ok {
		fam = &fontFamily{}
		f.families[key] = fam
	}
	fam[style] = src
	return nil
}

// RegisterFile reads a font file and registers it for family
func (f *Fonts) RegisterFile(family string, style FontStyle, path string) error {
	data, err := readFile(path)
	if err != nil {
		return fmt.Errorf("failed to read font file: %w", err)
	}
	return f.Register(family, style, data)
}

// Families lists the registered family names
func (f *Fonts) Families() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.families))
	for name := range f.families {
		names = append(names, name)
	}
	return names
}

// source picks the best face for a family, weight and style. A registered
// family never falls back to the Go fonts: a missing style degrades to the
// closest face the family has.
func (f *Fonts) source(family string, weight int, italic bool) *text.FontSource {
	style := styleFor(weight, italic)

	f.mu.RLock()
	fam := f.families[strings.ToLower(strings.TrimSpace(family))]
	f.mu.RUnlock()

	if fam != nil {
		if src := fam.closest(style); src != nil {
			return src
		}
	}
	if src := f.fallback[style]; src != nil {
		return src
	}
	return f.fallback[StyleRegular]
}

// styleOrder lists, per requested style, the faces to try in order
var styleOrder = [4][4]FontStyle{
	StyleRegular:    {StyleRegular, StyleBold, StyleItalic, StyleBoldItalic},
	StyleBold:       {StyleBold, StyleRegular, StyleBoldItalic, StyleItalic},
	StyleItalic:     {StyleItalic, StyleRegular, StyleBoldItalic, StyleBold},
	StyleBoldItalic: {StyleBoldItalic, StyleBold, StyleItalic, StyleRegular},
}

func (fam *fontFamily) closest(style FontStyle) *text.FontSource {
	for _, s := range styleOrder[style] {
		if src := fam[s]; src != nil {
			return src
		}
	}
	return nil
}
