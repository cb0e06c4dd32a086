package geom

import (
	"math"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// LineHeight is the multiple of the font size one text line occupies.
const LineHeight = 1.2

// Size is a measured width and height.
type Size struct {
	Width  float64
	Height float64
}

// TextMeasurer measures rendered text. Implementations must be safe for
// concurrent use.
type TextMeasurer interface {
	MeasureText(text string, fontSize float64, family string) Size
}

// FontMeasurer measures with the embedded Go fonts. Families mentioning
// mono or courier use Go Mono, everything else Go Regular.
type FontMeasurer struct {
	mu      sync.Mutex
	regular *truetype.Font
	mono    *truetype.Font
	faces   map[faceKey]font.Face
}

type faceKey struct {
	mono bool
	size float64
}

// NewFontMeasurer parses the embedded fonts.
func NewFontMeasurer() (*FontMeasurer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	mono, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	return &FontMeasurer{regular: regular, mono: mono, faces: make(map[faceKey]font.Face)}, nil
}

func (m *FontMeasurer) face(size float64, family string) font.Face {
	f := strings.ToLower(family)
	key := faceKey{mono: strings.Contains(f, "mono") || strings.Contains(f, "courier"), size: size}
	if face, ok := m.faces[key]; ok {
		return face
	}
	ttf := m.regular
	if key.mono {
		ttf = m.mono
	}
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	m.faces[key] = face
	return face
}

// MeasureText returns the widest line and lineCount * fontSize * LineHeight.
func (m *FontMeasurer) MeasureText(text string, fontSize float64, family string) Size {
	lines := strings.Split(text, "\n")
	m.mu.Lock()
	face := m.face(fontSize, family)
	width := 0.0
	for _, line := range lines {
		adv := font.MeasureString(face, line)
		width = math.Max(width, float64(adv)/64)
	}
	m.mu.Unlock()
	return Size{Width: width, Height: float64(len(lines)) * fontSize * LineHeight}
}

// MonoMeasurer gives every rune the same advance, as a fraction of the font
// size. Useful where real glyph metrics don't matter.
type MonoMeasurer struct {
	Advance float64
}

func (m MonoMeasurer) MeasureText(text string, fontSize float64, _ string) Size {
	adv := m.Advance
	if adv == 0 {
		adv = 0.6
	}
	lines := strings.Split(text, "\n")
	width := 0.0
	for _, line := range lines {
		width = math.Max(width, float64(len([]rune(line)))*fontSize*adv)
	}
	return Size{Width: width, Height: float64(len(lines)) * fontSize * LineHeight}
}
