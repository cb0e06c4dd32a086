// Package export writes a board, or the selected part of it, as a
// self-contained SVG, PDF or PNG document.
package export

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("nothing to export")

const (
	DefaultPadding = 20.0
	labelFontSize  = 16.0
	sourceFontSize = 12.0
	roundedRadius  = 10.0
	dashOn         = 8.0
	dashOff        = 4.0
)

// Options controls an export. Zero values pick the defaults.
type Options struct {
	Padding  float64
	Theme    state.Theme
	Measurer geom.TextMeasurer
	// Background fills the page with the theme background. PNG always
	// has one.
	Background bool
	// Scale multiplies the PNG resolution.
	Scale float64
	// Renderer draws diagrams into SVG output. Without one, or when it
	// fails, diagrams are exported as a frame holding their source.
	Renderer collab.Renderer
}

func (o Options) withDefaults() Options {
	if o.Padding <= 0 {
		o.Padding = DefaultPadding
	}
	if o.Theme == "" {
		o.Theme = state.Light
	}
	if o.Measurer == nil {
		o.Measurer = geom.MonoMeasurer{}
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	return o
}

// Exporter writes elements in one format.
type Exporter interface {
	Ext() string
	Export(ctx context.Context, w io.Writer, els state.Elements, opts Options) error
}

// New returns the exporter for format: svg, pdf or png.
func New(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "svg":
		return SVG{}, nil
	case "pdf":
		return PDF{}, nil
	case "png":
		return PNG{}, nil
	}
	return nil, fmt.Errorf("unsupported export format: %s", format)
}

// Subset returns the elements whose ids are listed, in paint order, or all
// of els when ids is empty.
func Subset(els state.Elements, ids []string) state.Elements {
	if len(ids) == 0 {
		return els
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return els.Filter(func(el state.Element) bool { return want[el.Meta().ID] })
}

// Frame is the padded world box an export covers.
func Frame(els state.Elements, opts Options) (geom.Bounds, error) {
	opts = opts.withDefaults()
	b, ok := state.BoundsOfAll(els, opts.Measurer)
	if !ok {
		return geom.Bounds{}, ErrEmpty
	}
	return b.Pad(opts.Padding), nil
}

func background(t state.Theme) string {
	if t == state.Dark {
		return "#09090b"
	}
	return "#ffffff"
}

// ParseColor reads #rgb and #rrggbb colours. Anything else is reported as
// not ok.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

// ink resolves c for t, falling back to the theme ink for colours that
// cannot be parsed.
func ink(c string, t state.Theme) color.RGBA {
	if rgba, ok := ParseColor(t.ResolveColor(c)); ok {
		return rgba
	}
	rgba, _ := ParseColor(t.DrawColor())
	return rgba
}

// labelLines positions the lines of a shape or line label centred on mid.
// It returns the baseline-independent centre y of the first line.
func labelLines(text string, mid geom.Point) ([]string, float64) {
	lines := strings.Split(text, "\n")
	lh := labelFontSize * geom.LineHeight
	total := float64(len(lines)) * lh
	return lines, mid.Y - total/2 + lh/2
}

func labelAnchor(el state.Element) geom.Point {
	return state.Match(el, state.Cases[geom.Point]{
		Pen:     func(state.Pen) geom.Point { return geom.Point{} },
		Shape:   func(e state.Shape) geom.Point { return geom.Pt((e.X1+e.X2)/2, (e.Y1+e.Y2)/2) },
		Line:    func(e state.Line) geom.Point { return geom.Pt((e.X1+e.X2)/2, (e.Y1+e.Y2)/2) },
		Text:    func(state.Text) geom.Point { return geom.Point{} },
		Mermaid: func(state.Mermaid) geom.Point { return geom.Point{} },
	})
}

// rotation returns the centre and angle to rotate el about.
func rotation(el state.Element, m geom.TextMeasurer) (geom.Point, float64) {
	return state.BoundsOf(el, m).Center(), el.Meta().Angle
}

func linePoints(e state.Line) []geom.Point {
	if len(e.Points) >= 2 {
		return e.Points
	}
	return []geom.Point{geom.Pt(e.X1, e.Y1), geom.Pt(e.X2, e.Y2)}
}
