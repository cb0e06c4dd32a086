package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// PNG rasterises the frame at Options.Scale pixels per world unit.
type PNG struct{}

func (PNG) Ext() string { return "png" }

// maxPixels bounds the image so a stray far-away element cannot exhaust
// memory.
const maxPixels = 64 << 20

func (PNG) Export(ctx context.Context, w io.Writer, els state.Elements, opts Options) error {
	opts = opts.withDefaults()
	frame, err := Frame(els, opts)
	if err != nil {
		return err
	}
	width := int(math.Ceil(frame.Width * opts.Scale))
	height := int(math.Ceil(frame.Height * opts.Scale))
	if width*height > maxPixels {
		return fmt.Errorf("png export: %dx%d pixels is too large", width, height)
	}
	fonts, err := loadFonts()
	if err != nil {
		return err
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(ink(background(opts.Theme), opts.Theme))
	dc.Clear()
	dc.Scale(opts.Scale, opts.Scale)
	dc.Translate(-frame.X1, -frame.Y1)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	r := &pngDrawer{dc: dc, opts: opts, fonts: fonts}
	for _, el := range els {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.element(el)
	}
	return dc.EncodePNG(w)
}

type fontSet struct {
	regular *truetype.Font
	mono    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	mono bool
	size float64
}

var (
	fontsOnce   sync.Once
	sharedFonts *fontSet
	fontsErr    error
)

func loadFonts() (*fontSet, error) {
	fontsOnce.Do(func() {
		regular, err := truetype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("failed to parse font: %w", err)
			return
		}
		mono, err := truetype.Parse(gomono.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("failed to parse font: %w", err)
			return
		}
		sharedFonts = &fontSet{regular: regular, mono: mono, faces: make(map[faceKey]font.Face)}
	})
	return sharedFonts, fontsErr
}

func (fs *fontSet) face(family string, size float64) font.Face {
	f := strings.ToLower(family)
	key := faceKey{mono: strings.Contains(f, "mono") || strings.Contains(f, "courier"), size: size}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if face, ok := fs.faces[key]; ok {
		return face
	}
	ttf := fs.regular
	if key.mono {
		ttf = fs.mono
	}
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	fs.faces[key] = face
	return face
}

type pngDrawer struct {
	dc    *gg.Context
	opts  Options
	fonts *fontSet
}

func (r *pngDrawer) stroke(c string, width float64, style state.StrokeStyle) {
	r.dc.SetColor(ink(c, r.opts.Theme))
	r.dc.SetLineWidth(width)
	if style == state.Dashed {
		r.dc.SetDash(dashOn, dashOff)
	} else {
		r.dc.SetDash()
	}
}

func (r *pngDrawer) element(el state.Element) {
	center, angle := rotation(el, r.opts.Measurer)
	r.dc.Push()
	defer r.dc.Pop()
	if angle != 0 {
		r.dc.RotateAbout(gg.Radians(angle), center.X, center.Y)
	}
	state.Match(el, state.Cases[struct{}]{
		Pen: func(e state.Pen) struct{} {
			r.stroke(e.Color, e.StrokeWidth, state.Solid)
			c := geom.Smooth(e.Points)
			r.dc.MoveTo(c.Start.X, c.Start.Y)
			for _, q := range c.Quads {
				r.dc.QuadraticTo(q.Ctrl.X, q.Ctrl.Y, q.To.X, q.To.Y)
			}
			r.dc.LineTo(c.End.X, c.End.Y)
			r.dc.Stroke()
			return struct{}{}
		},
		Shape: func(e state.Shape) struct{} {
			r.shape(e)
			r.label(e.Text, e.Color, labelAnchor(e))
			return struct{}{}
		},
		Line: func(e state.Line) struct{} {
			r.line(e)
			r.label(e.Text, e.Color, labelAnchor(e))
			return struct{}{}
		},
		Text: func(e state.Text) struct{} {
			r.text(e)
			return struct{}{}
		},
		Mermaid: func(e state.Mermaid) struct{} {
			r.mermaid(e)
			return struct{}{}
		},
	})
}

func (r *pngDrawer) shape(e state.Shape) {
	r.stroke(e.Color, e.StrokeWidth, e.StrokeStyle)
	b := geom.NewBounds(e.X1, e.Y1, e.X2, e.Y2)
	switch e.Tool {
	case state.ToolEllipse:
		c := b.Center()
		r.dc.DrawEllipse(c.X, c.Y, b.Width/2, b.Height/2)
	case state.ToolRoundedRectangle:
		r.dc.DrawRoundedRectangle(b.X1, b.Y1, b.Width, b.Height, roundedRadius)
	default:
		r.dc.DrawRectangle(b.X1, b.Y1, b.Width, b.Height)
	}
	r.dc.Stroke()
}

func (r *pngDrawer) line(e state.Line) {
	pts := linePoints(e)
	r.stroke(e.Color, e.StrokeWidth, e.StrokeStyle)
	r.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		r.dc.LineTo(p.X, p.Y)
	}
	r.dc.Stroke()
	if e.Tool == state.ToolArrow {
		head := geom.ArrowHead(pts[len(pts)-2], pts[len(pts)-1])
		r.dc.NewSubPath()
		r.dc.MoveTo(head[0].X, head[0].Y)
		r.dc.LineTo(head[1].X, head[1].Y)
		r.dc.LineTo(head[2].X, head[2].Y)
		r.dc.ClosePath()
		r.dc.Fill()
	}
}

func (r *pngDrawer) label(text, c string, mid geom.Point) {
	if text == "" {
		return
	}
	r.dc.SetColor(ink(c, r.opts.Theme))
	r.dc.SetFontFace(r.fonts.face("", labelFontSize))
	lines, y := labelLines(text, mid)
	for i, line := range lines {
		r.dc.DrawStringAnchored(line, mid.X, y+float64(i)*labelFontSize*geom.LineHeight, 0.5, 0.35)
	}
}

func (r *pngDrawer) text(e state.Text) {
	r.dc.SetColor(ink(e.Color, r.opts.Theme))
	r.dc.SetFontFace(r.fonts.face(e.FontFamily, e.FontSize))
	ax := 0.0
	switch e.Align {
	case state.AlignCenter:
		ax = 0.5
	case state.AlignRight:
		ax = 1
	}
	for i, line := range strings.Split(e.Text, "\n") {
		r.dc.DrawStringAnchored(line, e.X, e.Y+float64(i)*e.FontSize*geom.LineHeight, ax, 0.8)
	}
}

func (r *pngDrawer) mermaid(e state.Mermaid) {
	r.stroke("", 1, state.Dashed)
	r.dc.DrawRectangle(e.X, e.Y, e.Width, e.Height)
	r.dc.Stroke()
	r.dc.SetFontFace(r.fonts.face("mono", sourceFontSize))
	for i, line := range strings.Split(e.Code, "\n") {
		y := e.Y + DefaultPadding/2 + sourceFontSize + float64(i)*sourceFontSize*geom.LineHeight
		r.dc.DrawString(line, e.X+DefaultPadding/2, y)
	}
}
