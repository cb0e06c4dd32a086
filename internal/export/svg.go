package export

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// SVG writes a standalone SVG document whose viewBox is the padded frame.
type SVG struct{}

func (SVG) Ext() string { return "svg" }

var svgHeader = `<svg width="%s" height="%s" viewBox="%s %s %s %s" version="1.1" xmlns="http://www.w3.org/2000/svg">`

func (SVG) Export(ctx context.Context, w io.Writer, els state.Elements, opts Options) error {
	opts = opts.withDefaults()
	frame, err := Frame(els, opts)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	sw := &svgWriter{w: bw, ctx: ctx, opts: opts}
	sw.printf(svgHeader, f(frame.Width), f(frame.Height), f(frame.X1), f(frame.Y1), f(frame.Width), f(frame.Height))
	sw.printf("\n")
	if opts.Background {
		sw.printf(`<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`+"\n",
			f(frame.X1), f(frame.Y1), f(frame.Width), f(frame.Height), background(opts.Theme))
	}
	for _, el := range els {
		if err := ctx.Err(); err != nil {
			return err
		}
		sw.element(el)
	}
	sw.printf("</svg>\n")
	if sw.err != nil {
		return sw.err
	}
	return bw.Flush()
}

type svgWriter struct {
	w    *bufio.Writer
	ctx  context.Context
	opts Options
	err  error
}

func (s *svgWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func (s *svgWriter) color(c string) string {
	return escape(s.opts.Theme.ResolveColor(c))
}

func (s *svgWriter) element(el state.Element) {
	center, angle := rotation(el, s.opts.Measurer)
	s.printf(`<g id="%s"`, escape(el.Meta().ID))
	if angle != 0 {
		s.printf(` transform="rotate(%s %s %s)"`, f(angle), f(center.X), f(center.Y))
	}
	s.printf(">\n")
	state.Match(el, state.Cases[struct{}]{
		Pen: func(e state.Pen) struct{} {
			s.printf(`<path d="%s" stroke="%s" stroke-width="%s" fill="none" stroke-linecap="round" stroke-linejoin="round"/>`+"\n",
				geom.SmoothPath(e.Points), s.color(e.Color), f(e.StrokeWidth))
			return struct{}{}
		},
		Shape: func(e state.Shape) struct{} {
			s.shape(e)
			s.label(e.Text, e.Color, labelAnchor(e))
			return struct{}{}
		},
		Line: func(e state.Line) struct{} {
			s.line(e)
			s.label(e.Text, e.Color, labelAnchor(e))
			return struct{}{}
		},
		Text: func(e state.Text) struct{} {
			s.text(e)
			return struct{}{}
		},
		Mermaid: func(e state.Mermaid) struct{} {
			s.mermaid(e)
			return struct{}{}
		},
	})
	s.printf("</g>\n")
}

func (s *svgWriter) shape(e state.Shape) {
	b := geom.NewBounds(e.X1, e.Y1, e.X2, e.Y2)
	style := fmt.Sprintf(`stroke="%s" stroke-width="%s" fill="none"`, s.color(e.Color), f(e.StrokeWidth))
	if e.StrokeStyle == state.Dashed {
		style += fmt.Sprintf(` stroke-dasharray="%s %s"`, f(dashOn), f(dashOff))
	}
	switch e.Tool {
	case state.ToolEllipse:
		c := b.Center()
		s.printf(`<ellipse cx="%s" cy="%s" rx="%s" ry="%s" %s/>`+"\n", f(c.X), f(c.Y), f(b.Width/2), f(b.Height/2), style)
	case state.ToolRoundedRectangle:
		s.printf(`<rect x="%s" y="%s" width="%s" height="%s" rx="%s" %s/>`+"\n", f(b.X1), f(b.Y1), f(b.Width), f(b.Height), f(roundedRadius), style)
	default:
		s.printf(`<rect x="%s" y="%s" width="%s" height="%s" %s/>`+"\n", f(b.X1), f(b.Y1), f(b.Width), f(b.Height), style)
	}
}

func (s *svgWriter) line(e state.Line) {
	pts := linePoints(e)
	dash := ""
	if e.StrokeStyle == state.Dashed {
		dash = fmt.Sprintf(` stroke-dasharray="%s %s"`, f(dashOn), f(dashOff))
	}
	s.printf(`<path d="%s" stroke="%s" stroke-width="%s" fill="none" stroke-linecap="round" stroke-linejoin="round"%s/>`+"\n",
		geom.PolylinePath(pts), s.color(e.Color), f(e.StrokeWidth), dash)
	if e.Tool == state.ToolArrow {
		s.printf(`<path d="%s" fill="%s"/>`+"\n", geom.ArrowHeadPath(pts[len(pts)-2], pts[len(pts)-1]), s.color(e.Color))
	}
}

func (s *svgWriter) label(text, c string, mid geom.Point) {
	if text == "" {
		return
	}
	lines, y := labelLines(text, mid)
	s.printf(`<text x="%s" y="%s" fill="%s" font-size="%s" text-anchor="middle" dominant-baseline="middle">`,
		f(mid.X), f(y), s.color(c), f(labelFontSize))
	for i, line := range lines {
		dy := "0"
		if i > 0 {
			dy = f(geom.LineHeight) + "em"
		}
		s.printf(`<tspan x="%s" dy="%s">%s</tspan>`, f(mid.X), dy, escape(line))
	}
	s.printf("</text>\n")
}

func (s *svgWriter) text(e state.Text) {
	anchor := "start"
	switch e.Align {
	case state.AlignCenter:
		anchor = "middle"
	case state.AlignRight:
		anchor = "end"
	}
	s.printf(`<text x="%s" y="%s" fill="%s" font-size="%s" font-family="%s" text-anchor="%s" dominant-baseline="hanging" xml:space="preserve">`,
		f(e.X), f(e.Y), s.color(e.Color), f(e.FontSize), escape(e.FontFamily), anchor)
	for i, line := range strings.Split(e.Text, "\n") {
		dy := "0"
		if i > 0 {
			dy = f(e.FontSize * geom.LineHeight)
		}
		s.printf(`<tspan x="%s" dy="%s">%s</tspan>`, f(e.X), dy, escape(line))
	}
	s.printf("</text>\n")
}

func (s *svgWriter) mermaid(e state.Mermaid) {
	if s.opts.Renderer != nil {
		out, err := s.opts.Renderer.Render(s.ctx, e.Code)
		if err == nil && !out.Failed && out.Width > 0 && out.Height > 0 {
			s.printf(`<g transform="translate(%s %s) scale(%s %s)">%s</g>`+"\n",
				f(e.X), f(e.Y), f(e.Width/out.Width), f(e.Height/out.Height), out.Markup)
			return
		}
	}
	ink := s.color("")
	s.printf(`<rect x="%s" y="%s" width="%s" height="%s" fill="none" stroke="%s" stroke-dasharray="%s %s"/>`+"\n",
		f(e.X), f(e.Y), f(e.Width), f(e.Height), ink, f(dashOn), f(dashOff))
	s.printf(`<text font-family="monospace" font-size="%s" fill="%s" xml:space="preserve">`, f(sourceFontSize), ink)
	for i, line := range strings.Split(e.Code, "\n") {
		y := e.Y + DefaultPadding/2 + sourceFontSize + float64(i)*sourceFontSize*geom.LineHeight
		s.printf(`<tspan x="%s" y="%s">%s</tspan>`, f(e.X+DefaultPadding/2), f(y), escape(line))
	}
	s.printf("</text>\n")
}

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// f formats a coordinate with at most two decimals.
func f(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
