package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// PDF writes a single page sized to the frame, one point per world unit.
type PDF struct{}

func (PDF) Ext() string { return "pdf" }

func (PDF) Export(ctx context.Context, w io.Writer, els state.Elements, opts Options) error {
	opts = opts.withDefaults()
	frame, err := Frame(els, opts)
	if err != nil {
		return err
	}
	p := gofpdf.New("P", "pt", "A4", "")
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPageFormat("P", gofpdf.SizeType{Wd: frame.Width, Ht: frame.Height})
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	d := &pdfDrawer{p: p, opts: opts, dx: -frame.X1, dy: -frame.Y1, tr: p.UnicodeTranslatorFromDescriptor("")}
	if opts.Background {
		d.fill(background(opts.Theme))
		p.Rect(0, 0, frame.Width, frame.Height, "F")
	}
	for _, el := range els {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.element(el)
	}
	if err := p.Error(); err != nil {
		return fmt.Errorf("pdf export: %w", err)
	}
	return p.Output(w)
}

type pdfDrawer struct {
	p      *gofpdf.Fpdf
	opts   Options
	dx, dy float64
	tr     func(string) string
}

func (d *pdfDrawer) pt(p geom.Point) (float64, float64) {
	return p.X + d.dx, p.Y + d.dy
}

func (d *pdfDrawer) stroke(c string, width float64, style state.StrokeStyle) {
	rgba := ink(c, d.opts.Theme)
	d.p.SetDrawColor(int(rgba.R), int(rgba.G), int(rgba.B))
	d.p.SetLineWidth(width)
	if style == state.Dashed {
		d.p.SetDashPattern([]float64{dashOn, dashOff}, 0)
	} else {
		d.p.SetDashPattern([]float64{}, 0)
	}
}

func (d *pdfDrawer) fill(c string) {
	rgba := ink(c, d.opts.Theme)
	d.p.SetFillColor(int(rgba.R), int(rgba.G), int(rgba.B))
	d.p.SetTextColor(int(rgba.R), int(rgba.G), int(rgba.B))
}

func (d *pdfDrawer) element(el state.Element) {
	center, angle := rotation(el, d.opts.Measurer)
	if angle != 0 {
		cx, cy := d.pt(center)
		d.p.TransformBegin()
		// PDF angles run counter-clockwise
		d.p.TransformRotate(-angle, cx, cy)
		defer d.p.TransformEnd()
	}
	state.Match(el, state.Cases[struct{}]{
		Pen: func(e state.Pen) struct{} {
			d.stroke(e.Color, e.StrokeWidth, state.Solid)
			d.curve(geom.Smooth(e.Points))
			return struct{}{}
		},
		Shape: func(e state.Shape) struct{} {
			d.shape(e)
			d.label(e.Text, e.Color, labelAnchor(e))
			return struct{}{}
		},
		Line: func(e state.Line) struct{} {
			d.line(e)
			d.label(e.Text, e.Color, labelAnchor(e))
			return struct{}{}
		},
		Text: func(e state.Text) struct{} {
			d.text(e)
			return struct{}{}
		},
		Mermaid: func(e state.Mermaid) struct{} {
			d.mermaid(e)
			return struct{}{}
		},
	})
}

func (d *pdfDrawer) curve(c geom.SmoothCurve) {
	d.p.MoveTo(d.pt(c.Start))
	for _, q := range c.Quads {
		cx, cy := d.pt(q.Ctrl)
		x, y := d.pt(q.To)
		d.p.CurveTo(cx, cy, x, y)
	}
	d.p.LineTo(d.pt(c.End))
	d.p.DrawPath("D")
}

func (d *pdfDrawer) shape(e state.Shape) {
	d.stroke(e.Color, e.StrokeWidth, e.StrokeStyle)
	b := geom.NewBounds(e.X1, e.Y1, e.X2, e.Y2)
	x, y := d.pt(geom.Pt(b.X1, b.Y1))
	switch e.Tool {
	case state.ToolEllipse:
		d.p.Ellipse(x+b.Width/2, y+b.Height/2, b.Width/2, b.Height/2, 0, "D")
	case state.ToolRoundedRectangle:
		d.roundedRect(x, y, b.Width, b.Height)
	default:
		d.p.Rect(x, y, b.Width, b.Height, "D")
	}
}

func (d *pdfDrawer) roundedRect(x, y, w, h float64) {
	r := roundedRadius
	if r > w/2 {
		r = w / 2
	}
	if r > h/2 {
		r = h / 2
	}
	d.p.MoveTo(x+r, y)
	d.p.LineTo(x+w-r, y)
	d.p.CurveTo(x+w, y, x+w, y+r)
	d.p.LineTo(x+w, y+h-r)
	d.p.CurveTo(x+w, y+h, x+w-r, y+h)
	d.p.LineTo(x+r, y+h)
	d.p.CurveTo(x, y+h, x, y+h-r)
	d.p.LineTo(x, y+r)
	d.p.CurveTo(x, y, x+r, y)
	d.p.ClosePath()
	d.p.DrawPath("D")
}

func (d *pdfDrawer) line(e state.Line) {
	pts := linePoints(e)
	d.stroke(e.Color, e.StrokeWidth, e.StrokeStyle)
	d.p.MoveTo(d.pt(pts[0]))
	for _, pt := range pts[1:] {
		d.p.LineTo(d.pt(pt))
	}
	d.p.DrawPath("D")
	if e.Tool == state.ToolArrow {
		head := geom.ArrowHead(pts[len(pts)-2], pts[len(pts)-1])
		poly := make([]gofpdf.PointType, len(head))
		for i, h := range head {
			x, y := d.pt(h)
			poly[i] = gofpdf.PointType{X: x, Y: y}
		}
		d.fill(e.Color)
		d.p.SetDashPattern([]float64{}, 0)
		d.p.Polygon(poly, "F")
	}
}

func (d *pdfDrawer) font(family string, size float64) {
	f := strings.ToLower(family)
	name := "Helvetica"
	if strings.Contains(f, "mono") || strings.Contains(f, "courier") {
		name = "Courier"
	}
	d.p.SetFont(name, "", size)
}

func (d *pdfDrawer) label(text, c string, mid geom.Point) {
	if text == "" {
		return
	}
	d.fill(c)
	d.font("", labelFontSize)
	lines, y := labelLines(text, mid)
	for i, line := range lines {
		line = d.tr(line)
		x, ly := d.pt(geom.Pt(mid.X, y+float64(i)*labelFontSize*geom.LineHeight))
		// baseline sits a third of the size below the line centre
		d.p.Text(x-d.p.GetStringWidth(line)/2, ly+labelFontSize*0.35, line)
	}
}

func (d *pdfDrawer) text(e state.Text) {
	d.fill(e.Color)
	d.font(e.FontFamily, e.FontSize)
	for i, line := range strings.Split(e.Text, "\n") {
		line = d.tr(line)
		x, y := d.pt(geom.Pt(e.X, e.Y+float64(i)*e.FontSize*geom.LineHeight))
		switch e.Align {
		case state.AlignCenter:
			x -= d.p.GetStringWidth(line) / 2
		case state.AlignRight:
			x -= d.p.GetStringWidth(line)
		}
		d.p.Text(x, y+e.FontSize*0.8, line)
	}
}

func (d *pdfDrawer) mermaid(e state.Mermaid) {
	d.stroke("", 1, state.Dashed)
	x, y := d.pt(geom.Pt(e.X, e.Y))
	d.p.Rect(x, y, e.Width, e.Height, "D")
	d.fill("")
	d.font("mono", sourceFontSize)
	for i, line := range strings.Split(e.Code, "\n") {
		ly := y + DefaultPadding/2 + sourceFontSize + float64(i)*sourceFontSize*geom.LineHeight
		d.p.Text(x+DefaultPadding/2, ly, d.tr(line))
	}
}
