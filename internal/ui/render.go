package ui

import (
	"image/color"
	"math"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/engine"
	"CollabBoard/internal/export"
	"CollabBoard/internal/geom"
	"CollabBoard/internal/hit"
	"CollabBoard/internal/state"
)

const (
	ellipseSteps  = 48
	cornerSteps   = 6
	curveSteps    = 4
	roundedRadius = 10.0
	dashOn        = 8.0
	dashOff       = 4.0
	labelFontSize = 16.0
	selectionPad  = 5.0
	gripSize      = 8.0
	roundGripSize = 10.0
	cursorSize    = 8.0

	lockedAlpha  = 0.6
	previewAlpha = 0.4
)

var (
	accent     = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	accentFill = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0x22}
	snapColor  = color.NRGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
)

// scene is one frame of the board, copied out of the engine so it can be
// drawn without holding any lock.
type scene struct {
	els      state.Elements
	drawing  state.Element
	preview  state.Element
	selected map[string]bool
	handles  []engine.Handle
	marquee  *geom.Bounds
	snap     *hit.Snap
	editing  string
	peers    []collab.Cursor
	view     state.Viewport
	theme    state.Theme
	m        geom.TextMeasurer
}

func sceneOf(e *engine.Engine, peers []collab.Cursor) scene {
	s := scene{
		els:      e.Elements(),
		selected: map[string]bool{},
		handles:  e.Handles(),
		peers:    peers,
		view:     e.Viewport(),
		theme:    e.Theme(),
		m:        e.Measurer(),
	}
	if el, ok := e.Drawing(); ok {
		s.drawing = el
	}
	if el, ok := e.Preview(); ok {
		s.preview = el
	}
	for _, id := range e.Selection() {
		s.selected[id] = true
	}
	if b, ok := e.Marquee(); ok {
		s.marquee = &b
	}
	if sn, ok := e.SnapHint(); ok {
		s.snap = &sn
	}
	if edit, ok := e.Editing(); ok {
		s.editing = edit.ID
	}
	return s
}

// painter turns a scene into fyne canvas objects. Everything is drawn with
// straight lines, so rotation and dashing are applied to the outline
// points before they reach the canvas.
type painter struct {
	scene
	objs []fyne.CanvasObject
}

func (s scene) objects() []fyne.CanvasObject {
	p := &painter{scene: s}
	for _, el := range s.els {
		alpha := 1.0
		if el.Meta().Locked {
			alpha = lockedAlpha
		}
		p.element(el, alpha)
	}
	if s.drawing != nil {
		p.element(s.drawing, 1)
	}
	if s.preview != nil {
		p.element(s.preview, previewAlpha)
	}
	p.selection()
	p.grips()
	p.marqueeBox()
	p.snapHint()
	p.cursors()
	return p.objs
}

func (p *painter) screen(w geom.Point) fyne.Position {
	s := p.view.ToScreen(w)
	return fyne.NewPos(float32(s.X), float32(s.Y))
}

func (p *painter) ink(c string, alpha float64) color.NRGBA {
	rgba, ok := export.ParseColor(p.theme.ResolveColor(c))
	if !ok {
		rgba, _ = export.ParseColor(p.theme.DrawColor())
	}
	return color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: uint8(math.Round(255 * alpha))}
}

// polyline draws world points as screen segments, optionally dashed.
func (p *painter) polyline(pts []geom.Point, c color.Color, width float64, dashed bool) {
	if len(pts) < 2 {
		if len(pts) == 1 {
			p.dot(pts[0], width, c)
		}
		return
	}
	sw := float32(math.Max(1, width*p.view.Zoom))
	if !dashed {
		for i := 1; i < len(pts); i++ {
			p.segment(pts[i-1], pts[i], c, sw)
		}
		return
	}
	on, off := dashOn*width/2, dashOff*width/2
	if width < 2 {
		on, off = dashOn, dashOff
	}
	drawing, left := true, on
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		seg := a.Dist(b)
		for pos := 0.0; pos < seg; {
			step := math.Min(left, seg-pos)
			if drawing {
				p.segment(lerp(a, b, pos/seg), lerp(a, b, (pos+step)/seg), c, sw)
			}
			pos += step
			left -= step
			if left <= 0 {
				drawing = !drawing
				left = off
				if drawing {
					left = on
				}
			}
		}
	}
}

func (p *painter) segment(a, b geom.Point, c color.Color, width float32) {
	l := canvas.NewLine(c)
	l.StrokeWidth = width
	l.Position1 = p.screen(a)
	l.Position2 = p.screen(b)
	p.objs = append(p.objs, l)
}

func (p *painter) dot(w geom.Point, width float64, c color.Color) {
	r := float32(math.Max(1, width*p.view.Zoom/2))
	center := p.screen(w)
	d := canvas.NewCircle(c)
	d.Position1 = fyne.NewPos(center.X-r, center.Y-r)
	d.Position2 = fyne.NewPos(center.X+r, center.Y+r)
	p.objs = append(p.objs, d)
}

func lerp(a, b geom.Point, t float64) geom.Point {
	return geom.Pt(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t)
}

func rotateAll(pts []geom.Point, center geom.Point, angle float64) []geom.Point {
	if angle == 0 {
		return pts
	}
	out := make([]geom.Point, len(pts))
	for i, pt := range pts {
		out[i] = geom.Rotate(pt, center, angle)
	}
	return out
}

func (p *painter) element(el state.Element, alpha float64) {
	center := state.BoundsOf(el, p.m).Center()
	angle := el.Meta().Angle
	state.Match(el, state.Cases[struct{}]{
		Pen: func(e state.Pen) struct{} {
			pts := geom.Smooth(e.Points).Flatten(curveSteps)
			p.polyline(rotateAll(pts, center, angle), p.ink(e.Color, alpha), e.StrokeWidth, false)
			return struct{}{}
		},
		Shape: func(e state.Shape) struct{} {
			c := p.ink(e.Color, alpha)
			p.polyline(rotateAll(ShapeOutline(e), center, angle), c, e.StrokeWidth, e.StrokeStyle == state.Dashed)
			if e.ID != p.editing {
				p.label(e.Text, center, c)
			}
			return struct{}{}
		},
		Line: func(e state.Line) struct{} {
			c := p.ink(e.Color, alpha)
			pts := e.Points
			if len(pts) < 2 {
				pts = []geom.Point{geom.Pt(e.X1, e.Y1), geom.Pt(e.X2, e.Y2)}
			}
			pts = rotateAll(pts, center, angle)
			p.polyline(pts, c, e.StrokeWidth, e.StrokeStyle == state.Dashed)
			if e.Tool == state.ToolArrow {
				h := geom.ArrowHead(pts[len(pts)-2], pts[len(pts)-1])
				p.polyline([]geom.Point{h[1], h[0], h[2], h[1]}, c, e.StrokeWidth, false)
			}
			if e.ID != p.editing {
				p.label(e.Text, geom.Pt((e.X1+e.X2)/2, (e.Y1+e.Y2)/2), c)
			}
			return struct{}{}
		},
		Text: func(e state.Text) struct{} {
			if e.ID == p.editing {
				return struct{}{}
			}
			p.text(e, p.ink(e.Color, alpha))
			return struct{}{}
		},
		Mermaid: func(e state.Mermaid) struct{} {
			frame := geom.NewBounds(e.X, e.Y, e.X+e.Width, e.Y+e.Height)
			c := p.ink(state.DefaultColorName, alpha*0.5)
			p.polyline(rotateAll(rectOutline(frame), center, angle), c, 1, true)
			p.source(e, p.ink(state.DefaultColorName, alpha))
			return struct{}{}
		},
	})
}

// ShapeOutline returns the closed outline of a shape in world space,
// before rotation.
func ShapeOutline(e state.Shape) []geom.Point {
	b := geom.NewBounds(e.X1, e.Y1, e.X2, e.Y2)
	switch e.Tool {
	case state.ToolEllipse:
		c := b.Center()
		rx, ry := b.Width/2, b.Height/2
		pts := make([]geom.Point, 0, ellipseSteps+1)
		for i := 0; i <= ellipseSteps; i++ {
			t := 2 * math.Pi * float64(i) / ellipseSteps
			pts = append(pts, geom.Pt(c.X+rx*math.Cos(t), c.Y+ry*math.Sin(t)))
		}
		return pts
	case state.ToolRoundedRectangle:
		return roundedOutline(b, math.Min(roundedRadius, math.Min(b.Width, b.Height)/2))
	}
	return rectOutline(b)
}

func rectOutline(b geom.Bounds) []geom.Point {
	return []geom.Point{
		geom.Pt(b.X1, b.Y1), geom.Pt(b.X2, b.Y1), geom.Pt(b.X2, b.Y2), geom.Pt(b.X1, b.Y2), geom.Pt(b.X1, b.Y1),
	}
}

func roundedOutline(b geom.Bounds, r float64) []geom.Point {
	corners := []struct {
		c     geom.Point
		start float64
	}{
		{geom.Pt(b.X2-r, b.Y1+r), -math.Pi / 2},
		{geom.Pt(b.X2-r, b.Y2-r), 0},
		{geom.Pt(b.X1+r, b.Y2-r), math.Pi / 2},
		{geom.Pt(b.X1+r, b.Y1+r), math.Pi},
	}
	var pts []geom.Point
	for _, k := range corners {
		for i := 0; i <= cornerSteps; i++ {
			t := k.start + math.Pi/2*float64(i)/cornerSteps
			pts = append(pts, geom.Pt(k.c.X+r*math.Cos(t), k.c.Y+r*math.Sin(t)))
		}
	}
	return append(pts, pts[0])
}

func (p *painter) newText(s string, c color.Color, size float64, mono bool) *canvas.Text {
	t := canvas.NewText(s, c)
	t.TextSize = float32(size * p.view.Zoom)
	t.TextStyle = fyne.TextStyle{Monospace: mono}
	return t
}

// label centres text on mid, one canvas.Text per line.
func (p *painter) label(text string, mid geom.Point, c color.Color) {
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	lh := labelFontSize * geom.LineHeight
	top := mid.Y - float64(len(lines))*lh/2
	for i, line := range lines {
		w := p.m.MeasureText(line, labelFontSize, state.DefaultFontFamily).Width
		p.place(p.newText(line, c, labelFontSize, false), geom.Pt(mid.X-w/2, top+float64(i)*lh))
	}
}

func (p *painter) text(e state.Text, c color.Color) {
	b := state.BoundsOf(e, p.m)
	lh := e.FontSize * geom.LineHeight
	mono := strings.Contains(strings.ToLower(e.FontFamily), "mono")
	for i, line := range strings.Split(e.Text, "\n") {
		w := p.m.MeasureText(line, e.FontSize, e.FontFamily).Width
		x := b.X1
		switch e.Align {
		case state.AlignCenter:
			x = b.X1 + (b.Width-w)/2
		case state.AlignRight:
			x = b.X2 - w
		}
		p.place(p.newText(line, c, e.FontSize, mono), geom.Pt(x, e.Y+float64(i)*lh))
	}
}

func (p *painter) source(e state.Mermaid, c color.Color) {
	const size = 12.0
	for i, line := range strings.Split(e.Code, "\n") {
		y := e.Y + size + float64(i)*size*geom.LineHeight
		if y+size > e.Y+e.Height {
			break
		}
		p.place(p.newText(line, c, size, true), geom.Pt(e.X+size, y))
	}
}

func (p *painter) place(t *canvas.Text, w geom.Point) {
	t.Move(p.screen(w))
	t.Resize(t.MinSize())
	p.objs = append(p.objs, t)
}

func (p *painter) selection() {
	for _, el := range p.els {
		if !p.selected[el.Meta().ID] {
			continue
		}
		b := state.BoundsOf(el, p.m).Pad(selectionPad / p.view.Zoom)
		p.polyline(rotateAll(rectOutline(b), b.Center(), el.Meta().Angle), accent, 1/p.view.Zoom, true)
	}
}

func (p *painter) grips() {
	for _, h := range p.handles {
		at := p.screen(h.Point)
		switch {
		case h.Kind.IsResize():
			r := canvas.NewRectangle(color.White)
			r.StrokeColor = accent
			r.StrokeWidth = 1
			r.Move(fyne.NewPos(at.X-gripSize/2, at.Y-gripSize/2))
			r.Resize(fyne.NewSize(gripSize, gripSize))
			p.objs = append(p.objs, r)
		case h.Kind == engine.HandleLineSegment:
			d := canvas.NewCircle(accent)
			d.Position1 = fyne.NewPos(at.X-3, at.Y-3)
			d.Position2 = fyne.NewPos(at.X+3, at.Y+3)
			p.objs = append(p.objs, d)
		default:
			d := canvas.NewCircle(color.White)
			d.StrokeColor = accent
			d.StrokeWidth = 1
			d.Position1 = fyne.NewPos(at.X-roundGripSize/2, at.Y-roundGripSize/2)
			d.Position2 = fyne.NewPos(at.X+roundGripSize/2, at.Y+roundGripSize/2)
			p.objs = append(p.objs, d)
		}
	}
}

func (p *painter) marqueeBox() {
	if p.marquee == nil {
		return
	}
	r := canvas.NewRectangle(accentFill)
	r.StrokeColor = accent
	r.StrokeWidth = 1
	tl := p.screen(geom.Pt(p.marquee.X1, p.marquee.Y1))
	r.Move(tl)
	r.Resize(fyne.NewSize(float32(p.marquee.Width*p.view.Zoom), float32(p.marquee.Height*p.view.Zoom)))
	p.objs = append(p.objs, r)
}

func (p *painter) snapHint() {
	if p.snap == nil {
		return
	}
	at := p.screen(p.snap.Connection.Point)
	d := canvas.NewCircle(color.Transparent)
	d.StrokeColor = snapColor
	d.StrokeWidth = 2
	d.Position1 = fyne.NewPos(at.X-6, at.Y-6)
	d.Position2 = fyne.NewPos(at.X+6, at.Y+6)
	p.objs = append(p.objs, d)
}

func (p *painter) cursors() {
	for _, c := range p.peers {
		col, ok := export.ParseColor(c.Color)
		if !ok {
			col, _ = export.ParseColor(collab.SiteColor(c.Site))
		}
		at := p.screen(c.Position)
		d := canvas.NewCircle(col)
		d.Position1 = fyne.NewPos(at.X-cursorSize/2, at.Y-cursorSize/2)
		d.Position2 = fyne.NewPos(at.X+cursorSize/2, at.Y+cursorSize/2)
		name := canvas.NewText(c.Name, col)
		name.TextSize = 12
		name.Move(fyne.NewPos(at.X+cursorSize, at.Y+cursorSize/2))
		name.Resize(name.MinSize())
		p.objs = append(p.objs, d, name)
	}
}
