package state

import "CollabBoard/internal/geom"

// Kind is the wire tag of an element variant.
type Kind string

const (
	KindPen     Kind = "pen"
	KindShape   Kind = "shape"
	KindLine    Kind = "line"
	KindText    Kind = "text"
	KindMermaid Kind = "mermaid"
)

// Element is one of Pen, Shape, Line, Text or Mermaid. The set is closed:
// only this package can add variants, and Match forces every call site to
// handle all of them.
type Element interface {
	Meta() Common
	Kind() Kind
	withMeta(Common) Element
}

// Common carries the fields every element has.
type Common struct {
	ID      string  `json:"id"`
	Locked  bool    `json:"locked,omitempty"`
	GroupID string  `json:"groupId,omitempty"`
	Angle   float64 `json:"angle,omitempty"`
}

type StrokeStyle string

const (
	Solid  StrokeStyle = "solid"
	Dashed StrokeStyle = "dashed"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Binding ties a line endpoint to a side of a shape.
type Binding struct {
	ElementID  string    `json:"elementId"`
	Side       geom.Side `json:"side"`
	SideOffset float64   `json:"sideOffset"`
}

// Pen is a freehand stroke.
type Pen struct {
	Common
	Points      []geom.Point `json:"points"`
	Color       string       `json:"color"`
	StrokeWidth float64      `json:"strokeWidth"`
}

// Shape is a rectangle, rounded rectangle or ellipse spanning two corners.
type Shape struct {
	Common
	X1          float64     `json:"x1"`
	Y1          float64     `json:"y1"`
	X2          float64     `json:"x2"`
	Y2          float64     `json:"y2"`
	Tool        Tool        `json:"tool"`
	Color       string      `json:"color"`
	StrokeWidth float64     `json:"strokeWidth"`
	StrokeStyle StrokeStyle `json:"strokeStyle,omitempty"`
	Text        string      `json:"text,omitempty"`
}

// Line is a straight or orthogonally routed connector. Points always has at
// least two entries; the first and last match the endpoints.
type Line struct {
	Common
	X1           float64      `json:"x1"`
	Y1           float64      `json:"y1"`
	X2           float64      `json:"x2"`
	Y2           float64      `json:"y2"`
	Points       []geom.Point `json:"points"`
	Tool         Tool         `json:"tool"`
	Color        string       `json:"color"`
	StrokeWidth  float64      `json:"strokeWidth"`
	StrokeStyle  StrokeStyle  `json:"strokeStyle,omitempty"`
	Text         string       `json:"text,omitempty"`
	StartBinding *Binding     `json:"startBinding,omitempty"`
	EndBinding   *Binding     `json:"endBinding,omitempty"`
	StartShapeID string       `json:"startShapeId,omitempty"`
	EndShapeID   string       `json:"endShapeId,omitempty"`
}

// Text is free text anchored at X, Y. Width is the measured width of the
// widest line, cached for renderers.
type Text struct {
	Common
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	Color      string  `json:"color"`
	Align      Align   `json:"align,omitempty"`
	Width      float64 `json:"width,omitempty"`
}

// Mermaid is a rendered diagram with its source.
type Mermaid struct {
	Common
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Code   string  `json:"code"`
}

func (e Pen) Meta() Common     { return e.Common }
func (e Shape) Meta() Common   { return e.Common }
func (e Line) Meta() Common    { return e.Common }
func (e Text) Meta() Common    { return e.Common }
func (e Mermaid) Meta() Common { return e.Common }

func (Pen) Kind() Kind     { return KindPen }
func (Shape) Kind() Kind   { return KindShape }
func (Line) Kind() Kind    { return KindLine }
func (Text) Kind() Kind    { return KindText }
func (Mermaid) Kind() Kind { return KindMermaid }

func (e Pen) withMeta(c Common) Element     { e.Common = c; return e }
func (e Shape) withMeta(c Common) Element   { e.Common = c; return e }
func (e Line) withMeta(c Common) Element    { e.Common = c; return e }
func (e Text) withMeta(c Common) Element    { e.Common = c; return e }
func (e Mermaid) withMeta(c Common) Element { e.Common = c; return e }

// Cases holds one handler per variant for Match.
type Cases[T any] struct {
	Pen     func(Pen) T
	Shape   func(Shape) T
	Line    func(Line) T
	Text    func(Text) T
	Mermaid func(Mermaid) T
}

// Match dispatches on the variant of el. A nil handler panics, so a missing
// case shows up the first time that variant is seen in tests.
func Match[T any](el Element, c Cases[T]) T {
	switch e := el.(type) {
	case Pen:
		return c.Pen(e)
	case Shape:
		return c.Shape(e)
	case Line:
		return c.Line(e)
	case Text:
		return c.Text(e)
	case Mermaid:
		return c.Mermaid(e)
	}
	panic("state: unknown element variant")
}

func WithLocked(el Element, locked bool) Element {
	c := el.Meta()
	c.Locked = locked
	return el.withMeta(c)
}

func WithGroup(el Element, groupID string) Element {
	c := el.Meta()
	c.GroupID = groupID
	return el.withMeta(c)
}

func WithAngle(el Element, angle float64) Element {
	c := el.Meta()
	c.Angle = angle
	return el.withMeta(c)
}

// ColorOf returns the draw colour of el.
func ColorOf(el Element) string {
	return Match(el, Cases[string]{
		Pen:     func(e Pen) string { return e.Color },
		Shape:   func(e Shape) string { return e.Color },
		Line:    func(e Line) string { return e.Color },
		Text:    func(e Text) string { return e.Color },
		Mermaid: func(Mermaid) string { return "" },
	})
}

// WithColor sets the draw colour. Mermaid elements have none and are
// returned unchanged.
func WithColor(el Element, color string) Element {
	return Match(el, Cases[Element]{
		Pen:     func(e Pen) Element { e.Color = color; return e },
		Shape:   func(e Shape) Element { e.Color = color; return e },
		Line:    func(e Line) Element { e.Color = color; return e },
		Text:    func(e Text) Element { e.Color = color; return e },
		Mermaid: func(e Mermaid) Element { return e },
	})
}

// StrokeWidthOf returns the stroke width, or 0 for variants without one.
func StrokeWidthOf(el Element) float64 {
	return Match(el, Cases[float64]{
		Pen:     func(e Pen) float64 { return e.StrokeWidth },
		Shape:   func(e Shape) float64 { return e.StrokeWidth },
		Line:    func(e Line) float64 { return e.StrokeWidth },
		Text:    func(Text) float64 { return 0 },
		Mermaid: func(Mermaid) float64 { return 0 },
	})
}

func WithStrokeWidth(el Element, w float64) Element {
	return Match(el, Cases[Element]{
		Pen:     func(e Pen) Element { e.StrokeWidth = w; return e },
		Shape:   func(e Shape) Element { e.StrokeWidth = w; return e },
		Line:    func(e Line) Element { e.StrokeWidth = w; return e },
		Text:    func(e Text) Element { return e },
		Mermaid: func(e Mermaid) Element { return e },
	})
}

// Clone deep-copies the slices and pointers inside el so that the result
// shares no memory with the original.
func Clone(el Element) Element {
	return Match(el, Cases[Element]{
		Pen: func(e Pen) Element {
			e.Points = clonePoints(e.Points)
			return e
		},
		Shape: func(e Shape) Element { return e },
		Line: func(e Line) Element {
			e.Points = clonePoints(e.Points)
			if e.StartBinding != nil {
				b := *e.StartBinding
				e.StartBinding = &b
			}
			if e.EndBinding != nil {
				b := *e.EndBinding
				e.EndBinding = &b
			}
			return e
		},
		Text:    func(e Text) Element { return e },
		Mermaid: func(e Mermaid) Element { return e },
	})
}

func clonePoints(pts []geom.Point) []geom.Point {
	if pts == nil {
		return nil
	}
	return append([]geom.Point(nil), pts...)
}

// Start returns the first polyline point of a line.
func (e Line) Start() geom.Point {
	if len(e.Points) > 0 {
		return e.Points[0]
	}
	return geom.Pt(e.X1, e.Y1)
}

// End returns the last polyline point of a line.
func (e Line) End() geom.Point {
	if len(e.Points) > 0 {
		return e.Points[len(e.Points)-1]
	}
	return geom.Pt(e.X2, e.Y2)
}

// WithPoints sets the polyline and keeps the endpoint fields in step.
func (e Line) WithPoints(pts []geom.Point) Line {
	e.Points = pts
	if len(pts) > 0 {
		e.X1, e.Y1 = pts[0].X, pts[0].Y
		last := pts[len(pts)-1]
		e.X2, e.Y2 = last.X, last.Y
	}
	return e
}

// Label returns the text carried by shapes, lines and text elements.
func Label(el Element) string {
	return Match(el, Cases[string]{
		Pen:     func(Pen) string { return "" },
		Shape:   func(e Shape) string { return e.Text },
		Line:    func(e Line) string { return e.Text },
		Text:    func(e Text) string { return e.Text },
		Mermaid: func(Mermaid) string { return "" },
	})
}

// WithLabel sets the text of shapes, lines and text elements.
func WithLabel(el Element, text string) Element {
	return Match(el, Cases[Element]{
		Pen:     func(e Pen) Element { return e },
		Shape:   func(e Shape) Element { e.Text = text; return e },
		Line:    func(e Line) Element { e.Text = text; return e },
		Text:    func(e Text) Element { e.Text = text; return e },
		Mermaid: func(e Mermaid) Element { return e },
	})
}
