package engine

import (
	"math"
	"strings"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// HandleKind names a grip drawn around the selection.
type HandleKind string

const (
	HandleTopLeft      HandleKind = "top-left"
	HandleTop          HandleKind = "top-middle"
	HandleTopRight     HandleKind = "top-right"
	HandleRight        HandleKind = "middle-right"
	HandleBottomRight  HandleKind = "bottom-right"
	HandleBottom       HandleKind = "bottom-middle"
	HandleBottomLeft   HandleKind = "bottom-left"
	HandleLeft         HandleKind = "middle-left"
	HandleRotate       HandleKind = "rotate"
	HandleLineStart    HandleKind = "line-start"
	HandleLineEnd      HandleKind = "line-end"
	HandleLineSegment  HandleKind = "line-segment"
)

// Grip sizes in screen pixels.
const (
	resizeGrip   = 12.0
	roundGrip    = 20.0
	segmentGrip  = 4.0
	rotateOffset = 28.0
)

func (k HandleKind) edges() (left, right, top, bottom bool) {
	s := string(k)
	return strings.Contains(s, "left"), strings.Contains(s, "right"),
		strings.Contains(s, "top"), strings.Contains(s, "bottom")
}

// IsResize reports whether k is one of the eight box handles.
func (k HandleKind) IsResize() bool {
	l, r, t, b := k.edges()
	return l || r || t || b
}

// Handle is one grip in world coordinates. ElementIDs holds the element,
// or every member when the grip belongs to a group.
type Handle struct {
	Kind       HandleKind
	ElementIDs []string
	Segment    int
	Point      geom.Point
	// Center is the pivot the grip is rotated about.
	Center geom.Point
	// Span is the dragged segment of a line-segment grip.
	Span [2]geom.Point
}

// Handles lists the grips for the selection. Ungrouped elements get their
// own controls; a fully selected group of shapes gets a single set over the
// group's box. Locked elements get none.
func Handles(els state.Elements, selected map[string]bool, zoom float64, m geom.TextMeasurer) []Handle {
	var out []Handle
	groups := map[string][]state.Element{}
	var order []string
	for _, el := range els {
		c := el.Meta()
		if !selected[c.ID] {
			continue
		}
		if c.GroupID != "" {
			if _, ok := groups[c.GroupID]; !ok {
				order = append(order, c.GroupID)
			}
			groups[c.GroupID] = append(groups[c.GroupID], el)
			continue
		}
		if c.Locked {
			continue
		}
		out = append(out, elementHandles(el, zoom, m)...)
	}
	for _, g := range order {
		members := groups[g]
		ids := make([]string, 0, len(members))
		shapesOnly := true
		for _, el := range members {
			if _, ok := el.(state.Shape); !ok || el.Meta().Locked {
				shapesOnly = false
			}
			ids = append(ids, el.Meta().ID)
		}
		if !shapesOnly {
			continue
		}
		b, _ := state.BoundsOfAll(members, m)
		out = append(out, boxHandles(ids, b, members[0].Meta().Angle, zoom, true)...)
	}
	return out
}

func elementHandles(el state.Element, zoom float64, m geom.TextMeasurer) []Handle {
	id := []string{el.Meta().ID}
	return state.Match(el, state.Cases[[]Handle]{
		Line: func(l state.Line) []Handle {
			var hs []Handle
			hs = append(hs,
				Handle{Kind: HandleLineStart, ElementIDs: id, Point: l.Start()},
				Handle{Kind: HandleLineEnd, ElementIDs: id, Point: l.End()},
			)
			for i := 1; i < len(l.Points); i++ {
				a, b := l.Points[i-1], l.Points[i]
				hs = append(hs, Handle{
					Kind: HandleLineSegment, ElementIDs: id, Segment: i - 1,
					Point: geom.Pt((a.X+b.X)/2, (a.Y+b.Y)/2),
					Span:  [2]geom.Point{a, b},
				})
			}
			return hs
		},
		Shape: func(e state.Shape) []Handle {
			return boxHandles(id, state.BoundsOf(e, m), e.Angle, zoom, false)
		},
		Pen: func(e state.Pen) []Handle {
			return boxHandles(id, state.BoundsOf(e, m), e.Angle, zoom, false)
		},
		Mermaid: func(e state.Mermaid) []Handle {
			return boxHandles(id, state.BoundsOf(e, m), e.Angle, zoom, false)
		},
		Text: func(state.Text) []Handle { return nil },
	})
}

func boxHandles(ids []string, b geom.Bounds, angle, zoom float64, rotateOnly bool) []Handle {
	c := b.Center()
	rot := func(p geom.Point) geom.Point { return geom.Rotate(p, c, angle) }
	hs := []Handle{{
		Kind: HandleRotate, ElementIDs: ids, Center: c,
		Point: rot(geom.Pt(c.X, b.Y1-rotateOffset/zoom)),
	}}
	if rotateOnly {
		return hs
	}
	corners := []struct {
		kind HandleKind
		p    geom.Point
	}{
		{HandleTopLeft, geom.Pt(b.X1, b.Y1)},
		{HandleTop, geom.Pt(c.X, b.Y1)},
		{HandleTopRight, geom.Pt(b.X2, b.Y1)},
		{HandleRight, geom.Pt(b.X2, c.Y)},
		{HandleBottomRight, geom.Pt(b.X2, b.Y2)},
		{HandleBottom, geom.Pt(c.X, b.Y2)},
		{HandleBottomLeft, geom.Pt(b.X1, b.Y2)},
		{HandleLeft, geom.Pt(b.X1, c.Y)},
	}
	for _, k := range corners {
		hs = append(hs, Handle{Kind: k.kind, ElementIDs: ids, Center: c, Point: rot(k.p)})
	}
	return hs
}

// HandleAt returns the grip under p. Endpoint and rotate grips win over
// resize grips, which win over segment grips.
func HandleAt(hs []Handle, p geom.Point, zoom float64, strokeWidth func(id string) float64) (Handle, bool) {
	if zoom <= 0 {
		zoom = 1
	}
	for _, h := range hs {
		if h.Kind == HandleRotate || h.Kind == HandleLineStart || h.Kind == HandleLineEnd {
			if p.Dist(h.Point) <= roundGrip/zoom {
				return h, true
			}
		}
	}
	for _, h := range hs {
		if h.Kind.IsResize() && math.Abs(p.X-h.Point.X) <= resizeGrip/zoom && math.Abs(p.Y-h.Point.Y) <= resizeGrip/zoom {
			return h, true
		}
	}
	for _, h := range hs {
		if h.Kind != HandleLineSegment {
			continue
		}
		tol := strokeWidth(h.ElementIDs[0])/2 + segmentGrip/zoom
		if geom.SegmentDistSq(p, h.Span[0], h.Span[1]) <= tol*tol {
			return h, true
		}
	}
	return Handle{}, false
}
