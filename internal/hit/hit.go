// Package hit answers which element is under a point, which connection
// point a connector should snap to, and what a marquee selects.
package hit

import (
	"math"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/route"
	"CollabBoard/internal/state"
)

const (
	shapePadding = 5.0
	minLineSlop  = 5.0

	// SnapRadius is measured in screen pixels.
	SnapRadius = 20.0
)

// Contains reports whether p touches el. The point is first rotated back
// by the element's angle about its bounds centre so every test runs in the
// element's unrotated frame.
func Contains(el state.Element, p geom.Point, m geom.TextMeasurer) bool {
	b := state.BoundsOf(el, m)
	local := geom.Rotate(p, b.Center(), -el.Meta().Angle)

	return state.Match(el, state.Cases[bool]{
		Shape: func(e state.Shape) bool {
			if !b.Pad(shapePadding).Contains(local) {
				return false
			}
			if e.Tool != state.ToolEllipse {
				return true
			}
			c := b.Center()
			rx, ry := b.Width/2, b.Height/2
			if rx <= 0 || ry <= 0 {
				return false
			}
			dx, dy := local.X-c.X, local.Y-c.Y
			return dx*dx/(rx*rx)+dy*dy/(ry*ry) <= 1
		},
		Line: func(e state.Line) bool {
			return nearPolyline(local, e.Points, e.StrokeWidth)
		},
		Pen: func(e state.Pen) bool {
			if len(e.Points) == 1 {
				return nearPolyline(local, []geom.Point{e.Points[0], e.Points[0]}, e.StrokeWidth)
			}
			return nearPolyline(local, e.Points, e.StrokeWidth)
		},
		Text: func(state.Text) bool {
			return b.Contains(local)
		},
		Mermaid: func(state.Mermaid) bool {
			return b.Contains(local)
		},
	})
}

func nearPolyline(p geom.Point, pts []geom.Point, strokeWidth float64) bool {
	tol := math.Max(minLineSlop, strokeWidth/2)
	tol *= tol
	for i := 1; i < len(pts); i++ {
		if geom.SegmentDistSq(p, pts[i-1], pts[i]) <= tol {
			return true
		}
	}
	return false
}

// ElementAt returns the topmost element under p.
func ElementAt(p geom.Point, els state.Elements, m geom.TextMeasurer) (state.Element, bool) {
	for i := len(els) - 1; i >= 0; i-- {
		if Contains(els[i], p, m) {
			return els[i], true
		}
	}
	return nil, false
}

// Snap is a connection point a connector endpoint can bind to.
type Snap struct {
	Connection route.Connection
	ShapeID    string
}

// FindSnapPoint returns the shape connection point nearest to cursor that
// lies strictly within radius/zoom world units. Shapes with excludeID are
// skipped. Earlier elements win ties.
func FindSnapPoint(cursor geom.Point, els state.Elements, excludeID string, zoom, radius float64) (Snap, bool) {
	if zoom <= 0 {
		zoom = 1
	}
	best := radius / zoom
	var snap Snap
	found := false
	for _, el := range els {
		s, ok := el.(state.Shape)
		if !ok || s.ID == excludeID {
			continue
		}
		for _, cp := range route.ConnectionPoints(geom.NewBounds(s.X1, s.Y1, s.X2, s.Y2)) {
			if d := cursor.Dist(cp.Point); d < best {
				best = d
				snap = Snap{Connection: cp, ShapeID: s.ID}
				found = true
			}
		}
	}
	return snap, found
}

// Marquee returns the ids of elements whose bounds lie entirely inside
// the rectangle spanned by a and b.
func Marquee(a, b geom.Point, els state.Elements, m geom.TextMeasurer) []string {
	area := geom.NewBounds(a.X, a.Y, b.X, b.Y)
	var ids []string
	for _, el := range els {
		if state.BoundsOf(el, m).Within(area) {
			ids = append(ids, el.Meta().ID)
		}
	}
	return ids
}
