package state

import "CollabBoard/internal/geom"

// Translate moves every geometric field of el by (dx, dy).
func Translate(el Element, dx, dy float64) Element {
	return Match(el, Cases[Element]{
		Pen: func(e Pen) Element {
			e.Points = shift(e.Points, dx, dy)
			return e
		},
		Shape: func(e Shape) Element {
			e.X1, e.Y1, e.X2, e.Y2 = e.X1+dx, e.Y1+dy, e.X2+dx, e.Y2+dy
			return e
		},
		Line: func(e Line) Element {
			e.X1, e.Y1, e.X2, e.Y2 = e.X1+dx, e.Y1+dy, e.X2+dx, e.Y2+dy
			e.Points = shift(e.Points, dx, dy)
			return e
		},
		Text: func(e Text) Element {
			e.X, e.Y = e.X+dx, e.Y+dy
			return e
		},
		Mermaid: func(e Mermaid) Element {
			e.X, e.Y = e.X+dx, e.Y+dy
			return e
		},
	})
}

func shift(pts []geom.Point, dx, dy float64) []geom.Point {
	if pts == nil {
		return nil
	}
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Add(dx, dy)
	}
	return out
}
