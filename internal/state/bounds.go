package state

import "CollabBoard/internal/geom"

// BoundsOf returns the axis-aligned box of el, ignoring its angle. Text is
// measured with m; alignment shifts the box left by all or half its width.
func BoundsOf(el Element, m geom.TextMeasurer) geom.Bounds {
	return Match(el, Cases[geom.Bounds]{
		Pen: func(e Pen) geom.Bounds {
			return geom.BoundsOfPoints(e.Points)
		},
		Shape: func(e Shape) geom.Bounds {
			return geom.NewBounds(e.X1, e.Y1, e.X2, e.Y2)
		},
		Line: func(e Line) geom.Bounds {
			if len(e.Points) == 0 {
				return geom.NewBounds(e.X1, e.Y1, e.X2, e.Y2)
			}
			return geom.BoundsOfPoints(e.Points)
		},
		Text: func(e Text) geom.Bounds {
			size := m.MeasureText(e.Text, e.FontSize, e.FontFamily)
			x := e.X
			switch e.Align {
			case AlignCenter:
				x -= size.Width / 2
			case AlignRight:
				x -= size.Width
			}
			return geom.NewBounds(x, e.Y, x+size.Width, e.Y+size.Height)
		},
		Mermaid: func(e Mermaid) geom.Bounds {
			return geom.NewBounds(e.X, e.Y, e.X+e.Width, e.Y+e.Height)
		},
	})
}

// BoundsOfAll returns the union of the boxes of els and false when els is
// empty.
func BoundsOfAll(els []Element, m geom.TextMeasurer) (geom.Bounds, bool) {
	if len(els) == 0 {
		return geom.Bounds{}, false
	}
	b := BoundsOf(els[0], m)
	for _, el := range els[1:] {
		b = b.Union(BoundsOf(el, m))
	}
	return b, true
}
