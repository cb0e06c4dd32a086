package engine

import (
	"math"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/hit"
	"CollabBoard/internal/route"
	"CollabBoard/internal/state"
)

const (
	textPadding   = 20.0
	minTextWidth  = 100.0
	minTextHeight = 50.0
)

// ExpandGroups adds every element sharing a group with one of ids.
func ExpandGroups(els state.Elements, ids map[string]bool) map[string]bool {
	groups := map[string]bool{}
	for _, el := range els {
		if c := el.Meta(); ids[c.ID] && c.GroupID != "" {
			groups[c.GroupID] = true
		}
	}
	out := make(map[string]bool, len(ids))
	for id := range ids {
		out[id] = true
	}
	for _, el := range els {
		if c := el.Meta(); groups[c.GroupID] {
			out[c.ID] = true
		}
	}
	return out
}

func anyLocked(els state.Elements, ids map[string]bool) bool {
	for _, el := range els {
		if c := el.Meta(); ids[c.ID] && c.Locked {
			return true
		}
	}
	return false
}

// Move translates ids by (dx, dy). Connectors attached to a moved shape at
// both ends are routed again between the best pair of connection points;
// other bound endpoints follow their binding. Nothing moves if any of ids
// is locked.
func Move(els state.Elements, ids map[string]bool, dx, dy float64, m geom.TextMeasurer) state.Elements {
	if len(ids) == 0 || anyLocked(els, ids) {
		return els
	}
	moved := els.Map(func(el state.Element) state.Element {
		if ids[el.Meta().ID] {
			return state.Translate(el, dx, dy)
		}
		return el
	})
	return reconnect(moved, ids, true, m)
}

// reconnect brings connectors back in line with the elements in changed.
func reconnect(els state.Elements, changed map[string]bool, reroute bool, m geom.TextMeasurer) state.Elements {
	byID := make(map[string]state.Element, len(els))
	for _, el := range els {
		byID[el.Meta().ID] = el
	}
	return els.Map(func(el state.Element) state.Element {
		l, ok := el.(state.Line)
		if !ok {
			return el
		}
		if reroute && (changed[l.StartShapeID] || changed[l.EndShapeID]) {
			a, okA := byID[l.StartShapeID].(state.Shape)
			b, okB := byID[l.EndShapeID].(state.Shape)
			if okA && okB {
				return routeBetween(l, a, b, m)
			}
		}
		return follow(l, byID, changed, m)
	})
}

func routeBetween(l state.Line, a, b state.Shape, m geom.TextMeasurer) state.Line {
	ab, bb := state.BoundsOf(a, m), state.BoundsOf(b, m)
	from, to := route.BestPair(ab, bb)
	l = l.WithPoints(route.Route(from, to))
	l.StartBinding = bindingAt(a.ID, from.Point, ab)
	l.EndBinding = bindingAt(b.ID, to.Point, bb)
	return l
}

func bindingAt(id string, p geom.Point, b geom.Bounds) *state.Binding {
	s := geom.NearestSide(p, b)
	return &state.Binding{ElementID: id, Side: s.Side, SideOffset: s.Offset}
}

// follow moves bound endpoints to the attachment point their binding
// names. Bindings to missing elements are left alone.
func follow(l state.Line, byID map[string]state.Element, changed map[string]bool, m geom.TextMeasurer) state.Line {
	orth := len(l.Points) >= 3 && route.Orthogonal(l.Points)
	if b := l.StartBinding; b != nil && changed[b.ElementID] {
		if target, ok := byID[b.ElementID]; ok {
			p := geom.AttachmentPoint(state.BoundsOf(target, m), b.Side, b.SideOffset)
			l = moveEndpoint(l, true, p, orth)
		}
	}
	if b := l.EndBinding; b != nil && changed[b.ElementID] {
		if target, ok := byID[b.ElementID]; ok {
			p := geom.AttachmentPoint(state.BoundsOf(target, m), b.Side, b.SideOffset)
			l = moveEndpoint(l, false, p, orth)
		}
	}
	return l
}

// moveEndpoint puts one end of l at p. With orth set the neighbouring
// point slides along with it so the first or last segment stays axis
// aligned.
func moveEndpoint(l state.Line, start bool, p geom.Point, orth bool) state.Line {
	pts := append([]geom.Point(nil), l.Points...)
	if len(pts) < 2 {
		pts = []geom.Point{geom.Pt(l.X1, l.Y1), geom.Pt(l.X2, l.Y2)}
	}
	i, j := 0, 1
	if !start {
		i, j = len(pts)-1, len(pts)-2
	}
	if orth && len(pts) >= 3 {
		switch {
		case pts[i].Y == pts[j].Y:
			pts[j].Y = p.Y
		case pts[i].X == pts[j].X:
			pts[j].X = p.X
		}
	}
	pts[i] = p
	return l.WithPoints(pts)
}

// Resize applies a handle drag of (dx, dy) world units to base, the element
// as it was when the drag began, and updates connectors bound to it. The
// delta is turned into the element's own frame first.
func Resize(els state.Elements, base state.Element, h HandleKind, dx, dy float64, m geom.TextMeasurer) state.Elements {
	if base.Meta().Locked {
		return els
	}
	d := geom.Rotate(geom.Pt(dx, dy), geom.Point{}, -base.Meta().Angle)
	left, right, top, bottom := h.edges()
	b := state.BoundsOf(base, m)
	x1, y1, x2, y2 := b.X1, b.Y1, b.X2, b.Y2
	if left {
		x1 += d.X
	}
	if right {
		x2 += d.X
	}
	if top {
		y1 += d.Y
	}
	if bottom {
		y2 += d.Y
	}
	resized := state.Match(base, state.Cases[state.Element]{
		Shape: func(e state.Shape) state.Element {
			e.X1, e.Y1, e.X2, e.Y2 = x1, y1, x2, y2
			return e
		},
		Mermaid: func(e state.Mermaid) state.Element {
			nb := geom.NewBounds(x1, y1, x2, y2)
			e.X, e.Y, e.Width, e.Height = nb.X1, nb.Y1, nb.Width, nb.Height
			return e
		},
		Pen: func(e state.Pen) state.Element {
			e.Points = scalePoints(e.Points, b, x1, y1, x2, y2)
			return e
		},
		Line: func(e state.Line) state.Element { return e },
		Text: func(e state.Text) state.Element { return e },
	})
	id := base.Meta().ID
	return reconnect(els.Replace(resized), map[string]bool{id: true}, false, m)
}

func scalePoints(pts []geom.Point, from geom.Bounds, x1, y1, x2, y2 float64) []geom.Point {
	sx, sy := 1.0, 1.0
	if from.Width > 0 {
		sx = (x2 - x1) / from.Width
	}
	if from.Height > 0 {
		sy = (y2 - y1) / from.Height
	}
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = geom.Pt(x1+(p.X-from.X1)*sx, y1+(p.Y-from.Y1)*sy)
	}
	return out
}

// RotationAngle is the angle that points an element's top at the cursor.
func RotationAngle(center, cursor geom.Point) float64 {
	return geom.Degrees(cursor.Sub(center)) + 90
}

// Rotate points the rotate grip of ids at angle. The first id carries the
// grip's angle; the others turn by the same amount about center, so a
// group rotates as one piece. Members are taken from base, the selection
// as it was when the drag began.
func Rotate(els, base state.Elements, ids []string, center geom.Point, angle float64, m geom.TextMeasurer) state.Elements {
	if len(ids) == 0 {
		return els
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	if anyLocked(base, set) {
		return els
	}
	ref, ok := base.Find(ids[0])
	if !ok {
		return els
	}
	delta := angle - ref.Meta().Angle
	turned := map[string]state.Element{}
	for _, el := range base {
		c := el.Meta()
		if !set[c.ID] {
			continue
		}
		from := state.BoundsOf(el, m).Center()
		to := geom.Rotate(from, center, delta)
		turned[c.ID] = state.WithAngle(state.Translate(el, to.X-from.X, to.Y-from.Y), c.Angle+delta)
	}
	out := els.Map(func(el state.Element) state.Element {
		if t, ok := turned[el.Meta().ID]; ok {
			return t
		}
		return el
	})
	return reconnect(out, set, false, m)
}

// EditEndpoint drags one end of a connector. With a snap the end binds to
// the nearest side of the snapped shape and sits exactly on the connection
// point; without one it follows the cursor and loses its binding.
func EditEndpoint(els state.Elements, lineID string, start bool, cursor geom.Point, snap *hit.Snap, m geom.TextMeasurer) state.Elements {
	el, ok := els.Find(lineID)
	if !ok {
		return els
	}
	l, ok := el.(state.Line)
	if !ok || l.Locked {
		return els
	}
	p := cursor
	var binding *state.Binding
	shapeID := ""
	if snap != nil {
		if shape, ok := els.Find(snap.ShapeID); ok {
			p = snap.Connection.Point
			binding = bindingAt(snap.ShapeID, p, state.BoundsOf(shape, m))
			shapeID = snap.ShapeID
		}
	}
	l = moveEndpoint(l, start, p, false)
	if start {
		l.StartBinding, l.StartShapeID = binding, shapeID
	} else {
		l.EndBinding, l.EndShapeID = binding, shapeID
	}
	return els.Replace(l)
}

// EditSegment drags segment index of a connector to the cursor, moving
// both of its points across the segment's axis.
func EditSegment(els state.Elements, lineID string, index int, cursor geom.Point) state.Elements {
	el, ok := els.Find(lineID)
	if !ok {
		return els
	}
	l, ok := el.(state.Line)
	if !ok || l.Locked || index < 0 || index+1 >= len(l.Points) {
		return els
	}
	pts := append([]geom.Point(nil), l.Points...)
	p1, p2 := pts[index], pts[index+1]
	if p1.X == p2.X {
		pts[index].X, pts[index+1].X = cursor.X, cursor.X
	} else {
		pts[index].Y, pts[index+1].Y = cursor.Y, cursor.Y
	}
	return els.Replace(l.WithPoints(pts))
}

// ZOrder names a reorder command.
type ZOrder string

const (
	ToFront  ZOrder = "front"
	ToBack   ZOrder = "back"
	Forward  ZOrder = "forward"
	Backward ZOrder = "backward"
)

// Reorder changes the paint order of ids. Front and back move the whole
// set to one end keeping its relative order; forward and backward swap
// each member with its neighbour once.
func Reorder(els state.Elements, ids map[string]bool, dir ZOrder) state.Elements {
	if len(ids) == 0 {
		return els
	}
	in := func(el state.Element) bool { return ids[el.Meta().ID] }
	out := append(state.Elements(nil), els...)
	switch dir {
	case ToFront:
		return append(els.Filter(func(el state.Element) bool { return !in(el) }), els.Filter(in)...)
	case ToBack:
		return append(els.Filter(in), els.Filter(func(el state.Element) bool { return !in(el) })...)
	case Forward:
		for i := len(out) - 2; i >= 0; i-- {
			if in(out[i]) && !in(out[i+1]) {
				out[i], out[i+1] = out[i+1], out[i]
			}
		}
	case Backward:
		for i := 1; i < len(out); i++ {
			if in(out[i]) && !in(out[i-1]) {
				out[i], out[i-1] = out[i-1], out[i]
			}
		}
	}
	return out
}

// CanBringForward reports whether Forward would change anything.
func CanBringForward(els state.Elements, ids map[string]bool) bool {
	for i := 0; i < len(els)-1; i++ {
		if ids[els[i].Meta().ID] && !ids[els[i+1].Meta().ID] {
			return true
		}
	}
	return false
}

// CanSendBackward reports whether Backward would change anything.
func CanSendBackward(els state.Elements, ids map[string]bool) bool {
	for i := 1; i < len(els); i++ {
		if ids[els[i].Meta().ID] && !ids[els[i-1].Meta().ID] {
			return true
		}
	}
	return false
}

// FitShapeToText grows s around its centre until its label fits with
// padding. Shapes are never shrunk.
func FitShapeToText(s state.Shape, fontSize float64, m geom.TextMeasurer) state.Shape {
	if s.Text == "" {
		return s
	}
	size := m.MeasureText(s.Text, fontSize, "sans-serif")
	b := state.BoundsOf(s, m)
	w := math.Max(b.Width, math.Max(minTextWidth, size.Width+textPadding*2))
	h := math.Max(b.Height, math.Max(minTextHeight, size.Height+textPadding*2))
	c := b.Center()
	s.X1, s.Y1, s.X2, s.Y2 = c.X-w/2, c.Y-h/2, c.X+w/2, c.Y+h/2
	return s
}
