package engine

import (
	"CollabBoard/internal/geom"
	"CollabBoard/internal/hit"
	"CollabBoard/internal/route"
	"CollabBoard/internal/state"
)

// minDrag is the drag distance, in world units, below which a shape is
// placed at its default size and other elements count as degenerate.
const minDrag = 5.0

// PointerDown starts an action based on what lies under the pointer.
func (e *Engine) PointerDown(p Pointer) {
	e.update(func() { e.pointerDown(p) })
}

// PointerMove advances the current action, or updates the hover preview.
func (e *Engine) PointerMove(p Pointer) {
	var (
		onCursor func(geom.Point)
		w        geom.Point
	)
	e.update(func() {
		w = e.view.ToWorld(p.Screen)
		onCursor = e.OnCursor
		e.pointerMove(p, w)
	})
	if onCursor != nil {
		onCursor(w)
	}
}

// PointerUp finishes the current action and records it in the history.
func (e *Engine) PointerUp(p Pointer) {
	e.update(func() { e.pointerUp(p) })
}

func (e *Engine) pointerDown(p Pointer) {
	w := e.view.ToWorld(p.Screen)
	e.start, e.last, e.lastScreen = w, w, p.Screen
	e.preview = nil
	if e.edit != nil {
		e.commitText()
	}

	if p.Pan || e.tool == state.ToolPan {
		e.action = ActionPanning
		return
	}
	if e.tool == state.ToolSelection {
		hs := Handles(e.els, e.selected, e.view.Zoom, e.m)
		if h, ok := HandleAt(hs, w, e.view.Zoom, e.strokeWidthOf); ok {
			e.beginHandle(h)
			return
		}
	}

	switch {
	case e.tool == state.ToolSelection:
		e.pressSelect(p, w)
	case e.tool == state.ToolEraser:
		e.action = ActionErasing
		e.base = e.els
		e.erase(w)
	case e.tool == state.ToolText:
		el, _ := state.NewElement(state.NewID(), state.ToolText, w, w, e.style)
		e.editBase = e.els
		e.editNew = true
		e.replace(e.els.Append(el))
		e.selected = map[string]bool{el.Meta().ID: true}
		e.edit = &TextEdit{ID: el.Meta().ID}
		e.tool = state.ToolSelection
	case e.tool.IsDrawing():
		e.beginDrawing(w)
	}
}

func (e *Engine) pressSelect(p Pointer, w geom.Point) {
	el, ok := hit.ElementAt(w, e.els, e.m)
	if !ok {
		if !p.Shift {
			e.selected = map[string]bool{}
		}
		e.action = ActionSelecting
		b := geom.NewBounds(w.X, w.Y, w.X, w.Y)
		e.marquee = &b
		return
	}
	c := el.Meta()
	ids := []string{c.ID}
	if c.GroupID != "" {
		ids = e.els.Group(c.GroupID)
	}
	if p.Shift {
		on := !e.selected[c.ID]
		for _, id := range ids {
			if on {
				e.selected[id] = true
			} else {
				delete(e.selected, id)
			}
		}
		return
	}
	if !e.selected[c.ID] {
		e.selected = map[string]bool{}
		for _, id := range ids {
			e.selected[id] = true
		}
	}
	if !c.Locked {
		e.action = ActionMoving
		e.base = e.els
	}
}

func (e *Engine) beginHandle(h Handle) {
	e.handle = h
	e.base = e.els
	switch h.Kind {
	case HandleRotate:
		e.action = ActionRotating
	case HandleLineStart:
		e.action = ActionLineEditingStart
	case HandleLineEnd:
		e.action = ActionLineEditingEnd
	case HandleLineSegment:
		e.action = ActionLineSegmentEditing
	default:
		el, ok := e.els.Find(h.ElementIDs[0])
		if !ok {
			e.base = nil
			return
		}
		e.action = ActionResizing
		e.handleBase = el
	}
}

func (e *Engine) beginDrawing(w geom.Point) {
	start := w
	var snap hit.Snap
	snapped := false
	if e.tool.IsLineTool() {
		snap, snapped = hit.FindSnapPoint(w, e.els, "", e.view.Zoom, e.snap)
		if snapped {
			start = snap.Connection.Point
		}
	}
	el, ok := state.NewElement(state.NewID(), e.tool, start, start, e.style)
	if !ok {
		return
	}
	if l, isLine := el.(state.Line); isLine && snapped {
		if shape, found := e.els.Find(snap.ShapeID); found {
			l.StartShapeID = snap.ShapeID
			l.StartBinding = bindingAt(snap.ShapeID, start, state.BoundsOf(shape, e.m))
			conn := snap.Connection
			e.startConn = &conn
			el = l
		}
	}
	e.start = start
	e.drawing = el
	e.action = ActionDrawing
}

func (e *Engine) pointerMove(p Pointer, w geom.Point) {
	defer func() {
		e.last, e.lastScreen = w, p.Screen
	}()
	switch e.action {
	case ActionNone:
		e.hover(w)
	case ActionPanning:
		d := p.Screen.Sub(e.lastScreen)
		e.view = e.view.Pan(d.X/e.view.Zoom, d.Y/e.view.Zoom)
		// the board moved under the pointer, so w is stale
		w = e.view.ToWorld(p.Screen)
	case ActionDrawing:
		e.drawing = e.extend(e.drawing, w)
	case ActionMoving:
		d := w.Sub(e.last)
		e.replace(Move(e.els, ExpandGroups(e.els, e.selected), d.X, d.Y, e.m))
	case ActionResizing:
		d := w.Sub(e.start)
		e.replace(Resize(e.els, e.handleBase, e.handle.Kind, d.X, d.Y, e.m))
	case ActionRotating:
		angle := RotationAngle(e.handle.Center, w)
		e.replace(Rotate(e.els, e.base, e.handle.ElementIDs, e.handle.Center, angle, e.m))
	case ActionLineEditingStart, ActionLineEditingEnd:
		e.dragEndpoint(p, w)
	case ActionLineSegmentEditing:
		e.replace(EditSegment(e.els, e.handle.ElementIDs[0], e.handle.Segment, w))
	case ActionErasing:
		e.erase(w)
	case ActionSelecting:
		b := geom.NewBounds(e.start.X, e.start.Y, w.X, w.Y)
		e.marquee = &b
	}
}

// hover shows a default-size ghost under shape tools.
func (e *Engine) hover(w geom.Point) {
	if !e.tool.IsShapeTool() {
		e.preview = nil
		return
	}
	dw, dh, _ := state.DefaultSize(e.tool)
	e.preview, _ = state.NewElement("preview", e.tool, w, w.Add(dw, dh), e.style)
}

// extend grows the in-flight element to the cursor.
func (e *Engine) extend(el state.Element, w geom.Point) state.Element {
	return state.Match(el, state.Cases[state.Element]{
		Pen: func(p state.Pen) state.Element {
			p.Points = append(append([]geom.Point(nil), p.Points...), w)
			return p
		},
		Shape: func(s state.Shape) state.Element {
			s.X2, s.Y2 = w.X, w.Y
			return s
		},
		Line: func(l state.Line) state.Element {
			snap, ok := hit.FindSnapPoint(w, e.els, l.StartShapeID, e.view.Zoom, e.snap)
			e.snapHint = nil
			end := route.Connection{Point: w, Dir: geom.North}
			if ok {
				e.snapHint = &snap
				end = snap.Connection
			}
			if e.startConn != nil {
				return l.WithPoints(route.Route(*e.startConn, end))
			}
			return l.WithPoints([]geom.Point{e.start, end.Point})
		},
		Text:    func(t state.Text) state.Element { return t },
		Mermaid: func(m state.Mermaid) state.Element { return m },
	})
}

func (e *Engine) dragEndpoint(p Pointer, w geom.Point) {
	id := e.handle.ElementIDs[0]
	start := e.action == ActionLineEditingStart
	e.snapHint = nil
	var snap *hit.Snap
	if !p.Detach {
		exclude := ""
		if el, ok := e.els.Find(id); ok {
			if l, ok := el.(state.Line); ok {
				exclude = l.StartShapeID
				if start {
					exclude = l.EndShapeID
				}
			}
		}
		if s, ok := hit.FindSnapPoint(w, e.els, exclude, e.view.Zoom, e.snap); ok {
			snap = &s
			e.snapHint = &s
		}
	}
	e.replace(EditEndpoint(e.els, id, start, w, snap, e.m))
}

// erase removes the unlocked element under w.
func (e *Engine) erase(w geom.Point) {
	el, ok := hit.ElementAt(w, e.els, e.m)
	if !ok || el.Meta().Locked {
		return
	}
	id := el.Meta().ID
	delete(e.selected, id)
	e.replace(e.els.Without(map[string]bool{id: true}))
}

func (e *Engine) pointerUp(p Pointer) {
	w := e.view.ToWorld(p.Screen)
	switch {
	case e.action.inPlace():
		e.finalize(e.base)
	case e.action == ActionDrawing:
		e.finishDrawing(w)
	case e.action == ActionSelecting:
		if !p.Shift {
			e.selected = map[string]bool{}
		}
		picked := map[string]bool{}
		for _, id := range hit.Marquee(e.start, w, e.els, e.m) {
			picked[id] = true
		}
		for id := range ExpandGroups(e.els, picked) {
			e.selected[id] = true
		}
	}
	e.action = ActionNone
	e.base = nil
	e.handle = Handle{}
	e.handleBase = nil
	e.drawing = nil
	e.startConn = nil
	e.marquee = nil
	e.snapHint = nil
}

func (e *Engine) finishDrawing(w geom.Point) {
	el := e.drawing
	if el == nil {
		return
	}
	short := e.start.Dist(w) < minDrag
	switch d := el.(type) {
	case state.Shape:
		if short {
			if dw, dh, ok := state.DefaultSize(e.tool); ok {
				d.X2, d.Y2 = d.X1+dw, d.Y1+dh
			}
		}
		el = d
	case state.Line:
		if snap, ok := hit.FindSnapPoint(w, e.els, d.StartShapeID, e.view.Zoom, e.snap); ok {
			if shape, found := e.els.Find(snap.ShapeID); found {
				d.EndShapeID = snap.ShapeID
				d.EndBinding = bindingAt(snap.ShapeID, snap.Connection.Point, state.BoundsOf(shape, e.m))
				if e.startConn != nil {
					d = d.WithPoints(route.Route(*e.startConn, snap.Connection))
				} else {
					d = d.WithPoints([]geom.Point{e.start, snap.Connection.Point})
				}
			}
		}
		if d.StartShapeID != "" && d.EndShapeID == "" {
			return
		}
		el = d
	}

	_, isPen := el.(state.Pen)
	b := state.BoundsOf(el, e.m)
	if !isPen && b.Width <= minDrag && b.Height <= minDrag {
		return
	}
	e.commit(e.els.Append(el))
	if !isPen {
		e.selected = map[string]bool{el.Meta().ID: true}
		e.tool = state.ToolSelection
	}
}
