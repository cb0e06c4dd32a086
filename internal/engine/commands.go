package engine

import (
	"log"
	"math"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

func (e *Engine) selectionSet() map[string]bool {
	out := make(map[string]bool, len(e.selected))
	for id := range e.selected {
		out[id] = true
	}
	return out
}

func (e *Engine) mapSelected(fn func(state.Element) state.Element) state.Elements {
	return e.els.Map(func(el state.Element) state.Element {
		if e.selected[el.Meta().ID] {
			return fn(el)
		}
		return el
	})
}

// Group puts the selection into a fresh group.
func (e *Engine) Group() {
	e.update(func() {
		if len(e.selected) < 2 {
			return
		}
		gid := state.NewID()
		e.commit(e.mapSelected(func(el state.Element) state.Element {
			return state.WithGroup(el, gid)
		}))
	})
}

// Ungroup dissolves every group the selection touches.
func (e *Engine) Ungroup() {
	e.update(func() {
		groups := map[string]bool{}
		for _, el := range e.els {
			if c := el.Meta(); e.selected[c.ID] && c.GroupID != "" {
				groups[c.GroupID] = true
			}
		}
		if len(groups) == 0 {
			return
		}
		e.commit(e.els.Map(func(el state.Element) state.Element {
			if groups[el.Meta().GroupID] {
				return state.WithGroup(el, "")
			}
			return el
		}))
	})
}

// ToggleLock flips the lock of each id, or of the selection when no ids
// are given.
func (e *Engine) ToggleLock(ids ...string) {
	e.update(func() {
		set := e.selectionSet()
		if len(ids) > 0 {
			set = map[string]bool{}
			for _, id := range ids {
				set[id] = true
			}
		}
		if len(set) == 0 {
			return
		}
		e.commit(e.els.Map(func(el state.Element) state.Element {
			if c := el.Meta(); set[c.ID] {
				return state.WithLocked(el, !c.Locked)
			}
			return el
		}))
	})
}

// Delete removes the selection.
func (e *Engine) Delete() {
	e.update(func() {
		if len(e.selected) == 0 {
			return
		}
		e.commit(e.els.Without(e.selected))
		e.selected = map[string]bool{}
	})
}

// Clear empties the board.
func (e *Engine) Clear() {
	e.update(func() {
		e.commit(state.Elements{})
		e.selected = map[string]bool{}
	})
}

// Reorder changes the paint order of the selection.
func (e *Engine) Reorder(dir ZOrder) {
	e.update(func() {
		e.commit(Reorder(e.els, e.selected, dir))
	})
}

func (e *Engine) CanBringForward() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CanBringForward(e.els, e.selected)
}

func (e *Engine) CanSendBackward() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CanSendBackward(e.els, e.selected)
}

// SetColor changes the brush colour and recolours the selection.
func (e *Engine) SetColor(color string) {
	e.update(func() {
		e.style.Color = color
		if len(e.selected) > 0 {
			e.commit(e.mapSelected(func(el state.Element) state.Element {
				return state.WithColor(el, color)
			}))
		}
	})
}

// PreviewStrokeWidth shows a stroke width on the selection while a slider
// is dragged. No undo step is recorded until CommitStrokeWidth.
func (e *Engine) PreviewStrokeWidth(w float64) {
	e.update(func() {
		e.style.StrokeWidth = w
		if len(e.selected) == 0 {
			return
		}
		if e.styleBase == nil {
			e.styleBase = e.els
		}
		e.replace(e.mapSelected(func(el state.Element) state.Element {
			return state.WithStrokeWidth(el, w)
		}))
	})
}

// CommitStrokeWidth ends a slider drag as one undo step.
func (e *Engine) CommitStrokeWidth(w float64) {
	e.update(func() {
		e.style.StrokeWidth = w
		base := e.styleBase
		e.styleBase = nil
		if len(e.selected) == 0 {
			return
		}
		if base == nil {
			base = e.els
		}
		e.replace(e.mapSelected(func(el state.Element) state.Element {
			return state.WithStrokeWidth(el, w)
		}))
		e.finalize(base)
	})
}

// TextProps are the editable properties of a Text element. Zero fields are
// left unchanged.
type TextProps struct {
	FontSize   float64
	FontFamily string
	Align      state.Align
	Color      string
}

// UpdateTextProps applies props to the Text element id.
func (e *Engine) UpdateTextProps(id string, props TextProps) {
	e.update(func() {
		e.commit(e.els.Update(id, func(el state.Element) state.Element {
			t, ok := el.(state.Text)
			if !ok {
				return el
			}
			if props.FontSize > 0 {
				t.FontSize = props.FontSize
			}
			if props.FontFamily != "" {
				t.FontFamily = props.FontFamily
			}
			if props.Align != "" {
				t.Align = props.Align
			}
			if props.Color != "" {
				t.Color = props.Color
			}
			t.Width = e.m.MeasureText(t.Text, t.FontSize, t.FontFamily).Width
			return t
		}))
	})
}

// BeginEdit opens the label editor on a shape, connector or text element.
func (e *Engine) BeginEdit(id string) bool {
	ok := false
	e.update(func() {
		if e.edit != nil {
			e.commitText()
		}
		el, found := e.els.Find(id)
		if !found || el.Meta().Locked {
			return
		}
		switch el.(type) {
		case state.Shape, state.Line, state.Text:
		default:
			return
		}
		e.edit = &TextEdit{ID: id, Text: state.Label(el)}
		e.editBase = e.els
		e.editNew = false
		ok = true
	})
	return ok
}

// EditText updates the text in the open editor.
func (e *Engine) EditText(text string) {
	e.update(func() {
		if e.edit != nil {
			e.edit.Text = text
		}
	})
}

// CommitText writes the open editor's text into its element.
func (e *Engine) CommitText() {
	e.update(e.commitText)
}

// CancelEdit closes the editor without changes. A text element created
// for the edit is removed again.
func (e *Engine) CancelEdit() {
	e.update(func() {
		if e.edit == nil {
			return
		}
		if e.editNew {
			e.replace(e.editBase)
		}
		e.edit, e.editBase, e.editNew = nil, nil, false
	})
}

func (e *Engine) commitText() {
	edit, base := e.edit, e.editBase
	e.edit, e.editBase, e.editNew = nil, nil, false
	el, ok := e.els.Find(edit.ID)
	if !ok {
		return
	}
	var next state.Elements
	switch t := el.(type) {
	case state.Text:
		if edit.Text == "" {
			next = e.els.Without(map[string]bool{t.ID: true})
			delete(e.selected, t.ID)
			break
		}
		t.Text = edit.Text
		t.Width = e.m.MeasureText(t.Text, t.FontSize, t.FontFamily).Width
		next = e.els.Replace(t)
	case state.Shape:
		t.Text = edit.Text
		next = e.els.Replace(FitShapeToText(t, state.DefaultFontSize, e.m))
		next = reconnect(next, map[string]bool{t.ID: true}, false, e.m)
	default:
		next = e.els.Replace(state.WithLabel(el, edit.Text))
	}
	e.replace(next)
	e.finalize(base)
}

// SetMermaidCode replaces the source of a diagram.
func (e *Engine) SetMermaidCode(id, code string) {
	e.update(func() {
		e.commit(e.els.Update(id, func(el state.Element) state.Element {
			if m, ok := el.(state.Mermaid); ok {
				m.Code = code
				return m
			}
			return el
		}))
	})
}

// ResizeMermaid feeds a rendered diagram's intrinsic size back into the
// element. Changes of a unit or less are ignored so rendering can't loop.
func (e *Engine) ResizeMermaid(id string, width, height float64) {
	e.update(func() {
		e.replace(e.els.Update(id, func(el state.Element) state.Element {
			m, ok := el.(state.Mermaid)
			if !ok || (math.Abs(m.Width-width) <= 1 && math.Abs(m.Height-height) <= 1) {
				return el
			}
			m.Width, m.Height = width, height
			return m
		}))
	})
}

// AddDiagram places a new diagram where it won't cover a busy view and
// returns its id.
func (e *Engine) AddDiagram(code string) string {
	id := state.NewID()
	e.update(func() {
		p, view := e.view.PlaceDiagram(e.els, e.m)
		e.view = view
		e.commit(e.els.Append(state.NewMermaid(id, p, state.DiagramWidth, state.DiagramHeight, code)))
		e.selected = map[string]bool{id: true}
		e.tool = state.ToolSelection
	})
	return id
}

// Undo steps back in the history.
func (e *Engine) Undo() {
	e.update(func() { e.step(e.hist.Undo) })
}

// Redo steps forward in the history.
func (e *Engine) Redo() {
	e.update(func() { e.step(e.hist.Redo) })
}

func (e *Engine) step(move func() (state.Elements, bool)) {
	if e.action != ActionNone {
		return
	}
	// the slot under the cursor still holds the empty text being typed
	if e.editNew {
		e.hist.Replace(e.editBase)
	}
	els, ok := move()
	if !ok {
		return
	}
	e.edit, e.editBase, e.editNew = nil, nil, false
	e.els = els
	e.dirty = true
	e.pruneSelection()
}

// SetTheme switches the theme, recolouring elements drawn in the old
// theme's default ink.
func (e *Engine) SetTheme(t state.Theme) {
	e.update(func() {
		if t == e.theme {
			return
		}
		old := e.theme
		e.theme = t
		if e.style.Color == old.DrawColor() {
			e.style.Color = t.DrawColor()
		}
		e.commit(state.Recolor(e.els, old, t))
	})
}

// ApplyRemote shows a board received from a peer. It replaces the current
// snapshot without an undo step and is not reported to OnLocalChange. An
// edit in progress continues from the remote board.
func (e *Engine) ApplyRemote(els state.Elements) {
	e.update(func() {
		if els == nil {
			els = state.Elements{}
		}
		e.hist.Replace(els)
		e.els = els
		if e.base != nil {
			e.base = els
		}
		if e.editBase != nil {
			e.editBase = els
		}
		if e.styleBase != nil {
			e.styleBase = els
		}
		if e.handleBase != nil {
			if el, ok := els.Find(e.handleBase.Meta().ID); ok {
				e.handleBase = el
				e.start = e.last
			}
		}
		if e.edit != nil && els.Index(e.edit.ID) < 0 {
			log.Printf("[ENGINE] Element %s removed by a peer while editing", e.edit.ID)
			e.edit, e.editBase, e.editNew = nil, nil, false
		}
		e.pruneSelection()
	})
}

// Load starts over from els with an empty history.
func (e *Engine) Load(els state.Elements) {
	e.update(func() {
		if els == nil {
			els = state.Elements{}
		}
		e.hist.Reset(els)
		e.els = els
		e.selected = map[string]bool{}
		e.edit, e.editBase, e.editNew = nil, nil, false
	})
}

// Zoom sets the zoom level about the middle of the view.
func (e *Engine) Zoom(level float64) {
	e.update(func() { e.view = e.view.SetZoom(level) })
}

// ZoomAt sets the zoom level keeping the screen point fixed.
func (e *Engine) ZoomAt(level float64, screen geom.Point) {
	e.update(func() { e.view = e.view.ZoomAt(level, e.view.ToWorld(screen)) })
}

// Wheel zooms about the pointer when zoom is set and scrolls otherwise.
func (e *Engine) Wheel(dx, dy float64, screen geom.Point, zoom bool) {
	e.update(func() {
		if zoom {
			e.view = e.view.Wheel(dy, e.view.ToWorld(screen))
			return
		}
		e.view = e.view.Scroll(dx, dy)
	})
}

// CenterView frames every element.
func (e *Engine) CenterView() {
	e.update(func() {
		if b, ok := state.BoundsOfAll(e.els, e.m); ok {
			e.view = e.view.Fit(b)
		}
	})
}

// CenterOn scrolls a world point, such as a peer's cursor, to the middle.
func (e *Engine) CenterOn(p geom.Point) {
	e.update(func() { e.view = e.view.CenterOn(p) })
}

// ResizeScreen tells the engine the drawing area changed size.
func (e *Engine) ResizeScreen(w, h float64) {
	e.update(func() { e.view = e.view.Resize(w, h) })
}
