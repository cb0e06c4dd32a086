// Package engine turns pointer input and commands into board edits. It owns
// the element array, the selection, the viewport and the undo history, and
// reports every local change so it can be published to peers.
package engine

import (
	"sync"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/hit"
	"CollabBoard/internal/history"
	"CollabBoard/internal/route"
	"CollabBoard/internal/state"
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Measurer     geom.TextMeasurer
	SnapRadius   float64
	HistoryLimit int
	Theme        state.Theme
	ScreenWidth  float64
	ScreenHeight float64
}

// Pointer is one pointer event in screen pixels.
type Pointer struct {
	Screen geom.Point
	Shift  bool
	// Detach frees a connector end from its shape while dragging it.
	Detach bool
	// Pan drags the view whatever the current tool.
	Pan bool
}

// TextEdit is an open label editor.
type TextEdit struct {
	ID   string
	Text string
}

// Engine is safe for concurrent use. Callbacks run after the internal lock
// is released.
type Engine struct {
	mu   sync.Mutex
	m    geom.TextMeasurer
	snap float64
	hist *history.History

	els      state.Elements
	selected map[string]bool
	tool     state.Tool
	prevTool state.Tool
	style    state.Style
	theme    state.Theme
	view     state.Viewport

	action     Action
	start      geom.Point
	last       geom.Point
	lastScreen geom.Point
	base       state.Elements
	handle     Handle
	handleBase state.Element
	drawing    state.Element
	startConn  *route.Connection
	marquee    *geom.Bounds
	snapHint   *hit.Snap
	preview    state.Element

	edit     *TextEdit
	editBase state.Elements
	editNew  bool

	styleBase state.Elements

	dirty bool

	// OnLocalChange receives the board after every local edit, including
	// in-progress drags. Set before the first event.
	OnLocalChange func(state.Elements)
	// OnCursor receives the pointer position in world space.
	OnCursor func(geom.Point)
	// OnRedraw is called after anything visible changed.
	OnRedraw func()
}

// New creates an engine over initial.
func New(initial state.Elements, opts Options) *Engine {
	if opts.Measurer == nil {
		opts.Measurer = geom.MonoMeasurer{}
	}
	if opts.SnapRadius <= 0 {
		opts.SnapRadius = hit.SnapRadius
	}
	if opts.Theme == "" {
		opts.Theme = state.Light
	}
	if opts.ScreenWidth <= 0 || opts.ScreenHeight <= 0 {
		opts.ScreenWidth, opts.ScreenHeight = 1920, 1080
	}
	if initial == nil {
		initial = state.Elements{}
	}
	return &Engine{
		m:        opts.Measurer,
		snap:     opts.SnapRadius,
		hist:     history.New(initial, opts.HistoryLimit),
		els:      initial,
		selected: map[string]bool{},
		tool:     state.ToolSelection,
		style:    state.Style{Color: opts.Theme.DrawColor(), StrokeWidth: 2},
		theme:    opts.Theme,
		view:     state.NewViewport(opts.ScreenWidth, opts.ScreenHeight),
	}
}

// update runs fn under the lock and fires callbacks afterwards.
func (e *Engine) update(fn func()) {
	e.mu.Lock()
	fn()
	dirty, els := e.dirty, e.els
	e.dirty = false
	onChange, onRedraw := e.OnLocalChange, e.OnRedraw
	e.mu.Unlock()
	if dirty && onChange != nil {
		onChange(els)
	}
	if onRedraw != nil {
		onRedraw()
	}
}

// commit records els as a new undo step.
func (e *Engine) commit(els state.Elements) {
	if e.hist.Checkpoint(els) {
		e.els = e.hist.Current()
		e.dirty = true
	}
}

// replace shows els without adding an undo step.
func (e *Engine) replace(els state.Elements) {
	if state.Equal(els, e.els) {
		return
	}
	e.hist.Replace(els)
	e.els = els
	e.dirty = true
}

// finalize closes an in-place edit that started at base.
func (e *Engine) finalize(base state.Elements) {
	if base == nil {
		return
	}
	if e.hist.Finalize(base) {
		e.dirty = true
	}
	e.els = e.hist.Current()
}

func (e *Engine) pruneSelection() {
	for id := range e.selected {
		if e.els.Index(id) < 0 {
			delete(e.selected, id)
		}
	}
}

// Elements returns the current board.
func (e *Engine) Elements() state.Elements {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.els
}

// Drawing returns the element being drawn, which is not on the board yet.
func (e *Engine) Drawing() (state.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawing, e.drawing != nil
}

// Preview returns the default-size ghost shown under a shape tool.
func (e *Engine) Preview() (state.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preview, e.preview != nil
}

// Marquee returns the selection rectangle while one is being dragged.
func (e *Engine) Marquee() (geom.Bounds, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.marquee == nil {
		return geom.Bounds{}, false
	}
	return *e.marquee, true
}

// SnapHint returns the connection point a connector end would bind to.
func (e *Engine) SnapHint() (hit.Snap, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapHint == nil {
		return hit.Snap{}, false
	}
	return *e.snapHint, true
}

// Selection returns the selected ids in paint order.
func (e *Engine) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []string
	for _, el := range e.els {
		if e.selected[el.Meta().ID] {
			ids = append(ids, el.Meta().ID)
		}
	}
	return ids
}

// Select replaces the selection.
func (e *Engine) Select(ids ...string) {
	e.update(func() {
		e.selected = map[string]bool{}
		for _, id := range ids {
			if e.els.Index(id) >= 0 {
				e.selected[id] = true
			}
		}
	})
}

func (e *Engine) Action() Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.action
}

func (e *Engine) Tool() state.Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// SetTool switches tools and clears the hover preview.
func (e *Engine) SetTool(t state.Tool) {
	e.update(func() {
		e.tool = t
		e.preview = nil
	})
}

func (e *Engine) Style() state.Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style
}

func (e *Engine) Theme() state.Theme {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.theme
}

func (e *Engine) Viewport() state.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Measurer returns the text measurer bounds are computed with.
func (e *Engine) Measurer() geom.TextMeasurer {
	return e.m
}

// Editing returns the open label editor.
func (e *Engine) Editing() (TextEdit, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edit == nil {
		return TextEdit{}, false
	}
	return *e.edit, true
}

// Handles returns the grips for the current selection.
func (e *Engine) Handles() []Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Handles(e.els, e.selected, e.view.Zoom, e.m)
}

func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanUndo()
}

func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanRedo()
}

// HistoryLen returns how many snapshots the undo stack holds.
func (e *Engine) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.Len()
}

func (e *Engine) strokeWidthOf(id string) float64 {
	if el, ok := e.els.Find(id); ok {
		return state.StrokeWidthOf(el)
	}
	return 0
}
