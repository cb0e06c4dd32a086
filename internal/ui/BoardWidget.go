package ui

import (
	"image/color"
	"strings"
	"sync"
	"unicode"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/engine"
	"CollabBoard/internal/export"
	"CollabBoard/internal/geom"
	"CollabBoard/internal/hit"
	"CollabBoard/internal/state"
)

// BoardWidget shows an engine's board and feeds it pointer, wheel and
// keyboard input.
type BoardWidget struct {
	widget.BaseWidget
	engine *engine.Engine

	mu      sync.RWMutex
	peers   []collab.Cursor
	pressed bool
	shift   bool
	ctrl    bool

	statusBar *widget.Label

	// OnOpenDiagram is called when a diagram is double-clicked.
	OnOpenDiagram func(state.Mermaid)
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.DoubleTappable = (*BoardWidget)(nil)
var _ fyne.Focusable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ desktop.Keyable = (*BoardWidget)(nil)

func NewBoardWidget(e *engine.Engine) *BoardWidget {
	b := &BoardWidget{
		engine:    e,
		statusBar: widget.NewLabel("Ready"),
	}
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardWidget) Engine() *engine.Engine { return b.engine }

// SetPeers replaces the remote cursors drawn on top of the board.
func (b *BoardWidget) SetPeers(peers []collab.Cursor) {
	b.mu.Lock()
	b.peers = peers
	b.mu.Unlock()
	b.Refresh()
}

func (b *BoardWidget) Peers() []collab.Cursor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.peers
}

// SetStatus may be called from any goroutine.
func (b *BoardWidget) SetStatus(text string) {
	fyne.Do(func() { b.statusBar.SetText(text) })
}

func (b *BoardWidget) pointer(pos fyne.Position, pan bool) engine.Pointer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return engine.Pointer{
		Screen: geom.Pt(float64(pos.X), float64(pos.Y)),
		Shift:  b.shift,
		Detach: b.ctrl,
		Pan:    pan,
	}
}

func (b *BoardWidget) setModifiers(m fyne.KeyModifier) {
	b.mu.Lock()
	b.shift = m&fyne.KeyModifierShift != 0
	b.ctrl = m&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0
	b.mu.Unlock()
}

func (b *BoardWidget) focus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		c.Focus(b)
	}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	b.focus()
	b.setModifiers(e.Modifier)
	b.mu.Lock()
	b.pressed = true
	b.mu.Unlock()
	b.engine.PointerDown(b.pointer(e.Position, e.Button == desktop.MouseButtonTertiary))
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	b.setModifiers(e.Modifier)
	b.mu.Lock()
	b.pressed = false
	b.mu.Unlock()
	b.engine.PointerUp(b.pointer(e.Position, false))
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.engine.PointerMove(b.pointer(e.Position, false))
}

// MouseMoved drives hover previews and the local cursor. While a button is
// down Dragged delivers the same positions.
func (b *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	b.mu.RLock()
	pressed := b.pressed
	b.mu.RUnlock()
	if pressed {
		return
	}
	b.setModifiers(e.Modifier)
	b.engine.PointerMove(b.pointer(e.Position, false))
}

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	b.mu.RLock()
	zoom := b.ctrl
	b.mu.RUnlock()
	b.engine.Wheel(-float64(e.Scrolled.DX), -float64(e.Scrolled.DY),
		geom.Pt(float64(e.Position.X), float64(e.Position.Y)), zoom)
}

// DoubleTapped opens the label editor, or the diagram editor for diagrams.
func (b *BoardWidget) DoubleTapped(e *fyne.PointEvent) {
	w := b.engine.Viewport().ToWorld(geom.Pt(float64(e.Position.X), float64(e.Position.Y)))
	el, ok := hit.ElementAt(w, b.engine.Elements(), b.engine.Measurer())
	if !ok {
		return
	}
	if m, isDiagram := el.(state.Mermaid); isDiagram {
		if b.OnOpenDiagram != nil {
			b.OnOpenDiagram(m)
		}
		return
	}
	b.engine.BeginEdit(el.Meta().ID)
}

func (b *BoardWidget) Resize(size fyne.Size) {
	b.BaseWidget.Resize(size)
	b.engine.ResizeScreen(float64(size.Width), float64(size.Height))
}

func (b *BoardWidget) FocusGained() {}
func (b *BoardWidget) FocusLost()   {}

// TypedRune maps printed characters onto the single-key shortcuts. Shifted
// brackets arrive as braces.
func (b *BoardWidget) TypedRune(r rune) {
	shift := unicode.IsUpper(r)
	switch r {
	case '{':
		r, shift = '[', true
	case '}':
		r, shift = ']', true
	}
	b.engine.KeyDown(engine.Key{Name: strings.ToLower(string(r)), Shift: shift})
}

func (b *BoardWidget) TypedKey(e *fyne.KeyEvent) {
	b.mu.RLock()
	shift := b.shift
	b.mu.RUnlock()
	switch e.Name {
	case fyne.KeyDelete:
		b.engine.KeyDown(engine.Key{Name: "delete", Shift: shift})
	case fyne.KeyBackspace:
		b.engine.KeyDown(engine.Key{Name: "backspace", Shift: shift})
	case fyne.KeyEscape:
		b.engine.CancelEdit()
		b.engine.Select()
	}
}

// KeyDown tracks modifiers and the alt-to-pan switch.
func (b *BoardWidget) KeyDown(e *fyne.KeyEvent) {
	b.modifierKey(e.Name, true)
}

func (b *BoardWidget) KeyUp(e *fyne.KeyEvent) {
	b.modifierKey(e.Name, false)
}

func (b *BoardWidget) modifierKey(name fyne.KeyName, down bool) {
	switch name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		b.mu.Lock()
		b.shift = down
		b.mu.Unlock()
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		b.mu.Lock()
		b.ctrl = down
		b.mu.Unlock()
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		if down {
			b.engine.KeyDown(engine.Key{Name: "alt"})
		} else {
			b.engine.KeyUp(engine.Key{Name: "alt"})
		}
	}
}

// Shortcut runs a ctrl/cmd shortcut such as undo.
func (b *BoardWidget) Shortcut(s *desktop.CustomShortcut) {
	b.engine.KeyDown(engine.Key{
		Name:  strings.ToLower(string(s.KeyName)),
		Shift: s.Modifier&fyne.KeyModifierShift != 0,
		Ctrl:  true,
	})
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}
func (b *BoardWidget) MouseOut()                   {}
func (b *BoardWidget) DragEnd()                    {}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.background = canvas.NewRectangle(color.White)
	r.Refresh()
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle

	mu      sync.Mutex
	objects []fyne.CanvasObject
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objects
}

// Refresh rebuilds the scene from the engine.
func (r *boardWidgetRenderer) Refresh() {
	s := sceneOf(r.board.engine, r.board.Peers())
	bg := "#ffffff"
	if s.theme == state.Dark {
		bg = "#09090b"
	}
	if c, ok := export.ParseColor(bg); ok {
		r.background.FillColor = c
	}
	objects := append([]fyne.CanvasObject{r.background}, s.objects()...)
	r.mu.Lock()
	r.objects = objects
	r.mu.Unlock()
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Destroy() {}
func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}
func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}
