package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"CollabBoard/internal/engine"
	"CollabBoard/internal/export"
	"CollabBoard/internal/state"
)

// Palette is the swatch row. "default" follows the theme ink.
var Palette = []string{
	state.DefaultColorName, "#dc2626", "#16a34a", "#2563eb", "#ca8a04", "#9333ea",
}

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	Theme    func() state.Theme
	OnTapped func(string)
}

func newColorSwatch(hex string, th func() state.Theme, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, Theme: th, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) fill() color.Color {
	c, ok := export.ParseColor(s.Theme().ResolveColor(s.Hex))
	if !ok {
		return color.Black
	}
	return c
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.fill())
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return &swatchRenderer{WidgetRenderer: widget.NewSimpleRenderer(container.NewStack(rect, border)), swatch: s, rect: rect}
}

type swatchRenderer struct {
	fyne.WidgetRenderer
	swatch *colorSwatch
	rect   *canvas.Rectangle
}

func (r *swatchRenderer) Refresh() {
	r.rect.FillColor = r.swatch.fill()
	r.rect.Refresh()
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

// Toolbar is the strip above the board. Sync brings it in line with the
// engine after every redraw.
type Toolbar struct {
	engine *engine.Engine

	tools    *widget.Select
	undo     *widget.Button
	redo     *widget.Button
	forward  *widget.Button
	backward *widget.Button
	swatches []*colorSwatch
	stroke   *widget.Slider

	content fyne.CanvasObject
}

// ToolbarActions are the buttons whose work happens outside the engine.
type ToolbarActions struct {
	Export  func()
	Save    func()
	Open    func()
	Diagram func()
	Rename  func()
}

// --- The Main Toolbar ---
func NewToolbar(board *BoardWidget, actions ToolbarActions) *Toolbar {
	e := board.engine
	t := &Toolbar{engine: e}

	names := make([]string, len(state.Tools))
	for i, tool := range state.Tools {
		names[i] = string(tool)
	}
	t.tools = widget.NewSelect(names, func(s string) {
		tool := state.Tool(s)
		if tool == state.ToolDiagram {
			e.SetTool(state.ToolSelection)
			if actions.Diagram != nil {
				actions.Diagram()
			}
			return
		}
		if e.Tool() != tool {
			e.SetTool(tool)
		}
	})
	t.tools.SetSelected(string(e.Tool()))

	// toolbar with built-in tooltips
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), orNoop(actions.Save)),
		widget.NewToolbarAction(theme.FolderOpenIcon(), orNoop(actions.Open)),
		widget.NewToolbarAction(theme.UploadIcon(), orNoop(actions.Export)),
		widget.NewToolbarAction(theme.DocumentCreateIcon(), orNoop(actions.Rename)),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DeleteIcon(), e.Delete),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { e.Zoom(e.Viewport().Zoom * 1.2) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { e.Zoom(e.Viewport().Zoom / 1.2) }),
		widget.NewToolbarAction(theme.ZoomFitIcon(), e.CenterView),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), func() { e.SetTheme(e.Theme().Other()) }),
	)
	t.undo = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), e.Undo)
	t.redo = widget.NewButtonWithIcon("", theme.ContentRedoIcon(), e.Redo)
	t.forward = widget.NewButton("Forward", func() { e.Reorder(engine.Forward) })
	t.backward = widget.NewButton("Backward", func() { e.Reorder(engine.Backward) })
	arrange := container.NewHBox(
		widget.NewButton("Group", e.Group),
		widget.NewButton("Ungroup", e.Ungroup),
		widget.NewButton("Lock", func() { e.ToggleLock() }),
		t.backward,
		t.forward,
	)

	// --- Color Palette ---
	colorBox := container.NewHBox()
	for _, hex := range Palette {
		s := newColorSwatch(hex, e.Theme, e.SetColor)
		t.swatches = append(t.swatches, s)
		colorBox.Add(s)
	}

	// --- Stroke Width Slider ---
	t.stroke = widget.NewSlider(1.0, 50.0)
	t.stroke.SetValue(e.Style().StrokeWidth)
	t.stroke.OnChanged = e.PreviewStrokeWidth
	t.stroke.OnChangeEnded = e.CommitStrokeWidth
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), t.stroke)

	// --- Assemble everything ---
	t.content = container.NewHBox(
		widget.NewLabel("Tool:"),
		t.tools,
		t.undo,
		t.redo,
		tb,
		widget.NewSeparator(),
		arrange,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		layout.NewSpacer(),
	)
	t.Sync()
	return t
}

func orNoop(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}

func (t *Toolbar) Content() fyne.CanvasObject { return t.content }

// Sync must run on the UI goroutine.
func (t *Toolbar) Sync() {
	e := t.engine
	if tool := string(e.Tool()); t.tools.Selected != tool {
		t.tools.SetSelected(tool)
	}
	enable(t.undo, e.CanUndo())
	enable(t.redo, e.CanRedo())
	enable(t.forward, e.CanBringForward())
	enable(t.backward, e.CanSendBackward())
	for _, s := range t.swatches {
		s.Refresh()
	}
}

func enable(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}
