package ui

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/engine"
	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
	"CollabBoard/internal/store"
)

func newTestApp(t *testing.T) (*App, *engine.Engine) {
	t.Helper()
	a := test.NewTempApp(t)
	e := engine.New(nil, engine.Options{Measurer: geom.MonoMeasurer{}, ScreenWidth: 800, ScreenHeight: 600})
	return NewApp(a, Options{Engine: e, DocName: "test"}), e
}

func mouse(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	}
}

func dragBoard(b *BoardWidget, x1, y1, x2, y2 float32) {
	b.MouseDown(mouse(x1, y1))
	b.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x2, y2)}})
	b.MouseUp(mouse(x2, y2))
}

func TestDrawRectangleWithMouse(t *testing.T) {
	ui, e := newTestApp(t)
	e.SetTool(state.ToolRectangle)
	dragBoard(ui.Board(), 10, 20, 210, 120)

	els := e.Elements()
	if len(els) != 1 {
		t.Fatalf("expected 1 element, got %d", len(els))
	}
	s, ok := els[0].(state.Shape)
	if !ok {
		t.Fatalf("expected a shape, got %s", els[0].Kind())
	}
	if s.X1 != 10 || s.Y1 != 20 || s.X2 != 210 || s.Y2 != 120 {
		t.Errorf("expected shape 10,20-210,120, got %v,%v-%v,%v", s.X1, s.Y1, s.X2, s.Y2)
	}
	if !e.CanUndo() {
		t.Error("expected the drawing to be undoable")
	}
}

func TestTypedRuneSwitchesTool(t *testing.T) {
	ui, e := newTestApp(t)
	b := ui.Board()

	b.TypedRune('b')
	if e.Tool() != state.ToolRectangle {
		t.Errorf("expected rectangle, got %s", e.Tool())
	}
	b.TypedRune('B')
	if e.Tool() != state.ToolRectangleDashed {
		t.Errorf("expected dashed rectangle, got %s", e.Tool())
	}
	ui.Toolbar().Sync()
	if got := ui.Toolbar().tools.Selected; got != string(state.ToolRectangleDashed) {
		t.Errorf("expected tool picker to follow the engine, got %q", got)
	}
}

func TestToolPickerDiagramOpensDialog(t *testing.T) {
	ui, e := newTestApp(t)
	opened := 0
	tb := NewToolbar(ui.Board(), ToolbarActions{Diagram: func() { opened++ }})

	tb.tools.SetSelected(string(state.ToolDiagram))
	if opened != 1 {
		t.Errorf("expected diagram action once, got %d", opened)
	}
	if e.Tool() != state.ToolSelection {
		t.Errorf("expected selection tool after diagram pick, got %s", e.Tool())
	}
}

func TestEditorFollowsEngine(t *testing.T) {
	ui, e := newTestApp(t)
	e.Load(state.Elements{state.Shape{Common: state.Common{ID: "box"}, X2: 200, Y2: 100,
		Tool: state.ToolRectangle, Color: "#000000", StrokeWidth: 2}})

	if !e.BeginEdit("box") {
		t.Fatal("expected the editor to open")
	}
	ui.syncEditor()
	if !ui.EditorVisible() {
		t.Fatal("expected the text bar to be shown")
	}
	ui.Editor().SetText("hello")
	if edit, _ := e.Editing(); edit.Text != "hello" {
		t.Errorf("expected editor text to reach the engine, got %q", edit.Text)
	}

	e.CommitText()
	ui.syncEditor()
	if ui.EditorVisible() {
		t.Error("expected the text bar to hide after commit")
	}
	el, _ := e.Elements().Find("box")
	if got := state.Label(el); got != "hello" {
		t.Errorf("expected label hello, got %q", got)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	ui, e := newTestApp(t)
	e.SetTool(state.ToolEllipse)
	dragBoard(ui.Board(), 0, 0, 100, 80)
	e.SetTool(state.ToolPen)
	dragBoard(ui.Board(), 200, 200, 260, 240)

	var buf bytes.Buffer
	if err := ui.SaveTo(&buf); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	other, e2 := newTestApp(t)
	n, err := other.LoadFrom(&buf)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if n != 2 || !state.Equal(e.Elements(), e2.Elements()) {
		t.Errorf("expected the same 2 elements, got %d: %v", n, e2.Elements().IDs())
	}
	if e2.CanUndo() {
		t.Error("expected a loaded board to start with empty history")
	}

	if _, err := other.LoadFrom(strings.NewReader("not json")); err == nil {
		t.Error("expected an error for a broken file")
	}
}

func TestExportTo(t *testing.T) {
	ui, e := newTestApp(t)
	e.SetTool(state.ToolRectangle)
	dragBoard(ui.Board(), 0, 0, 100, 100)

	var buf bytes.Buffer
	if err := ui.ExportTo(&buf, ".svg"); err != nil {
		t.Fatalf("ExportTo: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "<svg") {
		t.Errorf("expected svg output, got %q", buf.String()[:20])
	}
	if err := ui.ExportTo(&buf, "doc"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func countObjects(objs []fyne.CanvasObject) (lines, rects, texts int) {
	for _, o := range objs {
		switch o.(type) {
		case *canvas.Line:
			lines++
		case *canvas.Rectangle:
			rects++
		case *canvas.Text:
			texts++
		}
	}
	return
}

func TestSceneDrawsSelectionAndLabels(t *testing.T) {
	e := engine.New(state.Elements{
		state.Shape{Common: state.Common{ID: "box"}, X1: 10, Y1: 10, X2: 110, Y2: 60,
			Tool: state.ToolRectangle, Color: "#000000", StrokeWidth: 2, Text: "one\ntwo"},
	}, engine.Options{Measurer: geom.MonoMeasurer{}, ScreenWidth: 400, ScreenHeight: 300})

	lines, rects, texts := countObjects(sceneOf(e, nil).objects())
	if lines != 4 || rects != 0 || texts != 2 {
		t.Errorf("expected 4 lines, 0 grips, 2 texts, got %d, %d, %d", lines, rects, texts)
	}

	e.Select("box")
	_, rects, _ = countObjects(sceneOf(e, nil).objects())
	if rects != 8 {
		t.Errorf("expected 8 resize grips, got %d", rects)
	}
}

func TestDashedPolyline(t *testing.T) {
	p := &painter{scene: scene{view: state.NewViewport(100, 100), theme: state.Light, m: geom.MonoMeasurer{}}}
	p.polyline([]geom.Point{geom.Pt(0, 0), geom.Pt(24, 0)}, nil, 2, true)
	if len(p.objs) != 2 {
		t.Fatalf("expected 2 dashes, got %d", len(p.objs))
	}
	second := p.objs[1].(*canvas.Line)
	if second.Position1.X != 12 || second.Position2.X != 20 {
		t.Errorf("expected dash 12-20, got %v-%v", second.Position1.X, second.Position2.X)
	}
}

func TestShapeOutline(t *testing.T) {
	ellipse := ShapeOutline(state.Shape{X1: 0, Y1: 0, X2: 100, Y2: 50, Tool: state.ToolEllipse})
	if len(ellipse) != ellipseSteps+1 {
		t.Errorf("expected %d points, got %d", ellipseSteps+1, len(ellipse))
	}
	for _, pt := range ellipse {
		if pt.X < -1e-9 || pt.X > 100+1e-9 || pt.Y < -1e-9 || pt.Y > 50+1e-9 {
			t.Errorf("point %v outside the shape box", pt)
		}
	}

	rounded := ShapeOutline(state.Shape{X2: 100, Y2: 50, Tool: state.ToolRoundedRectangle})
	if rounded[0] != rounded[len(rounded)-1] {
		t.Error("expected a closed outline")
	}
	if got := ShapeOutline(state.Shape{X2: 10, Y2: 10, Tool: state.ToolRectangle}); len(got) != 5 {
		t.Errorf("expected 5 rectangle points, got %d", len(got))
	}
}

// loopRealtime hands snapshots straight to the subscriber.
type loopRealtime struct {
	mu        sync.Mutex
	onElems   func(state.Snapshot)
	published int
}

func (l *loopRealtime) PublishElements(context.Context, state.Snapshot) error {
	l.mu.Lock()
	l.published++
	l.mu.Unlock()
	return nil
}

func (l *loopRealtime) PublishCursor(context.Context, collab.Cursor) error { return nil }

func (l *loopRealtime) SubscribeElements(fn func(state.Snapshot)) func() {
	l.mu.Lock()
	l.onElems = fn
	l.mu.Unlock()
	return func() {}
}

func (l *loopRealtime) SubscribeCursors(func(collab.Cursor)) func() { return func() {} }

func (l *loopRealtime) deliver(s state.Snapshot) {
	l.mu.Lock()
	fn := l.onElems
	l.mu.Unlock()
	fn(s)
}

func newSharedApp(t *testing.T) (*App, *engine.Engine, *loopRealtime, *store.FileStore) {
	t.Helper()
	files, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	e := engine.New(nil, engine.Options{Measurer: geom.MonoMeasurer{}, ScreenWidth: 800, ScreenHeight: 600})
	rt := &loopRealtime{}
	bridge := collab.NewBridge(e, rt, collab.BridgeOptions{Site: "host"})
	bridge.Start(context.Background())
	t.Cleanup(bridge.Close)
	saver := collab.NewAutosaver(files, "doc", collab.Metadata{Name: "Shared"}, 0, nil)
	ui := NewApp(test.NewTempApp(t), Options{Engine: e, DocName: "Shared", Bridge: bridge, Autosaver: saver})
	return ui, e, rt, files
}

func TestRemoteEditsAreAutosaved(t *testing.T) {
	ui, e, rt, files := newSharedApp(t)
	rt.deliver(state.Snapshot{
		Elements: state.Elements{state.Shape{Common: state.Common{ID: "peer-box"}, X2: 50, Y2: 50,
			Tool: state.ToolRectangle, Color: "#000000", StrokeWidth: 2}},
		Stamp: state.Stamp{Lamport: 1, Site: "guest"},
	})
	if len(e.Elements()) != 1 {
		t.Fatalf("expected the remote board shown, got %d elements", len(e.Elements()))
	}
	ui.opts.Autosaver.Flush()

	doc, err := files.Load(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Elements) != 1 || doc.Elements[0].Meta().ID != "peer-box" {
		t.Errorf("expected the remote board on disk, got %v", doc.Elements.IDs())
	}
	if rt.published != 0 {
		t.Errorf("expected no re-broadcast of a remote board, got %d publishes", rt.published)
	}
}

func TestRename(t *testing.T) {
	ui, _, _, files := newSharedApp(t)
	ui.Rename("   ")
	if ui.DocName() != "Shared" {
		t.Errorf("expected a blank name to be ignored, got %q", ui.DocName())
	}

	ui.Rename("  Roadmap ")
	if ui.DocName() != "Roadmap" {
		t.Errorf("expected Roadmap, got %q", ui.DocName())
	}
	ui.opts.Autosaver.Flush()
	doc, err := files.Load(context.Background(), "doc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Metadata.Name != "Roadmap" {
		t.Errorf("expected the saved name Roadmap, got %q", doc.Metadata.Name)
	}
}
