package state

import (
	"encoding/json"
	"reflect"
	"testing"

	"CollabBoard/internal/geom"
)

var mono = geom.MonoMeasurer{Advance: 0.5}

func TestBoundsNormalized(t *testing.T) {
	els := []Element{
		Shape{Common: Common{ID: "s"}, X1: 100, Y1: 80, X2: 10, Y2: 20, Tool: ToolRectangle},
		Line{Common: Common{ID: "l"}, X1: 50, Y1: 50, X2: 0, Y2: 0},
		Line{Common: Common{ID: "p"}, Points: []geom.Point{{X: 30, Y: 5}, {X: 30, Y: 40}, {X: -10, Y: 40}}},
	}
	for _, el := range els {
		b := BoundsOf(el, mono)
		if b.X1 > b.X2 || b.Y1 > b.Y2 {
			t.Errorf("%s: bounds not normalized: %+v", el.Meta().ID, b)
		}
	}
}

func TestTextBoundsAlignment(t *testing.T) {
	txt := Text{Common: Common{ID: "t"}, X: 100, Y: 0, Text: "abcd", FontSize: 10}
	tests := []struct {
		align Align
		x1    float64
	}{
		{AlignLeft, 100},
		{AlignCenter, 90},
		{AlignRight, 80},
	}
	for _, tt := range tests {
		txt.Align = tt.align
		b := BoundsOf(txt, mono)
		if b.X1 != tt.x1 || b.Width != 20 || b.Height != 12 {
			t.Errorf("%s: expected x1=%v 20x12, got %+v", tt.align, tt.x1, b)
		}
	}
}

func TestNewElementDashedTools(t *testing.T) {
	el, ok := NewElement("a", ToolRoundedRectangleDashed, geom.Pt(0, 0), geom.Pt(10, 10), Style{Color: "red", StrokeWidth: 2})
	if !ok {
		t.Fatal("expected an element")
	}
	s := el.(Shape)
	if s.Tool != ToolRoundedRectangle || s.StrokeStyle != Dashed {
		t.Errorf("expected dashed rounded rectangle, got %s/%s", s.Tool, s.StrokeStyle)
	}
	if _, ok := NewElement("b", ToolEraser, geom.Pt(0, 0), geom.Pt(1, 1), Style{}); ok {
		t.Error("eraser should not create elements")
	}
	line, _ := NewElement("c", ToolArrow, geom.Pt(1, 2), geom.Pt(3, 4), Style{})
	if got := line.(Line).Points; len(got) != 2 {
		t.Errorf("expected 2 points, got %v", got)
	}
	if w, h, _ := DefaultSize(ToolEllipseDashed); w != 100 || h != 100 {
		t.Errorf("expected 100x100, got %vx%v", w, h)
	}
}

func TestElementsJSON(t *testing.T) {
	els := Elements{
		Pen{Common: Common{ID: "p", Locked: true}, Points: []geom.Point{{X: 1, Y: 2}}, Color: "#000", StrokeWidth: 2},
		Shape{Common: Common{ID: "s", Angle: 30}, X2: 10, Y2: 10, Tool: ToolEllipse, StrokeStyle: Dashed, Text: "hi"},
		Line{Common: Common{ID: "l", GroupID: "g"}, X2: 5, Points: []geom.Point{{}, {X: 5}}, Tool: ToolArrow,
			StartBinding: &Binding{ElementID: "s", Side: geom.SideRight, SideOffset: 5}},
		Text{Common: Common{ID: "t"}, Text: "a\nb", FontSize: 16, FontFamily: DefaultFontFamily, Align: AlignCenter},
		Mermaid{Common: Common{ID: "m"}, Width: 600, Height: 400, Code: "graph TD"},
	}
	data, err := json.Marshal(els)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("raw: %v", err)
	}
	if raw[2]["type"] != "line" || raw[2]["startBinding"].(map[string]any)["sideOffset"] != 5.0 {
		t.Errorf("unexpected wire form for line: %v", raw[2])
	}
	var back Elements
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(els, back) {
		t.Errorf("expected %+v, got %+v", els, back)
	}
	if _, err := UnmarshalElement([]byte(`{"type":"blob","id":"x"}`)); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestUpdateIsCopyOnWrite(t *testing.T) {
	orig := Elements{Shape{Common: Common{ID: "a"}, X2: 10, Y2: 10}}
	moved := orig.Update("a", func(el Element) Element { return Translate(el, 5, 5) })
	if orig[0].(Shape).X1 != 0 {
		t.Error("original slice was mutated")
	}
	if moved[0].(Shape).X1 != 5 {
		t.Errorf("expected x1=5, got %v", moved[0].(Shape).X1)
	}
	if same := orig.Update("missing", func(el Element) Element { return el }); !Equal(same, orig) {
		t.Error("missing id should be a no-op")
	}
}

func TestTranslateLineKeepsPoints(t *testing.T) {
	l := Line{Common: Common{ID: "l"}, X2: 10, Points: []geom.Point{{}, {X: 10}}}
	got := Translate(l, 3, 4).(Line)
	if got.Start() != geom.Pt(3, 4) || got.End() != geom.Pt(13, 4) {
		t.Errorf("unexpected endpoints %v %v", got.Start(), got.End())
	}
	if l.Points[0] != (geom.Point{}) {
		t.Error("translate aliased the points slice")
	}
}

func TestReplicaIgnoresOwnEcho(t *testing.T) {
	r := NewReplica("me")
	snap := r.CommitLocal(Elements{Shape{Common: Common{ID: "a"}}})
	if r.ApplyRemote(snap) {
		t.Error("own snapshot should be ignored")
	}
	remote := Snapshot{Elements: Elements{}, Stamp: Stamp{Lamport: 10, Site: "peer"}}
	if !r.ApplyRemote(remote) {
		t.Fatal("remote snapshot should apply")
	}
	if len(r.Current().Elements) != 0 {
		t.Error("remote snapshot should replace the board")
	}
	if next := r.CommitLocal(nil); next.Stamp.Lamport != 11 {
		t.Errorf("expected lamport 11, got %d", next.Stamp.Lamport)
	}
}

func TestViewportZoomClamp(t *testing.T) {
	v := NewViewport(1000, 800)
	if z := v.SetZoom(10).Zoom; z != MaxZoom {
		t.Errorf("expected %v, got %v", MaxZoom, z)
	}
	if z := v.SetZoom(0.01).Zoom; z != MinZoom {
		t.Errorf("expected %v, got %v", MinZoom, z)
	}
	z := v.ZoomAt(2, geom.Pt(100, 100))
	if got := z.ToScreen(geom.Pt(100, 100)); got != v.ToScreen(geom.Pt(100, 100)) {
		t.Errorf("zoom anchor moved on screen: %v", got)
	}
}

func TestViewportFit(t *testing.T) {
	v := NewViewport(1000, 800).Fit(geom.NewBounds(0, 0, 100, 100))
	if v.Zoom != 1 || v.X != -50 || v.Y != -50 {
		t.Errorf("unexpected fit %+v", v)
	}
	v = NewViewport(1000, 800).Fit(geom.NewBounds(0, 0, 3900, 100))
	if v.Zoom != 0.25 {
		t.Errorf("expected zoom 0.25, got %v", v.Zoom)
	}
}

func TestPlaceDiagram(t *testing.T) {
	v := NewViewport(1000, 800)
	p, next := v.PlaceDiagram(nil, mono)
	if p != geom.Pt(200, 200) || next != v {
		t.Errorf("expected centred placement, got %v", p)
	}
	var els Elements
	for i := 0; i < 6; i++ {
		els = append(els, Shape{Common: Common{ID: NewID()}, X1: float64(i * 10), X2: float64(i*10 + 5), Y2: 5})
	}
	p, next = v.PlaceDiagram(els, mono)
	if p != geom.Pt(1100, 0) {
		t.Errorf("expected (1100,0), got %v", p)
	}
	if next.X != 1050 || next.Y != -50 {
		t.Errorf("expected scroll to (1050,-50), got (%v,%v)", next.X, next.Y)
	}
}

func TestRecolor(t *testing.T) {
	els := Elements{
		Pen{Common: Common{ID: "a"}, Color: Light.DrawColor()},
		Pen{Common: Common{ID: "b"}, Color: "#ff0000"},
	}
	got := Recolor(els, Light, Dark)
	if ColorOf(got[0]) != "#e2e8f0" || ColorOf(got[1]) != "#ff0000" {
		t.Errorf("unexpected colours %s %s", ColorOf(got[0]), ColorOf(got[1]))
	}
}
