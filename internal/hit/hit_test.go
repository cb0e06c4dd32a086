package hit

import (
	"reflect"
	"testing"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

var mono = geom.MonoMeasurer{}

func rect(id string, x1, y1, x2, y2 float64) state.Shape {
	return state.Shape{Common: state.Common{ID: id}, X1: x1, Y1: y1, X2: x2, Y2: y2, Tool: state.ToolRectangle, StrokeWidth: 2}
}

func TestContainsCenterForEveryAngle(t *testing.T) {
	els := []state.Element{
		rect("r", 0, 0, 200, 60),
		state.Shape{Common: state.Common{ID: "e"}, X2: 80, Y2: 40, Tool: state.ToolEllipse},
		state.Line{Common: state.Common{ID: "l"}, X2: 100, Y2: 100, Points: []geom.Point{{}, {X: 100, Y: 100}}, StrokeWidth: 2},
		state.Text{Common: state.Common{ID: "t"}, X: 10, Y: 10, Text: "hello", FontSize: 20},
		state.Mermaid{Common: state.Common{ID: "m"}, X: -50, Y: 0, Width: 600, Height: 400},
	}
	for _, el := range els {
		center := state.BoundsOf(el, mono).Center()
		for deg := 0; deg < 360; deg++ {
			rotated := state.WithAngle(el, float64(deg))
			if !Contains(rotated, center, mono) {
				t.Errorf("%s at %d degrees: centre not inside", el.Meta().ID, deg)
				break
			}
		}
	}
}

func TestContainsShapes(t *testing.T) {
	r := rect("r", 0, 0, 100, 50)
	tests := []struct {
		name string
		el   state.Element
		p    geom.Point
		want bool
	}{
		{"rect padding", r, geom.Pt(104, 25), true},
		{"rect outside", r, geom.Pt(106, 25), false},
		{"ellipse corner", state.Shape{X2: 100, Y2: 50, Tool: state.ToolEllipse}, geom.Pt(2, 2), false},
		{"flat ellipse", state.Shape{X2: 100, Tool: state.ToolEllipse}, geom.Pt(50, 0), false},
		{"line near", state.Line{Points: []geom.Point{{}, {X: 100}}, StrokeWidth: 2}, geom.Pt(50, 5), true},
		{"line far", state.Line{Points: []geom.Point{{}, {X: 100}}, StrokeWidth: 2}, geom.Pt(50, 6), false},
		{"thick line", state.Line{Points: []geom.Point{{}, {X: 100}}, StrokeWidth: 20}, geom.Pt(50, 9), true},
		{"pen dot", state.Pen{Points: []geom.Point{{X: 10, Y: 10}}, StrokeWidth: 2}, geom.Pt(12, 12), true},
		{"rotated rect", state.WithAngle(rect("rr", 0, 0, 100, 20), 90), geom.Pt(50, -30), true},
		{"rotated rect original corner", state.WithAngle(rect("rr", 0, 0, 100, 20), 90), geom.Pt(0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(tt.el, tt.p, mono); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestElementAtTopmost(t *testing.T) {
	els := state.Elements{rect("bottom", 0, 0, 100, 100), rect("top", 50, 50, 150, 150)}
	el, ok := ElementAt(geom.Pt(75, 75), els, mono)
	if !ok || el.Meta().ID != "top" {
		t.Errorf("expected top, got %v", el)
	}
	if _, ok := ElementAt(geom.Pt(500, 500), els, mono); ok {
		t.Error("expected miss")
	}
}

func TestFindSnapPoint(t *testing.T) {
	els := state.Elements{rect("a", 0, 0, 100, 100), rect("b", 200, 0, 300, 100)}
	snap, ok := FindSnapPoint(geom.Pt(105, 52), els, "", 1, SnapRadius)
	if !ok || snap.ShapeID != "a" || snap.Connection.Dir != geom.East || snap.Connection.Point != geom.Pt(100, 50) {
		t.Errorf("unexpected snap %+v", snap)
	}
	if _, ok := FindSnapPoint(geom.Pt(105, 52), els, "a", 1, SnapRadius); ok {
		t.Error("excluded shape should not snap")
	}
	if _, ok := FindSnapPoint(geom.Pt(120, 50), els, "", 1, SnapRadius); ok {
		t.Error("radius is exclusive")
	}
	if _, ok := FindSnapPoint(geom.Pt(130, 50), els, "", 0.5, SnapRadius); !ok {
		t.Error("zooming out widens the world radius")
	}
}

func TestMarqueeContainment(t *testing.T) {
	els := state.Elements{
		rect("inside", 10, 10, 50, 50),
		rect("straddle", 90, 90, 150, 150),
		rect("outside", 200, 200, 250, 250),
		rect("edge", 0, 0, 100, 20),
	}
	got := Marquee(geom.Pt(100, 100), geom.Pt(0, 0), els, mono)
	if !reflect.DeepEqual(got, []string{"inside", "edge"}) {
		t.Errorf("expected [inside edge], got %v", got)
	}
}
