package export

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/JoshVarga/svgparser"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

func sampleBoard() state.Elements {
	return state.Elements{
		state.Shape{Common: state.Common{ID: "box"}, X1: 0, Y1: 0, X2: 100, Y2: 50, Tool: state.ToolRectangle, Color: "#18181b", StrokeWidth: 2, Text: "A & B"},
		state.Shape{Common: state.Common{ID: "oval", Angle: 45}, X1: 200, Y1: 0, X2: 300, Y2: 100, Tool: state.ToolEllipse, Color: "#ff0000", StrokeWidth: 2, StrokeStyle: state.Dashed},
		state.Line{
			Common: state.Common{ID: "arrow"},
			X1:     100, Y1: 25, X2: 200, Y2: 50,
			Points: []geom.Point{geom.Pt(100, 25), geom.Pt(150, 25), geom.Pt(150, 50), geom.Pt(200, 50)},
			Tool:   state.ToolArrow, Color: "default", StrokeWidth: 2,
		},
		state.Pen{Common: state.Common{ID: "ink"}, Points: []geom.Point{geom.Pt(0, 80), geom.Pt(20, 90), geom.Pt(40, 80)}, Color: "#2563eb", StrokeWidth: 3},
		state.Text{Common: state.Common{ID: "note"}, X: 0, Y: 120, Text: "line one\n<two>", FontSize: 20, FontFamily: "Inter", Color: "#18181b", Align: state.AlignLeft},
		state.Mermaid{Common: state.Common{ID: "chart"}, X: 400, Y: 0, Width: 200, Height: 100, Code: "graph TD\n  A-->B"},
	}
}

func parseSVG(t *testing.T, data []byte) *svgparser.Element {
	t.Helper()
	root, err := svgparser.Parse(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("output is not valid SVG: %v\n%s", err, data)
	}
	return root
}

func TestSVGFrameAndContent(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Measurer: geom.MonoMeasurer{}}
	if err := (SVG{}).Export(context.Background(), &buf, sampleBoard(), opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	root := parseSVG(t, buf.Bytes())
	frame, _ := Frame(sampleBoard(), opts)
	if got := root.Attributes["viewBox"]; got != strings.Join([]string{f(frame.X1), f(frame.Y1), f(frame.Width), f(frame.Height)}, " ") {
		t.Errorf("unexpected viewBox %q for frame %+v", got, frame)
	}
	if frame.X1 != -20 || frame.Y1 != -20 {
		t.Errorf("expected 20 padding around the origin, got %+v", frame)
	}

	groups := root.FindAll("g")
	ids := map[string]*svgparser.Element{}
	for _, g := range groups {
		if id := g.Attributes["id"]; id != "" {
			ids[id] = g
		}
	}
	for _, el := range sampleBoard() {
		if ids[el.Meta().ID] == nil {
			t.Errorf("expected a group for %s", el.Meta().ID)
		}
	}
	if tr := ids["oval"].Attributes["transform"]; tr != "rotate(45 250 50)" {
		t.Errorf("expected rotation about the centre, got %q", tr)
	}
	if dash := ids["oval"].FindAll("ellipse")[0].Attributes["stroke-dasharray"]; dash != "8 4" {
		t.Errorf("expected dashed ellipse, got %q", dash)
	}
	if paths := ids["arrow"].FindAll("path"); len(paths) != 2 {
		t.Errorf("expected line and arrow head, got %d paths", len(paths))
	} else if stroke := paths[0].Attributes["stroke"]; stroke != "#18181b" {
		t.Errorf("expected default colour resolved, got %q", stroke)
	}
	if !bytes.Contains(buf.Bytes(), []byte("A &amp; B")) || !bytes.Contains(buf.Bytes(), []byte("&lt;two&gt;")) {
		t.Error("expected label text escaped")
	}
	if len(ids["chart"].FindAll("rect")) != 1 {
		t.Error("expected diagram without renderer to be framed")
	}
}

func TestSVGSelectionOnly(t *testing.T) {
	var buf bytes.Buffer
	sel := Subset(sampleBoard(), []string{"oval"})
	if err := (SVG{}).Export(context.Background(), &buf, sel, Options{Padding: 10}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	root := parseSVG(t, buf.Bytes())
	if root.Attributes["width"] != "120" || root.Attributes["height"] != "120" {
		t.Errorf("expected 120x120, got %sx%s", root.Attributes["width"], root.Attributes["height"])
	}
	if n := len(root.FindAll("g")); n != 1 {
		t.Errorf("expected only the selected element, got %d groups", n)
	}
}

func TestSVGEmbedsRenderedDiagram(t *testing.T) {
	var buf bytes.Buffer
	els := state.Elements{state.Mermaid{Common: state.Common{ID: "m"}, X: 0, Y: 0, Width: 100, Height: 100, Code: "graph LR\n  A-->B"}}
	opts := Options{Renderer: collab.SourceRenderer{Measurer: geom.MonoMeasurer{}}}
	if err := (SVG{}).Export(context.Background(), &buf, els, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	root := parseSVG(t, buf.Bytes())
	if len(root.FindAll("svg")) == 0 {
		t.Errorf("expected nested diagram markup, got %s", buf.String())
	}
}

func TestEmptyExport(t *testing.T) {
	for _, format := range []string{"svg", "pdf", "png"} {
		ex, err := New(format)
		if err != nil {
			t.Fatalf("New(%s): %v", format, err)
		}
		if err := ex.Export(context.Background(), &bytes.Buffer{}, nil, Options{}); !errors.Is(err, ErrEmpty) {
			t.Errorf("%s: expected ErrEmpty, got %v", format, err)
		}
	}
	if _, err := New("gif"); err == nil {
		t.Error("expected unknown format to fail")
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := (PDF{}).Export(context.Background(), &buf, sampleBoard(), Options{Background: true, Theme: state.Dark}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("expected a PDF header, got %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	els := sampleBoard()
	opts := Options{Scale: 2, Measurer: geom.MonoMeasurer{}}
	if err := (PNG{}).Export(context.Background(), &buf, els, opts); err != nil {
		t.Fatalf("Export: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	frame, _ := Frame(els, opts)
	if got := img.Bounds().Dx(); got != int(frame.Width*2) {
		t.Errorf("expected width %v, got %d", frame.Width*2, got)
	}
	// the padding corner is background
	if r, g, b, _ := img.At(1, 1).RGBA(); r>>8 != 0xff || g>>8 != 0xff || b>>8 != 0xff {
		t.Errorf("expected white background, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in string
		ok bool
		r  uint8
	}{
		{"#ff8000", true, 0xff},
		{"#f80", true, 0xff},
		{"#18181b", true, 0x18},
		{"red", false, 0},
		{"#12345", false, 0},
	}
	for _, tt := range tests {
		c, ok := ParseColor(tt.in)
		if ok != tt.ok || c.R != tt.r {
			t.Errorf("ParseColor(%q): expected %v/%d, got %v/%d", tt.in, tt.ok, tt.r, ok, c.R)
		}
	}
	if c := ink("nonsense", state.Dark); c.R != 0xe2 {
		t.Errorf("expected dark ink fallback, got %+v", c)
	}
}
