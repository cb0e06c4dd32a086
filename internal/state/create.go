package state

import "CollabBoard/internal/geom"

// Tool is a palette entry. Shapes and lines also record the tool that drew
// them, with dashed variants folded into StrokeStyle.
type Tool string

const (
	ToolSelection              Tool = "selection"
	ToolPan                    Tool = "pan"
	ToolPen                    Tool = "pen"
	ToolEraser                 Tool = "eraser"
	ToolDiagram                Tool = "ai-diagram"
	ToolText                   Tool = "text"
	ToolRectangle              Tool = "rectangle"
	ToolRectangleDashed        Tool = "rectangle-dashed"
	ToolRoundedRectangle       Tool = "rectangle-rounded"
	ToolRoundedRectangleDashed Tool = "rectangle-rounded-dashed"
	ToolEllipse                Tool = "ellipse"
	ToolEllipseDashed          Tool = "ellipse-dashed"
	ToolLine                   Tool = "line"
	ToolArrow                  Tool = "arrow"
)

// Tools lists the palette in display order.
var Tools = []Tool{
	ToolSelection, ToolPan, ToolPen, ToolEraser, ToolText,
	ToolRectangle, ToolRectangleDashed, ToolRoundedRectangle, ToolRoundedRectangleDashed,
	ToolEllipse, ToolEllipseDashed, ToolLine, ToolArrow, ToolDiagram,
}

// IsShapeTool reports whether t draws a Shape.
func (t Tool) IsShapeTool() bool {
	_, ok := shapeTools[t]
	return ok
}

// IsLineTool reports whether t draws a Line.
func (t Tool) IsLineTool() bool {
	return t == ToolLine || t == ToolArrow
}

// IsDrawing reports whether pressing on the canvas with t creates an element.
func (t Tool) IsDrawing() bool {
	return t.IsShapeTool() || t.IsLineTool() || t == ToolPen || t == ToolText
}

type shapeTool struct {
	base   Tool
	style  StrokeStyle
	width  float64
	height float64
}

var shapeTools = map[Tool]shapeTool{
	ToolRectangle:              {ToolRectangle, Solid, 150, 100},
	ToolRectangleDashed:        {ToolRectangle, Dashed, 150, 100},
	ToolRoundedRectangle:       {ToolRoundedRectangle, Solid, 150, 100},
	ToolRoundedRectangleDashed: {ToolRoundedRectangle, Dashed, 150, 100},
	ToolEllipse:                {ToolEllipse, Solid, 100, 100},
	ToolEllipseDashed:          {ToolEllipse, Dashed, 100, 100},
}

// DefaultSize is the size a shape gets when placed with a click.
func DefaultSize(t Tool) (w, h float64, ok bool) {
	s, ok := shapeTools[t]
	return s.width, s.height, ok
}

// Style is the current brush.
type Style struct {
	Color       string
	StrokeWidth float64
}

const (
	DefaultFontSize   = 16.0
	DefaultFontFamily = "Inter, sans-serif"
)

// NewElement builds the element tool draws over the drag p1 to p2. Tools
// that don't draw return false.
func NewElement(id string, tool Tool, p1, p2 geom.Point, style Style) (Element, bool) {
	common := Common{ID: id}
	if s, ok := shapeTools[tool]; ok {
		return Shape{
			Common: common,
			X1:     p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y,
			Tool:        s.base,
			Color:       style.Color,
			StrokeWidth: style.StrokeWidth,
			StrokeStyle: s.style,
		}, true
	}
	switch tool {
	case ToolLine, ToolArrow:
		return Line{
			Common: common,
			X1:     p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y,
			Points:      []geom.Point{p1, p2},
			Tool:        tool,
			Color:       style.Color,
			StrokeWidth: style.StrokeWidth,
		}, true
	case ToolPen:
		return Pen{
			Common:      common,
			Points:      []geom.Point{p1},
			Color:       style.Color,
			StrokeWidth: style.StrokeWidth,
		}, true
	case ToolText:
		return Text{
			Common:     common,
			X:          p1.X,
			Y:          p1.Y,
			FontSize:   DefaultFontSize,
			FontFamily: DefaultFontFamily,
			Color:      style.Color,
			Align:      AlignLeft,
		}, true
	}
	return nil, false
}

// NewMermaid places a diagram of the given size at p.
func NewMermaid(id string, p geom.Point, width, height float64, code string) Mermaid {
	return Mermaid{Common: Common{ID: id}, X: p.X, Y: p.Y, Width: width, Height: height, Code: code}
}
