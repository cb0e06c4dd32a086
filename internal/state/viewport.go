package state

import (
	"math"

	"CollabBoard/internal/geom"
)

const (
	MinZoom = 0.1
	MaxZoom = 4.0

	DiagramWidth  = 600.0
	DiagramHeight = 400.0

	fitPadding     = 50.0
	crowdedView    = 5
	diagramGap     = 100.0
	diagramScrollM = 50.0
)

// Viewport maps the window onto the board. X, Y, Width and Height are in
// world units; ScreenWidth and ScreenHeight are in pixels and Width always
// equals ScreenWidth / Zoom.
type Viewport struct {
	X, Y          float64
	Width, Height float64
	ScreenWidth   float64
	ScreenHeight  float64
	Zoom          float64
}

// NewViewport returns a viewport at the origin with zoom 1.
func NewViewport(screenW, screenH float64) Viewport {
	return Viewport{Width: screenW, Height: screenH, ScreenWidth: screenW, ScreenHeight: screenH, Zoom: 1}
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Bounds returns the visible world rectangle.
func (v Viewport) Bounds() geom.Bounds {
	return geom.NewBounds(v.X, v.Y, v.X+v.Width, v.Y+v.Height)
}

// ToWorld converts a screen position to world space.
func (v Viewport) ToWorld(screen geom.Point) geom.Point {
	return geom.Pt(v.X+screen.X/v.Zoom, v.Y+screen.Y/v.Zoom)
}

// ToScreen converts a world position to screen space.
func (v Viewport) ToScreen(world geom.Point) geom.Point {
	return geom.Pt((world.X-v.X)*v.Zoom, (world.Y-v.Y)*v.Zoom)
}

// ZoomAt sets the zoom level keeping the world point center fixed on screen.
func (v Viewport) ZoomAt(level float64, center geom.Point) Viewport {
	z := clampZoom(level)
	w, h := v.ScreenWidth/z, v.ScreenHeight/z
	out := v
	if v.Width > 0 && v.Height > 0 {
		out.X = center.X - (center.X-v.X)*(w/v.Width)
		out.Y = center.Y - (center.Y-v.Y)*(h/v.Height)
	}
	out.Width, out.Height, out.Zoom = w, h, z
	return out
}

// SetZoom zooms about the middle of the view.
func (v Viewport) SetZoom(level float64) Viewport {
	return v.ZoomAt(level, v.Bounds().Center())
}

// Wheel applies a ctrl-wheel zoom step at a world point.
func (v Viewport) Wheel(deltaY float64, at geom.Point) Viewport {
	return v.ZoomAt(v.Zoom*(1-deltaY*0.001), at)
}

// Scroll moves the view by a screen-space delta.
func (v Viewport) Scroll(dx, dy float64) Viewport {
	v.X += dx / v.Zoom
	v.Y += dy / v.Zoom
	return v
}

// Pan drags the board by a world-space delta.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X -= dx
	v.Y -= dy
	return v
}

// Resize keeps the zoom while the window changes size.
func (v Viewport) Resize(screenW, screenH float64) Viewport {
	v.ScreenWidth, v.ScreenHeight = screenW, screenH
	v.Width, v.Height = screenW/v.Zoom, screenH/v.Zoom
	return v
}

// CenterOn puts p in the middle of the view.
func (v Viewport) CenterOn(p geom.Point) Viewport {
	v.X = p.X - v.Width/2
	v.Y = p.Y - v.Height/2
	return v
}

// Fit frames b with a margin, never zooming in past 1.
func (v Viewport) Fit(b geom.Bounds) Viewport {
	w := b.Width + fitPadding*2
	h := b.Height + fitPadding*2
	z := math.Min(1, math.Min(v.ScreenWidth/w, v.ScreenHeight/h))
	z = clampZoom(z)
	v.X, v.Y = b.X1-fitPadding, b.Y1-fitPadding
	v.Zoom = z
	v.Width, v.Height = v.ScreenWidth/z, v.ScreenHeight/z
	return v
}

// CountIntersecting returns how many els overlap the visible area.
func (v Viewport) CountIntersecting(els []Element, m geom.TextMeasurer) int {
	view := v.Bounds()
	n := 0
	for _, el := range els {
		if BoundsOf(el, m).Intersects(view) {
			n++
		}
	}
	return n
}

// PlaceDiagram picks the top-left corner for a new diagram. A crowded view
// pushes the diagram past its right edge and scrolls there; otherwise it is
// centred. The returned viewport is v when no scroll is needed.
func (v Viewport) PlaceDiagram(els []Element, m geom.TextMeasurer) (geom.Point, Viewport) {
	if v.CountIntersecting(els, m) > crowdedView {
		p := geom.Pt(v.X+v.Width+diagramGap, v.Y)
		next := v
		next.X, next.Y = p.X-diagramScrollM, p.Y-diagramScrollM
		return p, next
	}
	c := v.Bounds().Center()
	return geom.Pt(c.X-DiagramWidth/2, c.Y-DiagramHeight/2), v
}
