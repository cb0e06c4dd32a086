// Package geom holds the pure geometry used by the board: points, normalized
// bounds, side projection, attachment points and rotation helpers.
package geom

import "math"

// Point is a world-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Manhattan returns |dx| + |dy| between a and b.
func Manhattan(a, b Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// Bounds is an axis-aligned box. X1 <= X2 and Y1 <= Y2 always hold for
// values built with NewBounds.
type Bounds struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewBounds normalizes two arbitrary corners into a Bounds.
func NewBounds(x1, y1, x2, y2 float64) Bounds {
	minX, maxX := math.Min(x1, x2), math.Max(x1, x2)
	minY, maxY := math.Min(y1, y2), math.Max(y1, y2)
	return Bounds{X1: minX, Y1: minY, X2: maxX, Y2: maxY, Width: maxX - minX, Height: maxY - minY}
}

// BoundsOfPoints returns the box enclosing pts, or the zero box when empty.
func BoundsOfPoints(pts []Point) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return NewBounds(minX, minY, maxX, maxY)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Point {
	return Point{X: b.X1 + b.Width/2, Y: b.Y1 + b.Height/2}
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

// Within reports whether b lies entirely inside outer.
func (b Bounds) Within(outer Bounds) bool {
	return b.X1 >= outer.X1 && b.X2 <= outer.X2 && b.Y1 >= outer.Y1 && b.Y2 <= outer.Y2
}

// Intersects reports whether the interiors of b and o overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.X1 < o.X2 && b.X2 > o.X1 && b.Y1 < o.Y2 && b.Y2 > o.Y1
}

// Pad grows the box by d on every side.
func (b Bounds) Pad(d float64) Bounds {
	return NewBounds(b.X1-d, b.Y1-d, b.X2+d, b.Y2+d)
}

// Union returns the smallest box enclosing b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return NewBounds(math.Min(b.X1, o.X1), math.Min(b.Y1, o.Y1), math.Max(b.X2, o.X2), math.Max(b.Y2, o.Y2))
}

// Side names one edge of a box.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// Valid reports whether s is one of the four edges.
func (s Side) Valid() bool {
	switch s {
	case SideTop, SideRight, SideBottom, SideLeft:
		return true
	}
	return false
}

// Direction is the compass direction a connection point protrudes in.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
	East  Direction = "E"
	West  Direction = "W"
)

// Horizontal reports whether d runs along the x axis.
func (d Direction) Horizontal() bool {
	return d == East || d == West
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return d
}

// Side maps a direction onto the box edge it leaves from.
func (d Direction) Side() Side {
	switch d {
	case North:
		return SideTop
	case South:
		return SideBottom
	case East:
		return SideRight
	}
	return SideLeft
}

// SideHit is the result of NearestSide.
type SideHit struct {
	Side     Side
	Offset   float64
	Distance float64
}

// NearestSide picks the edge of b closest to p by absolute delta to that
// edge's coordinate. Ties resolve top, right, bottom, left.
func NearestSide(p Point, b Bounds) SideHit {
	distTop := math.Abs(p.Y - b.Y1)
	distRight := math.Abs(p.X - b.X2)
	distBottom := math.Abs(p.Y - b.Y2)
	distLeft := math.Abs(p.X - b.X1)

	best := SideHit{Side: SideTop, Offset: p.X - b.X1, Distance: distTop}
	if distRight < best.Distance {
		best = SideHit{Side: SideRight, Offset: p.Y - b.Y1, Distance: distRight}
	}
	if distBottom < best.Distance {
		best = SideHit{Side: SideBottom, Offset: p.X - b.X1, Distance: distBottom}
	}
	if distLeft < best.Distance {
		best = SideHit{Side: SideLeft, Offset: p.Y - b.Y1, Distance: distLeft}
	}
	return best
}

// AttachmentPoint is the inverse of NearestSide.
func AttachmentPoint(b Bounds, side Side, offset float64) Point {
	switch side {
	case SideTop:
		return Point{X: b.X1 + offset, Y: b.Y1}
	case SideRight:
		return Point{X: b.X2, Y: b.Y1 + offset}
	case SideBottom:
		return Point{X: b.X1 + offset, Y: b.Y2}
	default:
		return Point{X: b.X1, Y: b.Y1 + offset}
	}
}

// ClampSideOffset limits offset to the length of the given side.
func ClampSideOffset(offset float64, side Side, b Bounds) float64 {
	limit := b.Height
	if side == SideTop || side == SideBottom {
		limit = b.Width
	}
	return math.Max(0, math.Min(offset, limit))
}

// Rotate turns p about center by degrees (clockwise in a y-down frame).
func Rotate(p, center Point, degrees float64) Point {
	if degrees == 0 {
		return p
	}
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: cos*dx - sin*dy + center.X,
		Y: sin*dx + cos*dy + center.Y,
	}
}

// SegmentDistSq returns the squared distance from p to segment ab.
func SegmentDistSq(p, a, b Point) float64 {
	l2 := (a.X-b.X)*(a.X-b.X) + (a.Y-b.Y)*(a.Y-b.Y)
	if l2 == 0 {
		return (p.X-a.X)*(p.X-a.X) + (p.Y-a.Y)*(p.Y-a.Y)
	}
	t := ((p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)) / l2
	t = math.Max(0, math.Min(1, t))
	x := a.X + t*(b.X-a.X)
	y := a.Y + t*(b.Y-a.Y)
	return (p.X-x)*(p.X-x) + (p.Y-y)*(p.Y-y)
}

// Degrees converts the angle of vector v to degrees.
func Degrees(v Point) float64 {
	return math.Atan2(v.Y, v.X) * 180 / math.Pi
}
