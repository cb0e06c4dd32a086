package geom

import (
	"fmt"
	"math"
	"strings"
)

const (
	ArrowLength = 15.0
	arrowSpread = math.Pi / 6
)

// Quad is one quadratic Bezier segment ending at To.
type Quad struct {
	Ctrl Point
	To   Point
}

// SmoothCurve is a pen stroke interpolated through its interior points.
// Start is always set; End closes the curve with a straight segment.
type SmoothCurve struct {
	Start Point
	Quads []Quad
	End   Point
}

// Smooth builds the curve used to draw a pen stroke: every interior point
// becomes a control point whose segment ends at the midpoint to the next one.
func Smooth(points []Point) SmoothCurve {
	if len(points) == 0 {
		return SmoothCurve{}
	}
	c := SmoothCurve{Start: points[0], End: points[len(points)-1]}
	for i := 1; i < len(points)-1; i++ {
		p1, p2 := points[i], points[i+1]
		mid := Point{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}
		c.Quads = append(c.Quads, Quad{Ctrl: p1, To: mid})
	}
	return c
}

// Flatten samples the curve into a polyline; steps is per quadratic segment.
func (c SmoothCurve) Flatten(steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	out := []Point{c.Start}
	prev := c.Start
	for _, q := range c.Quads {
		for i := 1; i <= steps; i++ {
			t := float64(i) / float64(steps)
			u := 1 - t
			out = append(out, Point{
				X: u*u*prev.X + 2*u*t*q.Ctrl.X + t*t*q.To.X,
				Y: u*u*prev.Y + 2*u*t*q.Ctrl.Y + t*t*q.To.Y,
			})
		}
		prev = q.To
	}
	if prev != c.End || len(out) == 1 {
		out = append(out, c.End)
	}
	return out
}

// SmoothPath renders points as an SVG path string.
func SmoothPath(points []Point) string {
	if len(points) == 0 {
		return ""
	}
	c := Smooth(points)
	var sb strings.Builder
	fmt.Fprintf(&sb, "M %s %s", num(c.Start.X), num(c.Start.Y))
	for _, q := range c.Quads {
		fmt.Fprintf(&sb, " Q %s %s %s %s", num(q.Ctrl.X), num(q.Ctrl.Y), num(q.To.X), num(q.To.Y))
	}
	fmt.Fprintf(&sb, " L %s %s", num(c.End.X), num(c.End.Y))
	return sb.String()
}

// ArrowHead returns the triangle tip, left wing, right wing for an arrow
// pointing from tail to tip.
func ArrowHead(tail, tip Point) [3]Point {
	angle := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	return [3]Point{
		tip,
		{X: tip.X - ArrowLength*math.Cos(angle-arrowSpread), Y: tip.Y - ArrowLength*math.Sin(angle-arrowSpread)},
		{X: tip.X - ArrowLength*math.Cos(angle+arrowSpread), Y: tip.Y - ArrowLength*math.Sin(angle+arrowSpread)},
	}
}

// ArrowHeadPath renders ArrowHead as a closed SVG path.
func ArrowHeadPath(tail, tip Point) string {
	h := ArrowHead(tail, tip)
	return fmt.Sprintf("M %s %s L %s %s L %s %s Z",
		num(h[0].X), num(h[0].Y), num(h[1].X), num(h[1].Y), num(h[2].X), num(h[2].Y))
}

// PolylinePath renders points as straight SVG segments.
func PolylinePath(points []Point) string {
	var sb strings.Builder
	for i, p := range points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		} else {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s %s %s", cmd, num(p.X), num(p.Y))
	}
	return sb.String()
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
