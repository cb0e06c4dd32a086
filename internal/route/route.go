// Package route computes orthogonal connector paths between shapes.
package route

import (
	"math"

	"CollabBoard/internal/geom"
)

// Offset is how far a connector leaves its shape before its first bend.
const Offset = 20.0

// Connection is a point on a shape's edge and the direction it faces.
type Connection struct {
	Point geom.Point
	Dir   geom.Direction
}

// ConnectionPoints returns the N, S, W and E edge midpoints of b, in that
// order.
func ConnectionPoints(b geom.Bounds) [4]Connection {
	c := b.Center()
	return [4]Connection{
		{geom.Pt(c.X, b.Y1), geom.North},
		{geom.Pt(c.X, b.Y2), geom.South},
		{geom.Pt(b.X1, c.Y), geom.West},
		{geom.Pt(b.X2, c.Y), geom.East},
	}
}

func step(p geom.Point, d geom.Direction) geom.Point {
	switch d {
	case geom.North:
		p.Y -= Offset
	case geom.South:
		p.Y += Offset
	case geom.West:
		p.X -= Offset
	case geom.East:
		p.X += Offset
	}
	return p
}

// Route returns an axis-aligned polyline from start to end. Both ends step
// Offset units out of their shapes and the gap is bridged with one bend:
// x then y when start leaves horizontally, y then x otherwise.
func Route(start, end Connection) []geom.Point {
	cur := step(start.Point, start.Dir)
	last := step(end.Point, end.Dir)
	pts := []geom.Point{start.Point, cur}
	if start.Dir.Horizontal() {
		cur.X = last.X
		pts = append(pts, cur)
		cur.Y = last.Y
		pts = append(pts, cur)
	} else {
		cur.Y = last.Y
		pts = append(pts, cur)
		cur.X = last.X
		pts = append(pts, cur)
	}
	pts = append(pts, last, end.Point)
	return Simplify(pts)
}

// Simplify drops every interior point lying on the same vertical or
// horizontal line as the previously kept point and the next point.
func Simplify(pts []geom.Point) []geom.Point {
	if len(pts) < 3 {
		return append([]geom.Point(nil), pts...)
	}
	out := []geom.Point{pts[0]}
	for i := 1; i < len(pts)-1; i++ {
		prev, cur, next := out[len(out)-1], pts[i], pts[i+1]
		collinear := (prev.X == cur.X && cur.X == next.X) || (prev.Y == cur.Y && cur.Y == next.Y)
		if !collinear {
			out = append(out, cur)
		}
	}
	return append(out, pts[len(pts)-1])
}

// BestPair picks the connection points of a and b closest to each other by
// Manhattan distance. The first minimum in N, S, W, E order wins.
func BestPair(a, b geom.Bounds) (Connection, Connection) {
	as, bs := ConnectionPoints(a), ConnectionPoints(b)
	best := math.Inf(1)
	var from, to Connection
	for _, ca := range as {
		for _, cb := range bs {
			if d := geom.Manhattan(ca.Point, cb.Point); d < best {
				best, from, to = d, ca, cb
			}
		}
	}
	return from, to
}

// Between routes a connector from shape a to shape b.
func Between(a, b geom.Bounds) []geom.Point {
	from, to := BestPair(a, b)
	return Route(from, to)
}

// Orthogonal reports whether every segment of pts is vertical or
// horizontal.
func Orthogonal(pts []geom.Point) bool {
	for i := 1; i < len(pts); i++ {
		if pts[i].X != pts[i-1].X && pts[i].Y != pts[i-1].Y {
			return false
		}
	}
	return true
}
