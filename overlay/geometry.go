package overlay

import "math"

type Point struct {
	X, Y float64
}

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) Len() float64          { return math.Hypot(p.X, p.Y) }
func (p Point) Lerp(q Point, t float64) Point {
	return Point{p.X + (q.X-p.X)*t, p.Y + (q.Y-p.Y)*t}
}

func (p Point) unit() Point {
	l := p.Len()
	if l == 0 {
		return Point{}
	}
	return Point{p.X / l, p.Y / l}
}

type Direction int

const (
	TailDown Direction = iota
	TailUp
	TailLeft
	TailRight
)

func (d Direction) String() string {
	switch d {
	case TailUp:
		return "up"
	case TailLeft:
		return "left"
	case TailRight:
		return "right"
	default:
		return "down"
	}
}

func (d Direction) vector() Point {
	switch d {
	case TailUp:
		return Point{0, -1}
	case TailLeft:
		return Point{-1, 0}
	case TailRight:
		return Point{1, 0}
	default:
		return Point{0, 1}
	}
}

// TailDirection picks the side of the panel that faces the cursor.
// Ties between |dx| and |dy| resolve vertical. Screen y grows downward.
func TailDirection(anchor, cursor Point) Direction {
	d := cursor.Sub(anchor)
	if math.Abs(d.X) > math.Abs(d.Y) {
		if d.X > 0 {
			return TailRight
		}
		return TailLeft
	}
	if d.Y > 0 {
		return TailDown
	}
	return TailUp
}

const (
	tailMinLength = 40
	tailHalfBase  = 20
)

// Tail is the speech-bubble pointer from the panel toward the cursor.
type Tail struct {
	Dir   Direction
	BaseA Point
	BaseB Point
	Tip   Point
}

// TailGeometry builds the tail from anchor to cursor. The tip sits on the
// cursor unless that is closer than the minimum length along the tail axis.
func TailGeometry(anchor, cursor Point) Tail {
	dir := TailDirection(anchor, cursor)
	v := dir.vector()
	perp := Point{-v.Y, v.X}

	tip := cursor
	along := cursor.Sub(anchor)
	if along.X*v.X+along.Y*v.Y < tailMinLength {
		tip = anchor.Add(v.Scale(tailMinLength))
	}
	return Tail{
		Dir:   dir,
		BaseA: anchor.Add(perp.Scale(tailHalfBase)),
		BaseB: anchor.Sub(perp.Scale(tailHalfBase)),
		Tip:   tip,
	}
}

// ControlPoint bends the straight start-end segment sideways by arc times
// its length: mid + (-dy, dx)*arc.
func ControlPoint(start, end Point, arc float64) Point {
	mid := start.Lerp(end, 0.5)
	d := end.Sub(start)
	return mid.Add(Point{-d.Y, d.X}.Scale(arc))
}

func QuadBezier(p0, c, p1 Point, t float64) Point {
	u := 1 - t
	return Point{
		u*u*p0.X + 2*u*t*c.X + t*t*p1.X,
		u*u*p0.Y + 2*u*t*c.Y + t*t*p1.Y,
	}
}

func bezierTangent(p0, c, p1 Point, t float64) Point {
	u := 1 - t
	return Point{
		2*u*(c.X-p0.X) + 2*t*(p1.X-c.X),
		2*u*(c.Y-p0.Y) + 2*t*(p1.Y-c.Y),
	}
}
