// Package geom produces the cubic Bézier geometry used to draw edges
// between laid-out nodes.
package geom

import "math"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Axis names the primary layout axis an edge flows along.
type Axis int

const (
	// AxisY is the primary axis of top-to-bottom layouts.
	AxisY Axis = iota
	// AxisX is the primary axis of left-to-right layouts.
	AxisX
)

// Control-point offset bounds along the primary axis, in layout units.
// Scaling with the endpoint separation keeps short edges gently curved
// while clamping stops far-apart ranks from producing wild loops.
const (
	minControlOffset = 20
	maxControlOffset = 80
	controlScale     = 0.5
)

// labelT places edge labels close to the target endpoint.
const labelT = 0.92

// Curve is a cubic Bézier segment.
type Curve struct {
	P0 Point `json:"p0"`
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
	P3 Point `json:"p3"`
}

// Link builds the edge curve from src to dst for the given primary axis.
// The two control points extend from each endpoint along the primary axis,
// in the direction of travel, by half the primary-axis separation clamped
// to [minControlOffset, maxControlOffset]. The curve therefore leaves the
// source and enters the target perpendicular to the node border.
func Link(src, dst Point, axis Axis) Curve {
	var span float64
	if axis == AxisX {
		span = dst.X - src.X
	} else {
		span = dst.Y - src.Y
	}

	offset := math.Abs(span) * controlScale
	offset = math.Min(math.Max(offset, minControlOffset), maxControlOffset)
	if span < 0 {
		offset = -offset
	}

	c := Curve{P0: src, P3: dst}
	if axis == AxisX {
		c.P1 = Point{X: src.X + offset, Y: src.Y}
		c.P2 = Point{X: dst.X - offset, Y: dst.Y}
	} else {
		c.P1 = Point{X: src.X, Y: src.Y + offset}
		c.P2 = Point{X: dst.X, Y: dst.Y - offset}
	}
	return c
}

// PointAt evaluates the curve at parameter t in [0, 1] using the closed
// Bernstein form.
func (c Curve) PointAt(t float64) Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Point{
		X: b0*c.P0.X + b1*c.P1.X + b2*c.P2.X + b3*c.P3.X,
		Y: b0*c.P0.Y + b1*c.P1.Y + b2*c.P2.Y + b3*c.P3.Y,
	}
}

// TangentAt returns the (unnormalized) derivative of the curve at t.
func (c Curve) TangentAt(t float64) Point {
	u := 1 - t
	return Point{
		X: 3*u*u*(c.P1.X-c.P0.X) + 6*u*t*(c.P2.X-c.P1.X) + 3*t*t*(c.P3.X-c.P2.X),
		Y: 3*u*u*(c.P1.Y-c.P0.Y) + 6*u*t*(c.P2.Y-c.P1.Y) + 3*t*t*(c.P3.Y-c.P2.Y),
	}
}

// LabelPoint returns where an edge label should be anchored: the curve
// point near the target end, nudged off the path perpendicular to the
// local tangent so the text does not sit on the stroke.
func (c Curve) LabelPoint(offset float64) Point {
	p := c.PointAt(labelT)
	tan := c.TangentAt(labelT)
	length := math.Hypot(tan.X, tan.Y)
	if length == 0 {
		return p
	}
	// Left-hand normal of the direction of travel.
	return Point{
		X: p.X - tan.Y/length*offset,
		Y: p.Y + tan.X/length*offset,
	}
}
