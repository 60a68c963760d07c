package geom

import (
	"math"
	"testing"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinkVertical(t *testing.T) {
	src := Point{X: 0, Y: 0}
	dst := Point{X: 100, Y: 100}
	c := Link(src, dst, AxisY)

	if c.P0 != src || c.P3 != dst {
		t.Fatalf("endpoints moved: %+v", c)
	}
	// span 100 -> offset 50, inside the clamp range.
	if c.P1 != (Point{X: 0, Y: 50}) {
		t.Errorf("P1 = %+v", c.P1)
	}
	if c.P2 != (Point{X: 100, Y: 50}) {
		t.Errorf("P2 = %+v", c.P2)
	}
}

func TestLinkClampsOffset(t *testing.T) {
	// Tiny separation still gets the minimum bulge.
	c := Link(Point{}, Point{X: 10, Y: 10}, AxisY)
	if c.P1.Y != minControlOffset {
		t.Errorf("short edge offset = %v, want %v", c.P1.Y, float64(minControlOffset))
	}
	// Huge separation saturates at the maximum.
	c = Link(Point{}, Point{X: 0, Y: 1000}, AxisY)
	if c.P1.Y != maxControlOffset {
		t.Errorf("long edge offset = %v, want %v", c.P1.Y, float64(maxControlOffset))
	}
	// Upward edges bulge the other way.
	c = Link(Point{Y: 1000}, Point{Y: 0}, AxisY)
	if c.P1.Y != 1000-maxControlOffset {
		t.Errorf("reverse edge P1.Y = %v", c.P1.Y)
	}
}

func TestLinkHorizontal(t *testing.T) {
	c := Link(Point{X: 0, Y: 10}, Point{X: 200, Y: 30}, AxisX)
	if c.P1 != (Point{X: maxControlOffset, Y: 10}) {
		t.Errorf("P1 = %+v", c.P1)
	}
	if c.P2 != (Point{X: 200 - maxControlOffset, Y: 30}) {
		t.Errorf("P2 = %+v", c.P2)
	}
}

func TestPointAtEndpoints(t *testing.T) {
	c := Link(Point{X: 3, Y: 4}, Point{X: 50, Y: 90}, AxisY)
	if p := c.PointAt(0); p != c.P0 {
		t.Errorf("PointAt(0) = %+v", p)
	}
	if p := c.PointAt(1); p != c.P3 {
		t.Errorf("PointAt(1) = %+v", p)
	}
}

func TestPointAtMidpointOfStraightLine(t *testing.T) {
	// A degenerate curve whose control points sit on the chord is a line.
	c := Curve{
		P0: Point{X: 0, Y: 0},
		P1: Point{X: 10, Y: 10},
		P2: Point{X: 20, Y: 20},
		P3: Point{X: 30, Y: 30},
	}
	p := c.PointAt(0.5)
	if !almost(p.X, 15) || !almost(p.Y, 15) {
		t.Errorf("midpoint = %+v, want (15, 15)", p)
	}
}

func TestLabelPointOffPath(t *testing.T) {
	c := Link(Point{X: 0, Y: 0}, Point{X: 0, Y: 100}, AxisY)
	on := c.PointAt(labelT)
	lbl := c.LabelPoint(8)
	d := math.Hypot(lbl.X-on.X, lbl.Y-on.Y)
	if !almost(d, 8) {
		t.Errorf("label distance from path = %v, want 8", d)
	}
	// Near the end of a vertical edge the tangent is vertical, so the
	// label shifts horizontally.
	if almost(lbl.X, on.X) {
		t.Errorf("label not offset horizontally: %+v vs %+v", lbl, on)
	}
}
