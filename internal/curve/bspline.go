// Package curve implements the scalar B-spline structure curve that selects
// which voices are live at any point in a scene's rotation (spec.md §4.4,
// C4), via De Boor's algorithm.
//
// No pack example or dependency implements B-splines (see SPEC_FULL.md /
// DESIGN.md) — this evaluator is hand-rolled, shaped after the public API
// of the original Rust implementation's `bspline` crate
// (BSpline::new(degree, points, knots), .knot_domain(), .point(t)).
package curve

import "fmt"

// BSpline is a scalar-valued, clamped-knot-vector B-spline curve evaluated
// via De Boor's algorithm.
type BSpline struct {
	degree int
	points []float32
	knots  []float32
}

// New validates and constructs a BSpline of the given degree over points and
// knots. Per the standard B-spline relation, len(knots) must equal
// len(points) + degree + 1.
func New(degree int, points, knots []float32) (*BSpline, error) {
	if degree < 0 {
		return nil, fmt.Errorf("curve: degree must be >= 0, got %d", degree)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("curve: points must be non-empty")
	}
	if want := len(points) + degree + 1; len(knots) != want {
		return nil, fmt.Errorf("curve: knots length %d, want %d (points=%d, degree=%d)",
			len(knots), want, len(points), degree)
	}
	return &BSpline{degree: degree, points: points, knots: knots}, nil
}

// Degree returns the spline's polynomial degree.
func (b *BSpline) Degree() int { return b.degree }

// KnotDomain returns the [lower, upper] parameter range over which the
// spline is fully defined (the clamped interior knot span).
func (b *BSpline) KnotDomain() (lower, upper float32) {
	return b.knots[b.degree], b.knots[len(b.knots)-b.degree-1]
}

// Point evaluates the spline at parameter t, clamping t to the knot domain
// first.
func (b *BSpline) Point(t float32) float32 {
	lower, upper := b.KnotDomain()
	switch {
	case t < lower:
		t = lower
	case t > upper:
		t = upper
	}

	k := b.findSpan(t, upper)
	return b.deBoor(k, t)
}

// findSpan locates the knot span index k such that knots[k] <= t <
// knots[k+1], clamped into [degree, len(points)-1] so that t == upper still
// resolves to the last valid span.
func (b *BSpline) findSpan(t, upper float32) int {
	n := len(b.points) - 1
	if t >= upper {
		return n
	}
	low, high := b.degree, n+1
	for lo, hi := low, high; lo < hi; {
		mid := (lo + hi) / 2
		if b.knots[mid] <= t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	span := low
	for span < n && b.knots[span+1] <= t {
		span++
	}
	return span
}

// deBoor runs De Boor's recurrence to evaluate the spline at x within knot
// span k.
func (b *BSpline) deBoor(k int, x float32) float32 {
	d := make([]float32, b.degree+1)
	for j := 0; j <= b.degree; j++ {
		d[j] = b.points[j+k-b.degree]
	}

	for r := 1; r <= b.degree; r++ {
		for j := b.degree; j >= r; j-- {
			left := k - b.degree + j
			denom := b.knots[left+b.degree-r+1] - b.knots[left]
			var alpha float32
			if denom != 0 {
				alpha = (x - b.knots[left]) / denom
			}
			d[j] = (1-alpha)*d[j-1] + alpha*d[j]
		}
	}
	return d[b.degree]
}
