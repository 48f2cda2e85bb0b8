// Package scale maps coordinates between a linear input domain and an output
// range.
//
// A [Linear] scale is configured with explicit getter/setter pairs; setters
// return the scale so configuration can be chained:
//
//	s := scale.New().SetDomain([2]float64{0, 800}).SetRange([2]float64{0, 400})
//	x, err := s.Map(200) // 100
package scale

import (
	"math"

	"github.com/matzehuels/trackview/pkg/errors"
)

// Linear is an affine transform from Domain to Range. The zero value has a
// degenerate domain; use [New].
type Linear struct {
	domain [2]float64
	rng    [2]float64
}

// New returns a scale with the identity mapping [0,1] -> [0,1].
func New() *Linear {
	return &Linear{domain: [2]float64{0, 1}, rng: [2]float64{0, 1}}
}

// Domain returns the input bounds.
func (s *Linear) Domain() [2]float64 { return s.domain }

// SetDomain sets the input bounds and returns s.
func (s *Linear) SetDomain(d [2]float64) *Linear {
	s.domain = d
	return s
}

// Range returns the output bounds.
func (s *Linear) Range() [2]float64 { return s.rng }

// SetRange sets the output bounds and returns s.
func (s *Linear) SetRange(r [2]float64) *Linear {
	s.rng = r
	return s
}

// Map converts a domain value to the range. Values outside the domain are
// extrapolated. The domain endpoints map exactly onto the range endpoints.
func (s *Linear) Map(x float64) (float64, error) {
	f, err := s.Func()
	if err != nil {
		return 0, err
	}
	if !finite(x) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "scale input is not finite: %v", x)
	}
	return f(x), nil
}

// Invert converts a range value back to the domain.
func (s *Linear) Invert(y float64) (float64, error) {
	if err := checkBounds(s.domain, s.rng); err != nil {
		return 0, err
	}
	if s.rng[0] == s.rng[1] {
		return 0, errors.New(errors.ErrCodeDegenerateRange, "range [%g, %g] has zero width", s.rng[0], s.rng[1])
	}
	if !finite(y) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "scale input is not finite: %v", y)
	}
	return lerp(s.rng, s.domain, y), nil
}

// Func validates the scale once and returns the mapping as a plain function.
// Later changes to s do not affect the returned function.
func (s *Linear) Func() (func(float64) float64, error) {
	if err := checkBounds(s.domain, s.rng); err != nil {
		return nil, err
	}
	if s.domain[0] == s.domain[1] {
		return nil, errors.New(errors.ErrCodeDegenerateDomain, "domain [%g, %g] has zero width", s.domain[0], s.domain[1])
	}
	d, r := s.domain, s.rng
	return func(x float64) float64 { return lerp(d, r, x) }, nil
}

// lerp interpolates with r0*(1-t) + r1*t so both endpoints are exact.
func lerp(from, to [2]float64, x float64) float64 {
	t := (x - from[0]) / (from[1] - from[0])
	return to[0]*(1-t) + to[1]*t
}

func checkBounds(d, r [2]float64) error {
	for _, v := range [...]float64{d[0], d[1], r[0], r[1]} {
		if !finite(v) {
			return errors.New(errors.ErrCodeInvalidInput, "scale bounds must be finite: domain %v, range %v", d, r)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
