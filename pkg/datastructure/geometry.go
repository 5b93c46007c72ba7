package datastructure

import "math"

const (
	EPS = 1e-6
)

// float comparison helpers. edge weights are floating point travel times, so
// every ordering decision in the query engines goes through these.
func Eq(a, b float64) bool {
	return math.Abs(a-b) < EPS
}

func Lt(a, b float64) bool {
	return a < b-EPS
}

func Le(a, b float64) bool {
	return a < b+EPS
}

func Gt(a, b float64) bool {
	return a > b+EPS
}

func Ge(a, b float64) bool {
	return a > b-EPS
}
