package chain

import "golang.org/x/exp/constraints"

// OAdd returns a+b together with whether the sum wrapped past T's maximum
// value. A wrapped unsigned sum is always strictly less than either addend.
func OAdd[T constraints.Unsigned](a, b T) (T, bool) {
	sum := a + b
	return sum, sum < a
}

// OSub returns a-b together with whether the difference wrapped past zero.
// A wrapped unsigned difference is always strictly greater than the
// minuend.
func OSub[T constraints.Unsigned](a, b T) (T, bool) {
	diff := a - b
	return diff, diff > a
}
