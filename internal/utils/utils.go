package utils

import (
	"cmp"
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

// Argmax returns the index of the first largest element, 0 for an empty slice.
func Argmax[T cmp.Ordered](arr []T) (argmax int) {
	for i := range arr {
		if cmp.Compare(arr[i], arr[argmax]) == 1 {
			argmax = i
		}
	}
	return
}

type Number interface {
	constraints.Float | constraints.Integer
}

func SumSlice[T Number](arr []T) (r T) {
	for i := range arr {
		r += arr[i]
	}
	return
}

// Average is NaN for an empty slice.
func Average[T Number](s []T) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range s {
		sum += float64(v)
	}
	return sum / float64(len(s))
}

// MeanAndVariance returns NaN for both on an empty slice. The unbiased variance of a single value is 0.
func MeanAndVariance[T Number](s []T, unbiased bool) (mean, variance float64) {
	mean = Average(s)
	if len(s) < 2 {
		if len(s) == 0 {
			return mean, math.NaN()
		}
		return mean, 0
	}
	for _, v := range s {
		d := float64(v) - mean
		variance += d * d
	}
	n := float64(len(s))
	if unbiased {
		n--
	}
	return mean, variance / n
}

func Variance[T Number](s []T, unbiased bool) float64 {
	_, v := MeanAndVariance(s, unbiased)
	return v
}

func IntAbs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// Intersect returns the first element of a that is also in b.
func Intersect(a, b []string) *string {
	for i := range a {
		if slices.Contains(b, a[i]) {
			return &a[i]
		}
	}
	return nil
}
