// Package stats computes dashboard and statistics aggregates over cached
// conversations and messages. Every function is pure.
package stats

import (
	"math"
	"slices"
)

// Summary describes a sample distribution.
type Summary struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
}

// Count is one labelled bucket.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

func sorted(values []float64) []float64 {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}

// Median returns the middle value, or the mean of the two middle values. It is
// 0 for no values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := sorted(values)
	n := len(s)
	if n%2 == 1 {
		return s[(n-1)/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Average returns the arithmetic mean, or 0 for no values.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// P90 is the nearest-rank estimate sorted[floor(n*0.9)-1], clamped to the
// first element. It is 0 for no values.
func P90(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := sorted(values)
	i := int(math.Floor(float64(len(s))*0.9)) - 1
	if i < 0 {
		i = 0
	}
	return s[i]
}

// Summarize computes count, mean, extremes, median and p90.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := sorted(values)
	return Summary{
		Count: len(s),
		Avg:   Average(s),
		Min:   s[0],
		Max:   s[len(s)-1],
		P50:   Median(s),
		P90:   P90(s),
	}
}

func ints(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
