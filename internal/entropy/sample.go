package entropy

import "math"

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// WeightedSample draws k distinct indices from weights without replacement.
// Each draw picks an index with probability proportional to its weight among
// the items not yet drawn, then removes it. Indices are returned in draw order.
// If the remaining weight is zero every remaining item is equally likely.
// k is capped at len(weights).
func WeightedSample(u Uniform, weights []float64, k int) []int {
	n := len(weights)
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	picked := make([]int, 0, k)
	for len(picked) < k {
		total := 0.0
		for _, idx := range remaining {
			if w := weights[idx]; w > 0 {
				total += w
			}
		}

		pos := len(remaining) - 1
		if total > 0 {
			target := u.Float() * total
			acc := 0.0
			for i, idx := range remaining {
				w := weights[idx]
				if w <= 0 {
					continue
				}
				acc += w
				pos = i
				if target < acc {
					break
				}
			}
		} else {
			pos = int(u.Float() * float64(len(remaining)))
			if pos >= len(remaining) {
				pos = len(remaining) - 1
			}
		}

		picked = append(picked, remaining[pos])
		remaining = append(remaining[:pos], remaining[pos+1:]...)
	}
	return picked
}

// Cumulative returns the running totals of probs. The final entry equals the
// sum of probs (1 for a normalized vector).
func Cumulative(probs []float64) []float64 {
	cum := make([]float64, len(probs))
	acc := 0.0
	for i, p := range probs {
		acc += p
		cum[i] = acc
	}
	return cum
}

// PickCumulative returns the first index whose cumulative probability is >= v.
// Rounding can leave the last entry slightly below 1; the last index is
// returned in that case.
func PickCumulative(cum []float64, v float64) int {
	for i, c := range cum {
		if c >= v {
			return i
		}
	}
	return len(cum) - 1
}
