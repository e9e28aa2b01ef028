package entropy

import (
	"math"
	"sort"
	"testing"
)

type scripted struct {
	vals []float64
	i    int
}

func (s *scripted) Float() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func TestWeightedSampleFullPoolReturnsEveryIndexOnce(t *testing.T) {
	weights := []float64{0.7, 0.0001, 0.2, 0.05, 0.0499}
	for seed := int64(1); seed <= 50; seed++ {
		src := New(seed)
		got := WeightedSample(src, weights, len(weights))
		if len(got) != len(weights) {
			t.Fatalf("seed %d: len=%d want %d", seed, len(got), len(weights))
		}
		sorted := append([]int(nil), got...)
		sort.Ints(sorted)
		for i, idx := range sorted {
			if idx != i {
				t.Fatalf("seed %d: picks %v are not a permutation", seed, got)
			}
		}
	}
}

func TestWeightedSampleCapsAtPoolSize(t *testing.T) {
	got := WeightedSample(New(3), []float64{1, 1}, 5)
	if len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}
	if got := WeightedSample(New(3), []float64{1, 1}, 0); got != nil {
		t.Fatalf("k=0 returned %v", got)
	}
}

func TestWeightedSampleRenormalizesAfterRemoval(t *testing.T) {
	// First draw 0.1 of total 1.0 lands on index 0. After removal the
	// remaining weights are {0.3, 0.2} and 0.7*0.5=0.35 lands on index 2.
	u := &scripted{vals: []float64{0.1, 0.7}}
	got := WeightedSample(u, []float64{0.5, 0.3, 0.2}, 2)
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("picks=%v want [0 2]", got)
	}
}

func TestWeightedSampleSkipsZeroWeights(t *testing.T) {
	u := &scripted{vals: []float64{0.0, 0.99}}
	got := WeightedSample(u, []float64{0, 1, 0}, 1)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("picks=%v want [1]", got)
	}
}

func TestWeightedSampleAllZeroIsUniform(t *testing.T) {
	u := &scripted{vals: []float64{0.5}}
	got := WeightedSample(u, []float64{0, 0, 0, 0}, 1)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("picks=%v want [2]", got)
	}
}

func TestPickCumulative(t *testing.T) {
	cum := Cumulative([]float64{0.5, 0.3, 0.2})
	cases := []struct {
		v    float64
		want int
	}{
		{0.1, 0},
		{0.5, 0},
		{0.9, 2},
		{0.95, 2},
		{0.6, 1},
	}
	for _, tc := range cases {
		if got := PickCumulative(cum, tc.v); got != tc.want {
			t.Errorf("PickCumulative(%v)=%d want %d", tc.v, got, tc.want)
		}
	}
	if got := PickCumulative([]float64{0.4, 0.9999999}, 0.99999999); got != 1 {
		t.Errorf("rounding shortfall picked %d want 1", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(7, 1, 5) != 5 || Clamp(-1, 1, 5) != 1 || Clamp(3.3, 1, 5) != 3.3 {
		t.Fatal("clamp out of range")
	}
	if Clamp01(1.2) != 1 || Clamp01(-0.2) != 0 {
		t.Fatal("clamp01 out of range")
	}
	if got := Clamp(math.NaN(), 1, 5); got != 1 {
		t.Fatalf("Clamp(NaN)=%v want 1", got)
	}
	if Clamp(math.Inf(1), 0, 10) != 10 || Clamp(math.Inf(-1), 0, 10) != 0 {
		t.Fatal("infinities not clamped")
	}
}

func TestSourceIsDeterministic(t *testing.T) {
	a, b := New(99), New(99)
	for i := 0; i < 100; i++ {
		if a.Float() != b.Float() {
			t.Fatalf("draw %d differs for the same seed", i)
		}
	}
	if New(0).Seed() == 0 {
		t.Fatal("zero seed was not replaced")
	}
}
