package engine

import (
	"testing"

	"github.com/talgya/polarsim/internal/entropy"
)

func TestInfluenceMovesTowardSource(t *testing.T) {
	p := testParams()
	h := human(0, 0, 0, 1.5)
	h.AffectivePolarization = 2
	u := &scripted{vals: []float64{0.99}}

	out := applyInfluence(h, 3.0, 0.5, mediaDamping, p, u)
	if out.Backfire {
		t.Fatal("moderate source cannot backfire")
	}
	// receptivity = 1 - 0.2*0.375*0.5
	if !approx(h.Ideology, 1.5+0.5*0.9625*1.5) {
		t.Errorf("ideology=%v want 2.221875", h.Ideology)
	}
	// Cross-cutting band: disagreement 1.5 lies in (1, 2].
	if !approx(out.APDelta, -0.05*0.875*1.2) {
		t.Errorf("ap delta=%v want -0.0525", out.APDelta)
	}
	if u.n != 1 {
		t.Errorf("consumed %d draws want 1", u.n)
	}
}

func TestInfluenceSocialDampingIsStronger(t *testing.T) {
	p := testParams()
	media := human(0, 0, 0, 1.5)
	social := human(1, 0, 0, 1.5)
	media.AffectivePolarization, social.AffectivePolarization = 6, 6

	applyInfluence(media, 3.5, 0.5, mediaDamping, p, &scripted{vals: []float64{0.99}})
	applyInfluence(social, 3.5, 0.5, socialDamping, p, &scripted{vals: []float64{0.99}})
	if social.Ideology >= media.Ideology {
		t.Fatalf("social=%v media=%v: social source should move less", social.Ideology, media.Ideology)
	}
}

func TestInfluenceBackfire(t *testing.T) {
	p := testParams()
	p.BackfireProbability = 1
	h := human(0, 0, 0, 1.5)

	out := applyInfluence(h, 4.5, 0.1, socialDamping, p, &scripted{vals: []float64{0.5}})
	if !out.Backfire {
		t.Fatal("expected backfire between opposite extremes")
	}
	if !approx(h.Ideology, 1.2) {
		t.Errorf("ideology=%v want 1.2", h.Ideology)
	}
	if !approx(h.AffectivePolarization, p.DisagreementPenalty*p.BackfireAmplifier) {
		t.Errorf("ap=%v want %v", h.AffectivePolarization, p.DisagreementPenalty*p.BackfireAmplifier)
	}
}

func TestBackfireChanceRequiresOppositeExtremes(t *testing.T) {
	p := testParams()
	p.BackfireProbability = 0.4
	tests := []struct {
		consumer, source float64
		want             float64
	}{
		{1.5, 4.5, 0.4},
		{4.0, 2.0, 0.4},
		{1.5, 1.8, 0},
		{1.5, 3.5, 0},
		{3.0, 5.0, 0},
		{2.5, 4.5, 0},
	}
	for _, tt := range tests {
		if got := backfireChance(tt.consumer, tt.source, p); got != tt.want {
			t.Errorf("backfireChance(%v, %v)=%v want %v", tt.consumer, tt.source, got, tt.want)
		}
	}
}

func TestInfluenceAPBands(t *testing.T) {
	p := testParams()
	p.BackfireProbability = 0
	tests := []struct {
		name             string
		consumer, source float64
		want             float64
	}{
		{"like-minded", 2.5, 2.7, p.LikeMindedBoost * (1 - 0.2/4)},
		{"gap", 2.0, 2.7, 0},
		{"cross-cutting", 1.5, 3.0, -p.CrossCuttingReduction * 0.875},
		{"hostile", 1.5, 4.5, p.DisagreementPenalty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := human(0, 0, 0, tt.consumer)
			out := applyInfluence(h, tt.source, 0.1, socialDamping, p, &scripted{vals: []float64{0.5}})
			if out.Backfire {
				t.Fatal("unexpected backfire")
			}
			if d := out.APDelta - tt.want; d > 1e-9 || d < -1e-9 {
				t.Errorf("ap delta=%v want %v", out.APDelta, tt.want)
			}
		})
	}
}

func TestInfluenceZeroMagnitudeLeavesIdeology(t *testing.T) {
	p := testParams()
	p.BackfireProbability = 1
	h := human(0, 0, 0, 1.25)
	h.AffectivePolarization = 9
	applyInfluence(h, 4.75, 0, mediaDamping, p, &scripted{vals: []float64{0}})
	if h.Ideology != 1.25 {
		t.Fatalf("ideology=%v want 1.25", h.Ideology)
	}
}

func TestBackfireCountGrowsWithProbability(t *testing.T) {
	count := func(prob float64) int {
		p := testParams()
		p.BackfireProbability = prob
		n := 0
		for seed := int64(1); seed <= 200; seed++ {
			rng := entropy.New(seed)
			for i := 0; i < 10; i++ {
				h := human(0, 0, 0, 1.5)
				if applyInfluence(h, 4.5, 0.1, socialDamping, p, rng).Backfire {
					n++
				}
			}
		}
		return n
	}
	low, high := count(0.1), count(0.5)
	if high <= low {
		t.Fatalf("backfires at p=0.5 (%d) should exceed p=0.1 (%d)", high, low)
	}
	if count(0) != 0 {
		t.Fatal("backfire with zero probability")
	}
}
