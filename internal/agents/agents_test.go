package agents

import (
	"errors"
	"math"
	"testing"

	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/entropy"
	"github.com/talgya/polarsim/internal/world"
)

func TestMoodFlipsImmediatelyWithThresholdOne(t *testing.T) {
	h := &Human{Happy: true}
	h.UpdateMood(true, 1)
	if h.Happy || h.MoodStreak != 0 || h.UnhappyTicks != 1 {
		t.Fatalf("after unhappy draw: happy=%v streak=%d unhappyTicks=%d", h.Happy, h.MoodStreak, h.UnhappyTicks)
	}
	h.UpdateMood(true, 1)
	if h.Happy || h.UnhappyTicks != 2 {
		t.Fatalf("second unhappy draw: happy=%v unhappyTicks=%d", h.Happy, h.UnhappyTicks)
	}
	h.UpdateMood(false, 1)
	if !h.Happy || h.UnhappyTicks != 0 {
		t.Fatalf("happy draw: happy=%v unhappyTicks=%d", h.Happy, h.UnhappyTicks)
	}
}

func TestMoodHysteresis(t *testing.T) {
	h := &Human{Happy: true}
	h.UpdateMood(true, 3)
	h.UpdateMood(true, 3)
	if !h.Happy || h.MoodStreak != 2 {
		t.Fatalf("streak building: happy=%v streak=%d", h.Happy, h.MoodStreak)
	}
	h.UpdateMood(false, 3)
	if h.MoodStreak != 0 {
		t.Fatalf("confirming draw did not reset streak: %d", h.MoodStreak)
	}
	for i := 0; i < 3; i++ {
		h.UpdateMood(true, 3)
	}
	if h.Happy || h.MoodStreak != 0 {
		t.Fatalf("expected flip to unhappy: happy=%v streak=%d", h.Happy, h.MoodStreak)
	}
}

func TestCanRelocate(t *testing.T) {
	h := &Human{Happy: false, TicksSinceLastMove: 1}
	if h.CanRelocate() {
		t.Fatal("cooldown not respected")
	}
	h.TicksSinceLastMove = 2
	if !h.CanRelocate() {
		t.Fatal("unhappy agent past cooldown should relocate")
	}
	h.Happy = true
	if h.CanRelocate() {
		t.Fatal("happy agent should stay")
	}
}

func TestParseParty(t *testing.T) {
	cases := map[string]Party{"Democrat": Democrat, "r": Republican, " IND ": Independent}
	for in, want := range cases {
		got, err := ParseParty(in)
		if err != nil || got != want {
			t.Errorf("ParseParty(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseParty("green"); !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("err=%v want ErrUnknownParty", err)
	}
}

func TestSpawnHumanStateInRange(t *testing.T) {
	p := config.Default()
	p.TraitNoise = 2 // force clamping
	s := NewSpawner(entropy.New(5), p)
	for i := 0; i < 500; i++ {
		h := s.SpawnHuman(world.Coord{X: i % 10, Y: i / 10})
		if h.ID != i {
			t.Fatalf("id=%d want %d", h.ID, i)
		}
		if h.Ideology < IdeologyMin || h.Ideology > IdeologyMax {
			t.Fatalf("ideology %v out of range", h.Ideology)
		}
		if h.AffectivePolarization < APMin || h.AffectivePolarization > APMax {
			t.Fatalf("ap %v out of range", h.AffectivePolarization)
		}
		for _, v := range []float64{h.SocialInfluence, h.SelectiveExposure, h.Homophily} {
			if v < 0 || v > 1 {
				t.Fatalf("trait %v out of [0,1]", v)
			}
		}
		if h.NewsFrequency < 1 || h.NewsFrequency > p.MaxNewsFrequency {
			t.Fatalf("news frequency %d", h.NewsFrequency)
		}
		if !h.Happy {
			t.Fatal("humans start happy")
		}
	}
}

func TestSpawnFromRecordClamps(t *testing.T) {
	s := NewSpawner(entropy.New(1), config.Default())
	h, err := s.SpawnFromRecord(Record{
		ID: "r-1", Party: "R", Ideology: 7.5, AffectivePolarization: -2,
		NewsFrequency: 2, DiscussionFrequency: -1,
	}, world.Coord{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if h.Ideology != IdeologyMax || h.AffectivePolarization != APMin {
		t.Fatalf("not clamped: ideology=%v ap=%v", h.Ideology, h.AffectivePolarization)
	}
	if h.DiscussionFrequency != 1 || h.NewsFrequency != 2 {
		t.Fatalf("frequencies news=%d discussion=%d", h.NewsFrequency, h.DiscussionFrequency)
	}
	if h.ExternalID != "r-1" || h.Party != Republican || h.Position != (world.Coord{X: 1, Y: 2}) {
		t.Fatalf("identity not carried: %+v", h)
	}

	if _, err := s.SpawnFromRecord(Record{ID: "x", Party: "?"}, world.Coord{}); !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("err=%v want ErrUnknownParty", err)
	}
}

func TestSpawnFromRecordRepairsNaNAndZeroFrequencies(t *testing.T) {
	s := NewSpawner(entropy.New(1), config.Default())
	h, err := s.SpawnFromRecord(Record{
		ID: "a", Party: "D", Ideology: math.NaN(), AffectivePolarization: math.NaN(),
	}, world.Coord{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if h.Ideology != IdeologyMin || h.AffectivePolarization != APMin {
		t.Fatalf("ideology=%v ap=%v want %v and %v", h.Ideology, h.AffectivePolarization, IdeologyMin, APMin)
	}
	if h.NewsFrequency != 1 || h.DiscussionFrequency != 1 {
		t.Fatalf("frequencies news=%d discussion=%d want 1 and 1", h.NewsFrequency, h.DiscussionFrequency)
	}
}

func TestSpawnMediaCyclesTypes(t *testing.T) {
	s := NewSpawner(entropy.New(2), config.Default())
	for i := 0; i < 6; i++ {
		m := s.SpawnMedia(world.Coord{X: i})
		if m.Type != MediaType(i%3) {
			t.Fatalf("media %d type=%v", i, m.Type)
		}
		if m.Ideology < IdeologyMin || m.Ideology > IdeologyMax || m.Strength < 0 || m.Strength > 1 {
			t.Fatalf("media out of range: %+v", m)
		}
	}
}

func TestRegionalLeanShiftsIdeology(t *testing.T) {
	pos := world.Coord{X: 3, Y: 3}
	for seed := int64(1); seed < 50; seed++ {
		p := config.Default()
		plain := NewSpawner(entropy.New(seed), p).SpawnHuman(pos)
		if plain.Ideology <= IdeologyMin || plain.Ideology >= IdeologyMax {
			continue // clamped draw hides the raw value
		}

		p.RegionalLean = 1
		leaned := NewSpawner(entropy.New(seed), p)
		h := leaned.SpawnHuman(pos)
		want := entropy.Clamp(plain.Ideology+leaned.lean.At(pos), IdeologyMin, IdeologyMax)
		if h.Ideology != want {
			t.Fatalf("seed %d: leaned ideology=%v want %v", seed, h.Ideology, want)
		}
		return
	}
	t.Fatal("no unclamped draw found")
}
