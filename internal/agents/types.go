// Package agents provides the human and media agent model, the happiness
// state machine, and the spawner that creates the initial population.
package agents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/polarsim/internal/entropy"
	"github.com/talgya/polarsim/internal/world"
)

// Ideology and affective polarization bounds.
const (
	IdeologyMin = 1.0 // Liberal
	IdeologyMax = 5.0 // Conservative
	IdeologyMid = 3.0
	APMin       = 0.0
	APMax       = 10.0
)

var ErrUnknownParty = errors.New("unknown party")

// Party is a human's fixed partisan identity.
type Party uint8

const (
	Democrat Party = iota
	Republican
	Independent
)

// NumParties is the number of party values.
const NumParties = 3

// Parties lists every party in index order.
var Parties = [NumParties]Party{Democrat, Republican, Independent}

func (p Party) String() string {
	switch p {
	case Democrat:
		return "Democrat"
	case Republican:
		return "Republican"
	case Independent:
		return "Independent"
	}
	return fmt.Sprintf("Party(%d)", uint8(p))
}

// ParseParty accepts full names or their first letter, case-insensitively.
func ParseParty(s string) (Party, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "democrat", "democratic", "d", "dem":
		return Democrat, nil
	case "republican", "r", "rep":
		return Republican, nil
	case "independent", "i", "ind":
		return Independent, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownParty)
}

// MediaType labels an outlet's editorial slant. Informational only.
type MediaType uint8

const (
	MediaLiberal MediaType = iota
	MediaModerate
	MediaConservative
)

func (m MediaType) String() string {
	switch m {
	case MediaLiberal:
		return "liberal"
	case MediaModerate:
		return "moderate"
	case MediaConservative:
		return "conservative"
	}
	return fmt.Sprintf("MediaType(%d)", uint8(m))
}

// Human is an individual whose ideology and affective polarization evolve.
type Human struct {
	ID         int         `json:"id"`
	ExternalID string      `json:"external_id,omitempty"` // Identifier from a calibration record
	Party      Party       `json:"party"`
	Position   world.Coord `json:"position"`

	Ideology              float64 `json:"ideology"`               // 1 (liberal) – 5 (conservative)
	AffectivePolarization float64 `json:"affective_polarization"` // 0 – 10

	// Traits sampled once at creation.
	SocialInfluence   float64 `json:"social_influence"`   // Susceptibility to discussion partners, 0–1
	SelectiveExposure float64 `json:"selective_exposure"` // 0–1
	Homophily         float64 `json:"homophily"`          // 0–1

	NewsFrequency       int `json:"news_frequency"`       // Outlets consumed per tick
	DiscussionFrequency int `json:"discussion_frequency"` // Partner draws per tick

	// Satisfaction state.
	Happy              bool    `json:"happy"`
	MoodStreak         int     `json:"mood_streak"`
	UnhappyTicks       int     `json:"unhappy_ticks"`
	TicksSinceLastMove int     `json:"ticks_since_last_move"`
	Comfort            float64 `json:"comfort"` // Last computed comfort index

	// Interaction history for the current tick only.
	Partners []*Human `json:"-"`
	Consumed []*Media `json:"-"`
}

// ResetInteractions clears the per-tick interaction buffers, keeping their capacity.
func (h *Human) ResetInteractions() {
	h.Partners = h.Partners[:0]
	h.Consumed = h.Consumed[:0]
}

// ClampState pulls ideology and affective polarization back into range.
func (h *Human) ClampState() {
	h.Ideology = entropy.Clamp(h.Ideology, IdeologyMin, IdeologyMax)
	h.AffectivePolarization = entropy.Clamp(h.AffectivePolarization, APMin, APMax)
}

// Media is a news outlet. Immutable after creation.
type Media struct {
	ID       int         `json:"id"`
	Type     MediaType   `json:"type"`
	Position world.Coord `json:"position"`
	Ideology float64     `json:"ideology"` // 1 – 5
	Strength float64     `json:"strength"` // Influence strength, 0–1
}

// Record is one externally supplied initial human, e.g. a survey respondent.
type Record struct {
	ID                    string  `json:"id" db:"external_id"`
	Party                 string  `json:"party" db:"party"`
	Ideology              float64 `json:"ideology" db:"ideology"`
	NewsFrequency         int     `json:"news_frequency" db:"news_frequency"`
	DiscussionFrequency   int     `json:"discussion_frequency" db:"discussion_frequency"`
	AffectivePolarization float64 `json:"affective_polarization" db:"affective_polarization"`
}
