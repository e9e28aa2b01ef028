// Package config holds the parameter bundle a run is set up with.
// Parameters come from defaults, an optional YAML file, the environment
// (POLARSIM_<KEY>, with .env support) and explicit key=value overrides,
// in that order. The simulation copies the bundle at setup and never
// re-reads it.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalid      = errors.New("invalid configuration")
	ErrUnknownParam = errors.New("unknown parameter")
)

// EnvPrefix prefixes every parameter read from the environment.
const EnvPrefix = "POLARSIM_"

// Params is the complete set of named simulation parameters.
type Params struct {
	// World
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Wrap   bool  `yaml:"wrap"`
	Seed   int64 `yaml:"seed"` // 0 = random

	// Population
	PopulationDensity float64 `yaml:"population_density"` // Share of cells holding humans
	MediaDensity      float64 `yaml:"media_density"`      // Share of cells holding media outlets
	IndependentShare  float64 `yaml:"independent_share"`  // Share of humans who are Independents

	// Global trait means; individual values are mean + Normal(0, TraitNoise), clamped to [0,1].
	GlobalSocialInfluence   float64 `yaml:"global_social_influence"`
	GlobalMediaInfluence    float64 `yaml:"global_media_influence"`
	GlobalSelectiveExposure float64 `yaml:"global_selective_exposure"`
	GlobalHomophily         float64 `yaml:"global_homophily"`
	TraitNoise              float64 `yaml:"trait_noise"`
	MaxNewsFrequency        int     `yaml:"max_news_frequency"`
	MaxDiscussionFrequency  int     `yaml:"max_discussion_frequency"`

	// Run
	MaxTicks     int  `yaml:"max_ticks"`
	ReportEvery  int  `yaml:"report_every"` // Ticks between report/snapshot callbacks
	ShuffleOrder bool `yaml:"shuffle_order"`

	// Affective polarization dynamics
	APDecayRate           float64 `yaml:"ap_decay_rate"`
	BackfireProbability   float64 `yaml:"backfire_probability"`
	BackfireAmplifier     float64 `yaml:"backfire_amplifier"`
	DisagreementThreshold float64 `yaml:"disagreement_threshold"`
	DisagreementPenalty   float64 `yaml:"disagreement_penalty"`
	LikeMindedThreshold   float64 `yaml:"like_minded_threshold"`
	LikeMindedBoost       float64 `yaml:"like_minded_boost"`
	CrossCuttingThreshold float64 `yaml:"cross_cutting_threshold"`
	CrossCuttingReduction float64 `yaml:"cross_cutting_reduction"`

	// Selection biases
	MediaBiasCoefficient float64 `yaml:"media_bias_coefficient"`
	DiscussionModifier   float64 `yaml:"discussion_modifier"`
	ConsumptionModifier  float64 `yaml:"consumption_modifier"`

	// Satisfaction and mobility
	BaselineStress      float64 `yaml:"baseline_stress"`
	SocialComfortWeight float64 `yaml:"social_comfort_weight"`
	SearchRadius        float64 `yaml:"search_radius"`
	FlipThreshold       int     `yaml:"flip_threshold"` // Consecutive contrary draws before happiness flips

	// Regional lean of initial ideology (0 disables).
	RegionalLean  float64 `yaml:"regional_lean"`
	RegionalScale float64 `yaml:"regional_scale"`
}

// Default returns the baseline parameter set.
func Default() Params {
	return Params{
		Width:  40,
		Height: 40,

		PopulationDensity: 0.30,
		MediaDensity:      0.02,
		IndependentShare:  0.30,

		GlobalSocialInfluence:   0.10,
		GlobalMediaInfluence:    0.10,
		GlobalSelectiveExposure: 0.50,
		GlobalHomophily:         0.50,
		TraitNoise:              0.10,
		MaxNewsFrequency:        3,
		MaxDiscussionFrequency:  3,

		MaxTicks:     500,
		ReportEvery:  50,
		ShuffleOrder: true,

		APDecayRate:           0.01,
		BackfireProbability:   0.10,
		BackfireAmplifier:     2.0,
		DisagreementThreshold: 2.0,
		DisagreementPenalty:   0.10,
		LikeMindedThreshold:   0.5,
		LikeMindedBoost:       0.05,
		CrossCuttingThreshold: 1.0,
		CrossCuttingReduction: 0.05,

		MediaBiasCoefficient: 2.0,
		DiscussionModifier:   2.0,
		ConsumptionModifier:  1.0,

		BaselineStress:      0.10,
		SocialComfortWeight: 0.5,
		SearchRadius:        5,
		FlipThreshold:       1,

		RegionalScale: 10,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Params, error) {
	p := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ApplyEnv overrides parameters from POLARSIM_<KEY> environment variables,
// loading a .env file first when one exists.
func (p *Params) ApplyEnv() error {
	_ = godotenv.Load()

	for _, key := range Keys() {
		v, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key))
		if !ok || v == "" {
			continue
		}
		if err := p.Set(key, v); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
	}
	return nil
}

// Set assigns one parameter by its YAML key.
func (p *Params) Set(key, value string) error {
	f, ok := p.fields()[key]
	if !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownParam)
	}
	value = strings.TrimSpace(value)
	switch ptr := f.(type) {
	case *float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*ptr = v
	case *int:
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*ptr = v
	case *int64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*ptr = v
	case *bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*ptr = v
	}
	return nil
}

// SetPairs applies "key=value" overrides.
func (p *Params) SetPairs(pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("override %q: expected key=value: %w", pair, ErrInvalid)
		}
		if err := p.Set(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists every settable parameter key, sorted.
func Keys() []string {
	var p Params
	fields := p.fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Params) fields() map[string]any {
	return map[string]any{
		"width":                     &p.Width,
		"height":                    &p.Height,
		"wrap":                      &p.Wrap,
		"seed":                      &p.Seed,
		"population_density":        &p.PopulationDensity,
		"media_density":             &p.MediaDensity,
		"independent_share":         &p.IndependentShare,
		"global_social_influence":   &p.GlobalSocialInfluence,
		"global_media_influence":    &p.GlobalMediaInfluence,
		"global_selective_exposure": &p.GlobalSelectiveExposure,
		"global_homophily":          &p.GlobalHomophily,
		"trait_noise":               &p.TraitNoise,
		"max_news_frequency":        &p.MaxNewsFrequency,
		"max_discussion_frequency":  &p.MaxDiscussionFrequency,
		"max_ticks":                 &p.MaxTicks,
		"report_every":              &p.ReportEvery,
		"shuffle_order":             &p.ShuffleOrder,
		"ap_decay_rate":             &p.APDecayRate,
		"backfire_probability":      &p.BackfireProbability,
		"backfire_amplifier":        &p.BackfireAmplifier,
		"disagreement_threshold":    &p.DisagreementThreshold,
		"disagreement_penalty":      &p.DisagreementPenalty,
		"like_minded_threshold":     &p.LikeMindedThreshold,
		"like_minded_boost":         &p.LikeMindedBoost,
		"cross_cutting_threshold":   &p.CrossCuttingThreshold,
		"cross_cutting_reduction":   &p.CrossCuttingReduction,
		"media_bias_coefficient":    &p.MediaBiasCoefficient,
		"discussion_modifier":       &p.DiscussionModifier,
		"consumption_modifier":      &p.ConsumptionModifier,
		"baseline_stress":           &p.BaselineStress,
		"social_comfort_weight":     &p.SocialComfortWeight,
		"search_radius":             &p.SearchRadius,
		"flip_threshold":            &p.FlipThreshold,
		"regional_lean":             &p.RegionalLean,
		"regional_scale":            &p.RegionalScale,
	}
}

// Validate checks parameter ranges. Grid capacity is checked again at
// placement time, where an overfull configuration is a setup error.
func (p Params) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	unit := func(name string, v float64) {
		check(v >= 0 && v <= 1, "%s=%v must be in [0,1]", name, v)
	}

	fields := p.fields()
	for _, key := range Keys() {
		if f, ok := fields[key].(*float64); ok {
			check(!math.IsNaN(*f) && !math.IsInf(*f, 0), "%s=%v must be finite", key, *f)
		}
	}
	check(p.Width > 0 && p.Height > 0, "grid %dx%d must be positive", p.Width, p.Height)
	unit("population_density", p.PopulationDensity)
	unit("media_density", p.MediaDensity)
	check(p.PopulationDensity+p.MediaDensity <= 1,
		"population_density+media_density=%v exceeds grid capacity", p.PopulationDensity+p.MediaDensity)
	unit("independent_share", p.IndependentShare)
	unit("global_social_influence", p.GlobalSocialInfluence)
	unit("global_media_influence", p.GlobalMediaInfluence)
	unit("global_selective_exposure", p.GlobalSelectiveExposure)
	unit("global_homophily", p.GlobalHomophily)
	unit("ap_decay_rate", p.APDecayRate)
	unit("backfire_probability", p.BackfireProbability)
	unit("social_comfort_weight", p.SocialComfortWeight)
	check(p.TraitNoise >= 0, "trait_noise=%v must be >= 0", p.TraitNoise)
	check(p.MaxNewsFrequency >= 1, "max_news_frequency=%d must be >= 1", p.MaxNewsFrequency)
	check(p.MaxDiscussionFrequency >= 1, "max_discussion_frequency=%d must be >= 1", p.MaxDiscussionFrequency)
	check(p.MaxTicks >= 0, "max_ticks=%d must be >= 0", p.MaxTicks)
	check(p.ReportEvery >= 0, "report_every=%d must be >= 0", p.ReportEvery)
	check(p.FlipThreshold >= 1, "flip_threshold=%d must be >= 1", p.FlipThreshold)
	check(p.SearchRadius >= 0, "search_radius=%v must be >= 0", p.SearchRadius)
	check(p.LikeMindedThreshold <= p.CrossCuttingThreshold,
		"like_minded_threshold=%v exceeds cross_cutting_threshold=%v", p.LikeMindedThreshold, p.CrossCuttingThreshold)
	check(p.CrossCuttingThreshold <= p.DisagreementThreshold,
		"cross_cutting_threshold=%v exceeds disagreement_threshold=%v", p.CrossCuttingThreshold, p.DisagreementThreshold)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
