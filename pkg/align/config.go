// Package align matches sections between two versions of a contract with
// multi-signal scoring, Hungarian assignment, split/merge detection, and
// externally supplied hints.
package align

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// Weights are the per-signal multipliers of the overall similarity score.
type Weights struct {
	ID       float64 `koanf:"id" json:"id"`
	Title    float64 `koanf:"title" json:"title"`
	Semantic float64 `koanf:"semantic" json:"semantic"`
	Position float64 `koanf:"position" json:"position"`
	Text     float64 `koanf:"text" json:"text"`
}

// Thresholds govern pass acceptance and review flagging.
type Thresholds struct {
	Match               float64 `koanf:"match" json:"match"`
	Review              float64 `koanf:"review" json:"review"`
	SplitMergeCandidate float64 `koanf:"split_merge_candidate" json:"split_merge_candidate"`
	SplitMergeAccept    float64 `koanf:"split_merge_accept" json:"split_merge_accept"`
	UnmatchedDefault    float64 `koanf:"unmatched_default" json:"unmatched_default"`
}

// Config is the alignment configuration.
type Config struct {
	Weights    Weights    `koanf:"weights" json:"weights"`
	Thresholds Thresholds `koanf:"thresholds" json:"thresholds"`
}

// DefaultConfig returns the standard weights and thresholds.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			ID:       0.25,
			Title:    0.20,
			Semantic: 0.35,
			Position: 0.10,
			Text:     0.10,
		},
		Thresholds: Thresholds{
			Match:               0.60,
			Review:              0.75,
			SplitMergeCandidate: 0.30,
			SplitMergeAccept:    0.80,
			UnmatchedDefault:    0.60,
		},
	}
}

// LoadConfig reads a YAML overrides file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return cfg, oops.Code("CONFIG_LOAD").With("path", path).Wrap(err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.Code("CONFIG_PARSE").With("path", path).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects nonsensical weight or threshold values.
func (c Config) Validate() error {
	total := c.Weights.ID + c.Weights.Title + c.Weights.Semantic + c.Weights.Position + c.Weights.Text
	if total <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("signal weights sum to %v", total)
	}
	for name, v := range map[string]float64{
		"match":                 c.Thresholds.Match,
		"review":                c.Thresholds.Review,
		"split_merge_candidate": c.Thresholds.SplitMergeCandidate,
		"split_merge_accept":    c.Thresholds.SplitMergeAccept,
		"unmatched_default":     c.Thresholds.UnmatchedDefault,
	} {
		if v < 0 || v > 1 {
			return oops.Code("CONFIG_INVALID").Errorf("threshold %s out of range: %v", name, v)
		}
	}
	return nil
}

// String summarizes the config for logs.
func (c Config) String() string {
	return fmt.Sprintf("weights{id=%.2f title=%.2f semantic=%.2f position=%.2f text=%.2f} thresholds{match=%.2f review=%.2f}",
		c.Weights.ID, c.Weights.Title, c.Weights.Semantic, c.Weights.Position, c.Weights.Text,
		c.Thresholds.Match, c.Thresholds.Review)
}
