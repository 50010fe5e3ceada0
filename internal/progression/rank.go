package progression

import (
	"fmt"
	"strings"
)

// RankTier is a named level unlocked once the cumulative score reaches ScoreThreshold.
type RankTier struct {
	Label          string `json:"label"`
	ScoreThreshold int64  `json:"score_threshold"`
}

// DefaultRankTiers returns the shipped tier ladder in ascending order.
func DefaultRankTiers() []RankTier {
	return []RankTier{
		{Label: "Human Form", ScoreThreshold: 0},
		{Label: "Initiate Saiyan", ScoreThreshold: 700},
		{Label: "Saiyan", ScoreThreshold: 1400},
		{Label: "Super Saiyan", ScoreThreshold: 3000},
		{Label: "SSJ2", ScoreThreshold: 6000},
		{Label: "SSJ3", ScoreThreshold: 9000},
		{Label: "Blue Sign", ScoreThreshold: 14000},
		{Label: "Final Form", ScoreThreshold: 20000},
		{Label: "God Form", ScoreThreshold: 30000},
	}
}

// RankTable is a validated, immutable tier ladder.
type RankTable struct {
	tiers []RankTier
}

// NewRankTable validates tiers and returns a table. Thresholds must start at zero and be
// strictly increasing; labels must be non-empty and unique.
func NewRankTable(tiers []RankTier) (*RankTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: rank table is empty", ErrInvalidConfiguration)
	}
	if tiers[0].ScoreThreshold != 0 {
		return nil, fmt.Errorf("%w: first tier %q must have threshold 0, got %d", ErrInvalidConfiguration, tiers[0].Label, tiers[0].ScoreThreshold)
	}

	seen := make(map[string]struct{}, len(tiers))
	for i, tier := range tiers {
		label := strings.TrimSpace(tier.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: tier %d has an empty label", ErrInvalidConfiguration, i)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("%w: duplicate tier label %q", ErrInvalidConfiguration, label)
		}
		seen[label] = struct{}{}
		if i > 0 && tier.ScoreThreshold <= tiers[i-1].ScoreThreshold {
			return nil, fmt.Errorf("%w: tier %q threshold %d does not exceed %d", ErrInvalidConfiguration, label, tier.ScoreThreshold, tiers[i-1].ScoreThreshold)
		}
	}

	out := make([]RankTier, len(tiers))
	copy(out, tiers)
	return &RankTable{tiers: out}, nil
}

// DefaultRankTable returns the table built from DefaultRankTiers.
func DefaultRankTable() *RankTable {
	table, err := NewRankTable(DefaultRankTiers())
	if err != nil {
		panic(err)
	}
	return table
}

// Tiers returns a copy of the ladder in ascending order.
func (t *RankTable) Tiers() []RankTier {
	out := make([]RankTier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Lowest returns the entry tier.
func (t *RankTable) Lowest() RankTier {
	return t.tiers[0]
}

// Resolve returns the label of the highest tier whose threshold is <= score.
// Scores below zero resolve to the lowest tier.
func (t *RankTable) Resolve(score int64) string {
	return t.tiers[t.indexFor(score)].Label
}

// Index returns the position of label in the ladder, or -1.
func (t *RankTable) Index(label string) int {
	for i, tier := range t.tiers {
		if tier.Label == label {
			return i
		}
	}
	return -1
}

func (t *RankTable) indexFor(score int64) int {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if t.tiers[i].ScoreThreshold <= score {
			return i
		}
	}
	return 0
}

// TierProgress describes where a score sits between its tier and the next one.
type TierProgress struct {
	Current RankTier  `json:"current"`
	Next    *RankTier `json:"next,omitempty"`
	// Percent is the share of the gap to Next already covered, clamped to [0, 100].
	// It is 100 at the top tier.
	Percent float64 `json:"percent"`
}

// Progress reports the tier for score and the progress towards the next tier.
func (t *RankTable) Progress(score int64) TierProgress {
	idx := t.indexFor(score)
	current := t.tiers[idx]
	if idx == len(t.tiers)-1 {
		return TierProgress{Current: current, Percent: 100}
	}

	next := t.tiers[idx+1]
	span := float64(next.ScoreThreshold - current.ScoreThreshold)
	pct := float64(score-current.ScoreThreshold) / span * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return TierProgress{Current: current, Next: &next, Percent: pct}
}
