// Package reward implements the Wheel of Honor weighted draw.
package reward

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfiguration indicates a malformed reward table.
var ErrInvalidConfiguration = errors.New("invalid reward configuration")

// Category is the closed set of reward kinds.
type Category string

const (
	CategoryPoints   Category = "points"
	CategoryTitle    Category = "title"
	CategoryCosmetic Category = "cosmetic"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPoints, CategoryTitle, CategoryCosmetic:
		return true
	default:
		return false
	}
}

// Definition is one wheel entry. Points is set for CategoryPoints, Label for the others.
type Definition struct {
	Category Category `json:"category"`
	Points   int64    `json:"points,omitempty"`
	Label    string   `json:"label,omitempty"`
	Weight   float64  `json:"weight"`
}

// Value returns the payload as shown to users: the point amount or the label.
func (d Definition) Value() string {
	if d.Category == CategoryPoints {
		return fmt.Sprintf("%d", d.Points)
	}
	return d.Label
}

func (d Definition) validate(i int) error {
	if math.IsNaN(d.Weight) || math.IsInf(d.Weight, 0) || d.Weight <= 0 {
		return fmt.Errorf("%w: entry %d has non-positive weight %v", ErrInvalidConfiguration, i, d.Weight)
	}
	switch d.Category {
	case CategoryPoints:
		if d.Points <= 0 {
			return fmt.Errorf("%w: entry %d awards %d points", ErrInvalidConfiguration, i, d.Points)
		}
	case CategoryTitle, CategoryCosmetic:
		if strings.TrimSpace(d.Label) == "" {
			return fmt.Errorf("%w: entry %d (%s) has no label", ErrInvalidConfiguration, i, d.Category)
		}
	default:
		return fmt.Errorf("%w: entry %d has unknown category %q", ErrInvalidConfiguration, i, d.Category)
	}
	return nil
}

// Source yields uniform draws in [0, 1). *math/rand/v2.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Table is a validated, immutable, ordered reward list.
type Table struct {
	defs  []Definition
	total float64
}

// NewTable validates defs and returns a Table that draws in the given order.
func NewTable(defs []Definition) (*Table, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: reward table is empty", ErrInvalidConfiguration)
	}
	var total float64
	for i, d := range defs {
		if err := d.validate(i); err != nil {
			return nil, err
		}
		total += d.Weight
	}
	out := make([]Definition, len(defs))
	copy(out, defs)
	return &Table{defs: out, total: total}, nil
}

// DefaultDefinitions returns the shipped wheel.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Category: CategoryPoints, Points: 100, Weight: 40},
		{Category: CategoryPoints, Points: 200, Weight: 30},
		{Category: CategoryPoints, Points: 500, Weight: 15},
		{Category: CategoryPoints, Points: 1000, Weight: 5},
		{Category: CategoryTitle, Label: "Dragon Warrior", Weight: 3},
		{Category: CategoryTitle, Label: "Ki Master", Weight: 2},
		{Category: CategoryTitle, Label: "Ultra Instinct", Weight: 1},
		{Category: CategoryCosmetic, Label: "Golden Aura", Weight: 2},
		{Category: CategoryCosmetic, Label: "Blue Ki Flame", Weight: 1.5},
		{Category: CategoryCosmetic, Label: "Divine Energy", Weight: 0.5},
	}
}

// DefaultTable returns the table built from DefaultDefinitions.
func DefaultTable() *Table {
	t, err := NewTable(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return t
}

// Definitions returns a copy of the entries in draw order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, len(t.defs))
	copy(out, t.defs)
	return out
}

// TotalWeight is the sum of all weights.
func (t *Table) TotalWeight() float64 {
	return t.total
}

// Select consumes one draw from src and returns the chosen entry by walking the
// table in order and subtracting weights until the remainder drops to zero or below.
func (t *Table) Select(src Source) Definition {
	r := src.Float64() * t.total
	for _, d := range t.defs {
		r -= d.Weight
		if r <= 0 {
			return d
		}
	}
	// float drift
	return t.defs[len(t.defs)-1]
}

// SelectReward validates defs and draws once. Prefer building a Table at load time.
func SelectReward(defs []Definition, src Source) (Definition, error) {
	t, err := NewTable(defs)
	if err != nil {
		return Definition{}, err
	}
	return t.Select(src), nil
}
