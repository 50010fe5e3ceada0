package reward

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedSource []float64

func (f *fixedSource) Float64() float64 {
	v := (*f)[0]
	*f = (*f)[1:]
	return v
}

func TestSelectRewardRejectsEmptyTable(t *testing.T) {
	_, err := SelectReward(nil, rand.New(rand.NewPCG(1, 2)))
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewTable([]Definition{})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewTableRejectsBadEntries(t *testing.T) {
	bad := []Definition{
		{Category: CategoryPoints, Points: 100, Weight: 0},
		{Category: CategoryPoints, Points: 100, Weight: -1},
		{Category: CategoryPoints, Points: 100, Weight: math.NaN()},
		{Category: CategoryPoints, Points: 100, Weight: math.Inf(1)},
		{Category: CategoryPoints, Points: 0, Weight: 1},
		{Category: CategoryTitle, Label: "", Weight: 1},
		{Category: CategoryCosmetic, Label: "  ", Weight: 1},
		{Category: "skin", Label: "Golden Aura", Weight: 1},
	}
	for _, d := range bad {
		_, err := NewTable([]Definition{{Category: CategoryPoints, Points: 10, Weight: 1}, d})
		require.ErrorIs(t, err, ErrInvalidConfiguration, "%+v", d)
	}
}

func TestSelectWalksInTableOrder(t *testing.T) {
	table, err := NewTable([]Definition{
		{Category: CategoryPoints, Points: 100, Weight: 1},
		{Category: CategoryTitle, Label: "Ki Master", Weight: 2},
		{Category: CategoryCosmetic, Label: "Golden Aura", Weight: 1},
	})
	require.NoError(t, err)

	// total = 4; draws map to r = 0, 1, 1.2, 3, 3.96
	src := fixedSource{0, 0.25, 0.3, 0.75, 0.99}
	require.Equal(t, int64(100), table.Select(&src).Points)
	require.Equal(t, int64(100), table.Select(&src).Points, "remainder exactly zero picks the current entry")
	require.Equal(t, "Ki Master", table.Select(&src).Label)
	require.Equal(t, "Ki Master", table.Select(&src).Label)
	require.Equal(t, "Golden Aura", table.Select(&src).Label)
}

func TestSelectFallsBackToLastEntry(t *testing.T) {
	table, err := NewTable([]Definition{
		{Category: CategoryPoints, Points: 100, Weight: 0.1},
		{Category: CategoryTitle, Label: "Last", Weight: 0.2},
	})
	require.NoError(t, err)

	// a source violating the [0,1) contract stands in for accumulated float drift
	src := fixedSource{1.5}
	require.Equal(t, "Last", table.Select(&src).Label)
}

func TestSeededDrawsAreReproducible(t *testing.T) {
	table := DefaultTable()
	a := rand.New(rand.NewPCG(42, 1024))
	b := rand.New(rand.NewPCG(42, 1024))
	for i := 0; i < 100; i++ {
		require.Equal(t, table.Select(a), table.Select(b))
	}
}

func TestSelectionFrequencyMatchesWeights(t *testing.T) {
	table := DefaultTable()
	defs := table.Definitions()
	src := rand.New(rand.NewPCG(2024, 7))

	const draws = 200_000
	counts := make([]int, len(defs))
	for i := 0; i < draws; i++ {
		picked := table.Select(src)
		for j, d := range defs {
			if d == picked {
				counts[j]++
				break
			}
		}
	}

	var chi2 float64
	for j, d := range defs {
		expected := draws * d.Weight / table.TotalWeight()
		diff := float64(counts[j]) - expected
		chi2 += diff * diff / expected
	}
	// 9 degrees of freedom, p = 0.001 critical value
	require.Less(t, chi2, 27.88, "counts=%v", counts)
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	require.InDelta(t, 100.0, table.TotalWeight(), 1e-9)
	require.Len(t, table.Definitions(), 10)

	defs := table.Definitions()
	defs[0].Weight = 1000
	require.InDelta(t, 40.0, table.Definitions()[0].Weight, 1e-9)
}

func TestDefinitionValue(t *testing.T) {
	require.Equal(t, "500", Definition{Category: CategoryPoints, Points: 500}.Value())
	require.Equal(t, "Ki Master", Definition{Category: CategoryTitle, Label: "Ki Master"}.Value())
	require.True(t, CategoryCosmetic.Valid())
	require.False(t, Category("skin").Valid())
}
