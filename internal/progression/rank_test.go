package progression

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTierBoundaries(t *testing.T) {
	table := DefaultRankTable()

	cases := []struct {
		score int64
		want  string
	}{
		{0, "Human Form"},
		{699, "Human Form"},
		{700, "Initiate Saiyan"},
		{1399, "Initiate Saiyan"},
		{1400, "Saiyan"},
		{9000, "SSJ3"},
		{29999, "Final Form"},
		{30000, "God Form"},
		{1_000_000, "God Form"},
		{-50, "Human Form"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, table.Resolve(tc.score), "score %d", tc.score)
	}
}

func TestNewRankTableRejectsMalformedTables(t *testing.T) {
	bad := [][]RankTier{
		nil,
		{{Label: "A", ScoreThreshold: 10}},
		{{Label: "A", ScoreThreshold: 0}, {Label: "B", ScoreThreshold: 0}},
		{{Label: "A", ScoreThreshold: 0}, {Label: "B", ScoreThreshold: 100}, {Label: "C", ScoreThreshold: 50}},
		{{Label: "A", ScoreThreshold: 0}, {Label: " ", ScoreThreshold: 10}},
		{{Label: "A", ScoreThreshold: 0}, {Label: "A", ScoreThreshold: 10}},
	}
	for i, tiers := range bad {
		_, err := NewRankTable(tiers)
		require.ErrorIs(t, err, ErrInvalidConfiguration, "case %d", i)
	}
}

func TestRankTableCopiesInput(t *testing.T) {
	tiers := []RankTier{{Label: "A", ScoreThreshold: 0}, {Label: "B", ScoreThreshold: 10}}
	table, err := NewRankTable(tiers)
	require.NoError(t, err)

	tiers[1].Label = "mutated"
	require.Equal(t, "B", table.Resolve(10))

	out := table.Tiers()
	out[0].Label = "mutated"
	require.Equal(t, "A", table.Resolve(0))
}

func TestProgressTowardsNextTier(t *testing.T) {
	table := DefaultRankTable()

	p := table.Progress(1050)
	require.Equal(t, "Initiate Saiyan", p.Current.Label)
	require.NotNil(t, p.Next)
	require.Equal(t, "Saiyan", p.Next.Label)
	require.InDelta(t, 50.0, p.Percent, 0.0001)

	top := table.Progress(45000)
	require.Equal(t, "God Form", top.Current.Label)
	require.Nil(t, top.Next)
	require.Equal(t, 100.0, top.Percent)

	require.Equal(t, 2, table.Index("Saiyan"))
	require.Equal(t, -1, table.Index("Nope"))
}

func TestDateJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	raw, err := json.Marshal(wrapper{D: NewDate(2024, 2, 29)})
	require.NoError(t, err)
	require.JSONEq(t, `{"d":"2024-02-29"}`, string(raw))

	var back wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-03-01"}`), &back))
	require.Equal(t, 1, DaysBetween(NewDate(2024, 2, 29), back.D))

	require.Error(t, json.Unmarshal([]byte(`{"d":"yesterday"}`), &back))
}

func TestCalendarWindows(t *testing.T) {
	// 2024-06-12 is a Wednesday
	require.Equal(t, NewDate(2024, 6, 9), WeekStart(NewDate(2024, 6, 12)))
	require.Equal(t, NewDate(2024, 6, 9), WeekStart(NewDate(2024, 6, 9)))
	require.Equal(t, NewDate(2024, 6, 1), MonthStart(NewDate(2024, 6, 12)))
	require.True(t, NewDate(2024, 6, 1).Before(NewDate(2024, 6, 2)))
	require.True(t, NewDate(2024, 6, 3).After(NewDate(2024, 6, 2)))
}
