package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"example.com/kaitrack/internal/auth"
	"example.com/kaitrack/internal/config"
)

func newTestContext(t *testing.T) (*Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	ctx, err := NewContext(&buf, config.Config{ProgressionBasePoints: 100})
	require.NoError(t, err)
	return ctx, &buf
}

func TestRankShowsProgressToNextTier(t *testing.T) {
	ctx, out := newTestContext(t)

	require.NoError(t, (&RankCmd{Score: 1050}).Run(ctx))
	require.Contains(t, out.String(), "Initiate Saiyan")
	require.Contains(t, out.String(), "50.0% to Saiyan (350 pts to go)")

	out.Reset()
	require.NoError(t, (&RankCmd{Score: 45000}).Run(ctx))
	require.Contains(t, out.String(), "God Form")
	require.Contains(t, out.String(), "top tier reached")

	require.Error(t, (&RankCmd{Score: -1}).Run(ctx))
}

func TestRanksListsEveryTier(t *testing.T) {
	ctx, out := newTestContext(t)
	require.NoError(t, (&RanksCmd{}).Run(ctx))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1+len(ctx.Ranks.Tiers()))
	require.Contains(t, lines[1], "Human Form")
	require.Contains(t, lines[len(lines)-1], "30000")
}

func TestSpinIsDeterministicForSeed(t *testing.T) {
	ctx, out := newTestContext(t)
	require.NoError(t, (&SpinCmd{Seed: 42, Count: 1}).Run(ctx))
	first := out.String()

	out.Reset()
	require.NoError(t, (&SpinCmd{Seed: 42, Count: 1}).Run(ctx))
	require.Equal(t, first, out.String())

	out.Reset()
	require.NoError(t, (&SpinCmd{Seed: 7, Count: 500}).Run(ctx))
	require.Contains(t, out.String(), "expected")
	require.Contains(t, out.String(), "Dragon Warrior")

	require.Error(t, (&SpinCmd{Count: 0}).Run(ctx))
}

func TestSimulateReachesFirstMilestone(t *testing.T) {
	ctx, out := newTestContext(t)
	require.NoError(t, (&SimulateCmd{Pattern: "WWWWWWW", Start: "2024-03-01"}).Run(ctx))

	text := out.String()
	require.Contains(t, text, "2024-03-07")
	require.Contains(t, text, "milestone 7 (+500)")
	require.Contains(t, text, "promoted from Human Form")
	require.Contains(t, text, "1200 pts, longest streak 7")
}

func TestSimulateResetsStreakAfterMissedDay(t *testing.T) {
	ctx, out := newTestContext(t)
	require.NoError(t, (&SimulateCmd{Pattern: "WW-R", Start: "2024-03-01"}).Run(ctx))

	text := out.String()
	require.Contains(t, text, "2024-03-03  missed")
	require.Contains(t, text, "longest streak 2")
	require.Contains(t, text, "200 pts")

	require.Error(t, (&SimulateCmd{Pattern: "WX"}).Run(ctx))
	require.Error(t, (&SimulateCmd{Pattern: "W", Start: "03/01/2024"}).Run(ctx))
}

func TestTokenIssuesParseableToken(t *testing.T) {
	ctx, out := newTestContext(t)
	cmd := &TokenCmd{Subject: "goku", Username: "Goku", TTL: time.Hour, Secret: "s3cret", Issuer: "kaitrack.test"}
	require.NoError(t, cmd.Run(ctx))

	claims, err := auth.Parse(strings.TrimSpace(out.String()), auth.Config{Secret: "s3cret", Issuer: "kaitrack.test"})
	require.NoError(t, err)
	require.Equal(t, "goku", claims.Subject)
	for _, scope := range auth.AllScopes() {
		require.True(t, claims.HasScope(scope), scope)
	}
}

func TestKongParsesCommands(t *testing.T) {
	var cli struct {
		Rank     RankCmd     `cmd:""`
		Simulate SimulateCmd `cmd:""`
		Spin     SpinCmd     `cmd:""`
	}
	parser, err := kong.New(&cli, kong.Name("kaictl"))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"spin", "--seed", "9", "--count", "3"})
	require.NoError(t, err)
	require.Equal(t, "spin", kctx.Command())
	require.Equal(t, uint64(9), cli.Spin.Seed)

	ctx, out := newTestContext(t)
	kctx, err = parser.Parse([]string{"rank", "700"})
	require.NoError(t, err)
	require.NoError(t, kctx.Run(ctx))
	require.Contains(t, out.String(), "Initiate Saiyan")
}
