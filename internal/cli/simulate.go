package cli

import (
	"fmt"
	"time"

	"example.com/kaitrack/internal/progression"
)

// SimulateCmd replays a day pattern through the evaluator. W is a workout,
// R a rest day and - a missed day.
type SimulateCmd struct {
	Pattern string `arg:"" help:"Day pattern, e.g. WWWRWW-W."`
	Start   string `help:"First day (YYYY-MM-DD). Defaults to today."`
	Score   int64  `help:"Starting Kai points."`
}

func (c *SimulateCmd) Run(ctx *Context) error {
	day := progression.Today(time.Now(), time.UTC)
	if c.Start != "" {
		parsed, err := progression.ParseDate(c.Start)
		if err != nil {
			return err
		}
		day = parsed
	}

	p := progression.NewUserProgress(ctx.Ranks)
	if c.Score > 0 {
		next, err := ctx.Evaluator.AwardPoints(p, c.Score)
		if err != nil {
			return err
		}
		p = next
	}

	for i, r := range c.Pattern {
		date := day.AddDays(i)
		switch r {
		case '-':
			ctx.printf("%s  missed\n", date)
			continue
		case 'W', 'w', 'R', 'r':
		default:
			return fmt.Errorf("unknown pattern character %q at position %d", r, i)
		}

		restDay := r == 'R' || r == 'r'
		out, err := ctx.Evaluator.ApplyWorkout(p, date, restDay)
		if err != nil {
			return err
		}
		p = out.Progress

		kind := "workout"
		if restDay {
			kind = "rest"
		}
		ctx.printf("%s  %-7s +%-4d streak %-3d %6d pts  %s", date, kind, out.PointsAwarded(), p.CurrentStreakDays, p.CumulativeScore, p.CurrentTier)
		if out.Milestone > 0 {
			ctx.printf("  milestone %d (+%d)", out.Milestone, out.BonusPoints)
		}
		if out.TierChanged {
			ctx.printf("  promoted from %s", out.PreviousTier)
		}
		ctx.printf("\n")
	}

	ctx.printf("\n%s %d pts, longest streak %d\n", ctx.badge(p.CurrentTier), p.CumulativeScore, p.LongestStreakDays)
	return nil
}
