package cli

import "fmt"

type RankCmd struct {
	Score int64 `arg:"" help:"Cumulative Kai points."`
}

func (c *RankCmd) Run(ctx *Context) error {
	if c.Score < 0 {
		return fmt.Errorf("score must be non-negative, got %d", c.Score)
	}
	p := ctx.Ranks.Progress(c.Score)
	ctx.printf("%s %s\n", ctx.badge(p.Current.Label), labelStyle.Render(fmt.Sprintf("%d pts", c.Score)))
	if p.Next == nil {
		ctx.printf("  top tier reached\n")
		return nil
	}
	ctx.printf("  %s %.1f%% to %s (%d pts to go)\n",
		bar(p.Percent, 20), p.Percent, p.Next.Label, p.Next.ScoreThreshold-c.Score)
	return nil
}

type RanksCmd struct{}

func (c *RanksCmd) Run(ctx *Context) error {
	ctx.printf("Tiers:\n")
	for _, tier := range ctx.Ranks.Tiers() {
		ctx.printf("  %6d  %s\n", tier.ScoreThreshold, ctx.badge(tier.Label))
	}
	return nil
}
