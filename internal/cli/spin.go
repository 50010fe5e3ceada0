package cli

import (
	"fmt"
	"math/rand/v2"

	"example.com/kaitrack/internal/reward"
)

type SpinCmd struct {
	Seed  uint64 `help:"Seed for the random source." default:"1"`
	Count int    `help:"Number of spins to draw." default:"1"`
}

func (c *SpinCmd) Run(ctx *Context) error {
	if c.Count < 1 {
		return fmt.Errorf("count must be positive, got %d", c.Count)
	}
	src := rand.New(rand.NewPCG(c.Seed, c.Seed))

	if c.Count == 1 {
		def := ctx.Rewards.Select(src)
		ctx.printf("%s %s\n", labelStyle.Render(string(def.Category)), def.Value())
		return nil
	}

	defs := ctx.Rewards.Definitions()
	hits := make([]int, len(defs))
	for i := 0; i < c.Count; i++ {
		hits[indexOf(defs, ctx.Rewards.Select(src))]++
	}

	total := ctx.Rewards.TotalWeight()
	ctx.printf("%-10s %-22s %8s %8s\n", "category", "reward", "expected", "observed")
	for i, def := range defs {
		ctx.printf("%-10s %-22s %7.2f%% %7.2f%%\n",
			def.Category, def.Value(),
			def.Weight/total*100,
			float64(hits[i])/float64(c.Count)*100)
	}
	return nil
}

func indexOf(defs []reward.Definition, def reward.Definition) int {
	for i, d := range defs {
		if d == def {
			return i
		}
	}
	return 0
}
