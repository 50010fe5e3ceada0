package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"example.com/kaitrack/internal/cli"
	"example.com/kaitrack/internal/config"
)

var CLI struct {
	Version       kong.VersionFlag
	RankTable     string `help:"Rank table JSON file." env:"PROGRESSION_RANK_TABLE_FILE"`
	RewardTable   string `help:"Reward table JSON file." env:"WHEEL_REWARD_TABLE_FILE"`
	BasePoints    int64  `help:"Points per workout." env:"PROGRESSION_BASE_POINTS" default:"100"`
	RestDayPoints int64  `help:"Points per rest day." env:"PROGRESSION_REST_DAY_POINTS" default:"0"`

	Rank     cli.RankCmd     `cmd:"" help:"Show the tier for a score."`
	Ranks    cli.RanksCmd    `cmd:"" help:"List the tier ladder."`
	Spin     cli.SpinCmd     `cmd:"" help:"Spin the Wheel of Honor offline."`
	Simulate cli.SimulateCmd `cmd:"" help:"Replay a workout pattern through the scoring rules."`
	Token    cli.TokenCmd    `cmd:"" help:"Issue a development bearer token."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("kaictl"),
		kong.Description("Offline tools for kaitrack ranks, rewards and tokens"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	appCtx, err := cli.NewContext(os.Stdout, config.Config{
		ProgressionRankTableFile: CLI.RankTable,
		WheelRewardTableFile:     CLI.RewardTable,
		ProgressionBasePoints:    CLI.BasePoints,
		ProgressionRestDayPoints: CLI.RestDayPoints,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
