// Package cli holds the kaictl subcommands.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"example.com/kaitrack/internal/config"
	"example.com/kaitrack/internal/progression"
	"example.com/kaitrack/internal/reward"
)

// Context is shared by every command.
type Context struct {
	Out       io.Writer
	Ranks     *progression.RankTable
	Rewards   *reward.Table
	Evaluator *progression.Evaluator
}

// NewContext loads the tables the same way the API does, so offline answers match the service.
func NewContext(out io.Writer, cfg config.Config) (*Context, error) {
	ranks, err := cfg.RankTable()
	if err != nil {
		return nil, err
	}
	rewards, err := cfg.RewardTable()
	if err != nil {
		return nil, err
	}
	evaluator, err := progression.NewEvaluator(ranks, cfg.Rules())
	if err != nil {
		return nil, err
	}
	return &Context{Out: out, Ranks: ranks, Rewards: rewards, Evaluator: evaluator}, nil
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

var palette = []string{"250", "117", "220", "214", "208", "202", "39", "135", "201"}

var labelStyle = lipgloss.NewStyle().Bold(true)

// badge renders a tier label with a colour picked from its position in the ladder.
func (c *Context) badge(label string) string {
	idx := c.Ranks.Index(label)
	if idx < 0 {
		idx = 0
	}
	color := palette[idx%len(palette)]
	return lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color(color)).
		Render(label)
}

func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
