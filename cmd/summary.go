package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"crescer/internal/portfolio"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

type summaryCmd struct {
	envFile  string
	currency string
	raw      bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the portfolio summary of the logged-in user" }
func (*summaryCmd) Usage() string {
	return `crescer summary [-currency BRL|USD|EUR|GBP] [-raw]
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Environment file loaded before reading the configuration.")
	f.StringVar(&c.currency, "currency", "", "Display currency (defaults to DISPLAY_CURRENCY).")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal styling.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openLocal(ctx, c.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	display := a.cfg.DisplayCurrency
	if c.currency != "" {
		if display, err = portfolio.ParseCurrency(c.currency); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}

	claims, err := loadSession(a.cfg.SessionFile, a.tokens)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	a.warmUp(ctx)

	s, err := a.ledger.Summary(ctx, claims.UserID, display)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	md := summaryMarkdown(claims.Username, s)
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

func summaryMarkdown(username string, s portfolio.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s's stack\n\n", username)

	b.WriteString("| | |\n|---|---:|\n")
	row := func(label, value string) {
		fmt.Fprintf(&b, "| %s | %s |\n", label, value)
	}
	row("Balance", portfolio.FormatBTC(s.TotalBitcoin))
	row("Satoshis", fmt.Sprintf("%d", s.TotalSatoshis))
	row("Invested", portfolio.FormatFiat(s.TotalInvested, s.Currency))
	row("Average buy price", portfolio.FormatFiat(s.AverageBuyPrice, s.Currency))
	if s.SellCount > 0 {
		row("Average sell price", portfolio.FormatFiat(s.AverageSellPrice, s.Currency))
	}
	if s.CurrentPrice > 0 {
		row("Bitcoin price", portfolio.FormatFiat(s.CurrentPrice, s.Currency))
		row("Current value", portfolio.FormatFiat(s.CurrentValue, s.Currency))
		row("Profit/loss", fmt.Sprintf("%s (%s)", portfolio.FormatFiat(s.Profit, s.Currency), portfolio.FormatPercent(s.ProfitPercentage)))
	} else {
		row("Bitcoin price", "unavailable")
	}

	fmt.Fprintf(&b, "\n%d buys, %d sells\n", s.BuyCount, s.SellCount)
	return b.String()
}
