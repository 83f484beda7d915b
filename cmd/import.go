package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"crescer/internal/service"

	"github.com/google/subcommands"
)

type importCmd struct {
	envFile string
	file    string
	format  string
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string {
	return "import BTC deposits from a lending-protocol history file"
}
func (*importCmd) Usage() string {
	return `crescer import -file <export.csv|export.json> [-format csv|json]

  Supply and CowCollateralSwap rows whose symbol contains BTC are added to the
  logged-in user's ledger as buys priced in USD.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Environment file loaded before reading the configuration.")
	f.StringVar(&c.file, "file", "", "File to import.")
	f.StringVar(&c.format, "format", "", "csv or json; detected from the extension when empty.")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	a, err := openLocal(ctx, c.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	claims, err := loadSession(a.cfg.SessionFile, a.tokens)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if err := a.rates.Refresh(ctx); err != nil {
		a.logger.Warn("using default exchange rates", "error", err)
	}

	log, err := a.imports.Import(ctx, service.ImportRequest{
		UserID:   claims.UserID,
		Filename: filepath.Base(c.file),
		Format:   c.format,
		Data:     data,
	}, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return subcommands.ExitFailure
	}
	if log.FailedRows > 0 {
		fmt.Fprintf(os.Stderr, "%d rows failed, see import log %d\n", log.FailedRows, log.ID)
	}
	return subcommands.ExitSuccess
}
