// Command digest turns a transaction log into transaction_summary.xlsx without the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/tradedigest/internal/adapters/report"
	"github.com/okian/tradedigest/internal/config"
	"github.com/okian/tradedigest/internal/engine"
	"github.com/okian/tradedigest/pkg/logger"
)

// errUsage is returned for bad command lines; the flag package has already printed why.
var errUsage = errors.New("usage")

type options struct {
	logPath           string
	outPath           string
	itemLimit         int
	playerLimit       int
	includeIdentifier bool
	verbose           bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			os.Stderr.WriteString("digest: " + err.Error() + "\n")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}

	if err := logger.InitWithFormat(cfg.LogFormat, stderr); err != nil {
		return err
	}
	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return err
	}
	log := logger.Named("digest")

	e := engine.New(
		engine.WithItemLimit(opts.itemLimit),
		engine.WithPlayerLimit(opts.playerLimit),
		engine.WithIncludeIdentifier(opts.includeIdentifier),
		engine.WithLogger(log),
	)
	d, err := e.RunFile(ctx, opts.logPath)
	if err != nil {
		return err
	}

	wb, err := report.New(d)
	if err != nil {
		return err
	}
	defer func() { _ = wb.Close() }()

	if err := wb.SaveAs(opts.outPath); err != nil {
		return err
	}
	log.Info(ctx, "report written",
		logger.String("out", opts.outPath),
		logger.Int("events", d.Stats.Events()),
		logger.Int("skipped", d.Stats.Ignored+d.Stats.Malformed),
	)
	return nil
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.logPath, "log", "", "Transaction log to digest (required)")
	fs.StringVar(&opts.outPath, "out", report.DownloadName, "Workbook to write")
	fs.IntVar(&opts.itemLimit, "items", cfg.ItemLimit, "Items kept per day; 0 keeps all")
	fs.IntVar(&opts.playerLimit, "players", cfg.PlayerLimit, "Players kept per day; 0 keeps all")
	fs.BoolVar(&opts.includeIdentifier, "include-id", cfg.IncludeItemID, "Keep the parenthesised id in item names")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log skipped lines")

	if err := fs.Parse(args); err != nil {
		return options{}, errUsage
	}
	switch {
	case opts.logPath == "":
		fs.Usage()
		return options{}, fmt.Errorf("%w: -log is required", errUsage)
	case opts.itemLimit < 0 || opts.playerLimit < 0:
		return options{}, fmt.Errorf("%w: limits must not be negative", config.ErrInvalidConfig)
	}
	return opts, nil
}
