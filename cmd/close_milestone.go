package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/milestoner/internal/config"
	"github.com/milestoner/internal/confirm"
	"github.com/milestoner/internal/logging"
	"github.com/milestoner/internal/milestones"
)

// CloseMilestoneCommand returns the close-milestone command
func CloseMilestoneCommand() *cli.Command {
	return &cli.Command{
		Name:  "close-milestone",
		Usage: "Close open milestones whose title matches PATTERN in every configured repository",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Close every matching milestone without asking",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Show what would be closed without closing anything",
			},
		},
		ArgsUsage: "PATTERN",
		Action:    runCloseMilestone,
	}
}

func runCloseMilestone(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: PATTERN")
	}

	patternText := c.Args().Get(0)
	pattern, err := regexp.Compile(patternText)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", patternText, err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(c, cfg)
	if err != nil {
		return err
	}

	registry, err := createRegistry(cfg)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if c.App.Reader != nil {
		in = c.App.Reader
	}
	var confirmer confirm.Confirmer = confirm.NewPrompt(in, c.App.Writer)
	if c.Bool("yes") {
		confirmer = confirm.Always(true)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	runner := &milestones.Runner{
		Registry:     registry,
		Repositories: cfg.Repositories(),
		Pattern:      pattern,
		PatternText:  patternText,
		Confirmer:    confirmer,
		Out:          c.App.Writer,
		Logger:       logger,
		DryRun:       c.Bool("dry-run"),
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, confirm.ErrAborted) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("aborted")
		}
		return err
	}

	logger.Debug().
		Int("groups", summary.Groups).
		Int("confirmed", summary.Confirmed).
		Int("closed", summary.Closed).
		Int("failed", summary.Failed).
		Msg("close-milestone finished")
	return nil
}

// loadConfig resolves the settings path, tells the operator where it is read
// from and loads it
func loadConfig(c *cli.Context) (*config.Config, error) {
	path, err := config.ResolvePath(c.String("config"))
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(c.App.Writer, "Reading configuration file from %s\n", path)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Found {
		fmt.Fprintln(c.App.Writer, "Config file not found - continuing with defaults")
	}
	return cfg, nil
}

// newLogger picks the level from --verbose, then --log-level, then the settings file
func newLogger(c *cli.Context, cfg *config.Config) (zerolog.Logger, error) {
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if c.Bool("verbose") {
		level = "debug"
	}

	var w io.Writer = os.Stderr
	if c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	return logging.NewConsole(w, level)
}
