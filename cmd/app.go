package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/milestoner/internal/logging"
)

// NewApp assembles the milestoner command line
func NewApp(version string) *cli.App {
	return &cli.App{
		Name:    "milestoner",
		Usage:   "Close the same milestone across many GitHub and GitLab repositories",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: <user config dir>/milestoner/settings.toml)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Diagnostics `LEVEL` (trace, debug, info, warn, error)",
				Value: logging.DefaultLevel,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug diagnostics",
			},
		},
		Commands: []*cli.Command{
			CloseMilestoneCommand(),
			ConfigCommand(),
		},
	}
}
