package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/milestoner/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to the --config location)",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")
	if outputPath == "" {
		path, err := config.ResolvePath(c.String("config"))
		if err != nil {
			return err
		}
		outputPath = path
	}

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	repos := cfg.Repositories()
	fmt.Fprintf(c.App.Writer, "Configuration is valid (%d repositories)\n", len(repos))
	for _, repo := range repos {
		fmt.Fprintf(c.App.Writer, " - %s\n", repo)
	}
	return nil
}
