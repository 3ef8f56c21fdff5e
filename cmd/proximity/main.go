package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/proximity/pkg/config"
	"github.com/mklimuk/proximity/snsctx"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "proximity"
	app.EnableBashCompletion = true
	app.Version = config.BuildInfo()
	app.Usage = "CM3602 proximity sensor cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to the YAML config file",
			Value:   "proximity.yaml",
			EnvVars: []string{"PROXIMITY_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file with PROXIMITY_* overrides",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "override the configured adapter (generic, nanopi, mcp2221, mock)",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		ctx.Context = snsctx.SetVerbose(ctx.Context, ctx.Bool("verbose"))
		return nil
	}
	app.Commands = cli.Commands{
		&runCmd,
		&statusCmd,
		&powerCmd,
		&adapterCmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		log.Printf("unexpected error: %v", err)
		return 1
	}
	return 0
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return cfg, fmt.Errorf("could not load config: %w", err)
	}
	if adapter := c.String("adapter"); adapter != "" {
		cfg.Adapter = adapter
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
	}
	slog.Debug("configuration loaded", "adapter", cfg.Adapter, "address", fmt.Sprintf("%#x", cfg.MicroP.Address))
	return cfg, nil
}
