package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/proximity/adapter"
	"github.com/mklimuk/proximity/cmd/proximity/console"
)

var adapterCmd = cli.Command{
	Name:  "adapter",
	Usage: "MCP2221 USB bridge utilities",
	Subcommands: []*cli.Command{
		{
			Name:  "detect",
			Usage: "list attached bridges",
			Action: func(c *cli.Context) error {
				devs := adapter.Detect()
				if len(devs) == 0 {
					console.PInfof(console.PictoStop, "no MCP2221 bridge found")
					return nil
				}
				for i, dev := range devs {
					console.Printf("%s %s %s (serial %s) at %s\n",
						console.White(i), dev.Manufacturer, dev.Product, dev.Serial, dev.Path)
				}
				return nil
			},
		},
		{
			Name:  "status",
			Usage: "show bridge I2C engine status",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "id", Usage: "bridge index when several are attached", Value: -1},
				&cli.BoolFlag{Name: "release", Usage: "cancel the current I2C transfer first"},
			},
			Action: func(c *cli.Context) error {
				bridge := adapter.NewMCP2221(adapter.WithDeviceID(c.Int("id")))
				if c.Bool("release") {
					if err := bridge.Release(c.Context); err != nil {
						return console.Exit(1, "could not release bus: %v", err)
					}
				}
				status, err := bridge.Status(c.Context)
				if err != nil {
					return console.Exit(1, "could not read status: %v", err)
				}
				out, err := yaml.Marshal(status)
				if err != nil {
					return fmt.Errorf("could not marshal status: %w", err)
				}
				console.Printf("%s", out)
				return nil
			},
		},
	},
}
