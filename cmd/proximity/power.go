package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/proximity/cmd/proximity/console"
)

var powerCmd = cli.Command{
	Name:      "power",
	Usage:     "switch the sensor supply without enabling event delivery",
	ArgsUsage: "on|off",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "do not ask for confirmation",
		},
	},
	Action: func(c *cli.Context) error {
		var on bool
		switch c.Args().First() {
		case "on":
			on = true
		case "off":
		default:
			return console.Exit(2, "expected on or off, got %q", c.Args().First())
		}
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("switch sensor power " + c.Args().First() + "?")
			if err != nil {
				return console.Exit(1, "%v", err)
			}
			if answer != console.Yes {
				return nil
			}
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		hw, err := openHardware(c.Context, cfg, false)
		if err != nil {
			return console.Exit(1, "could not open hardware: %v", err)
		}
		defer hw.Close()
		if err := hw.power.SetPower(c.Context, on); err != nil {
			return console.Exit(1, "could not switch power: %v", err)
		}
		console.PInfof(console.PictoPower, "sensor power %s", console.Green(c.Args().First()))
		return nil
	},
}
