package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/proximity/cm3602"
	"github.com/mklimuk/proximity/cmd/proximity/console"
)

type statusReport struct {
	Adapter string `yaml:"adapter"`
	Raw     string `yaml:"raw"`
	Reading string `yaml:"reading"`
}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "read the sensor status once (the sensor must be powered)",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		hw, err := openHardware(c.Context, cfg, false)
		if err != nil {
			return console.Exit(1, "could not open hardware: %v", err)
		}
		defer hw.Close()
		status, err := hw.status.ReadStatus(c.Context)
		if err != nil {
			return console.Exit(1, "could not read status: %v", err)
		}
		out, err := yaml.Marshal(statusReport{
			Adapter: cfg.Adapter,
			Raw:     hex.EncodeToString(status[:]),
			Reading: cm3602.Decode(status).String(),
		})
		if err != nil {
			return fmt.Errorf("could not marshal status: %w", err)
		}
		console.Printf("%s", out)
		return nil
	},
}
