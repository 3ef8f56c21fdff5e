package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/proximity/cm3602"
	"github.com/mklimuk/proximity/cmd/proximity/console"
	"github.com/mklimuk/proximity/input"
)

var runCmd = cli.Command{
	Name:  "run",
	Usage: "attach the sensor and open an interactive control session",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "enable",
			Usage: "enable the sensor right after attaching",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		ctx := c.Context
		hw, err := openHardware(ctx, cfg, true)
		if err != nil {
			return console.Exit(1, "could not open hardware: %v", err)
		}
		defer hw.Close()
		guard := newWakeGuard(cfg)
		defer func() { _ = guard.Close() }()
		events := input.NewDevice("proximity", int32(cm3602.Near), int32(cm3602.Far))

		dev, err := cm3602.Attach(ctx, cm3602.Config{
			Status:     hw.status,
			Power:      hw.power,
			Publisher:  events,
			Wake:       guard,
			Interrupts: hw.interrupts,
		}, cm3602.WithWakeDuration(cfg.Wake.Duration))
		if err != nil {
			return console.Exit(1, "could not attach sensor: %v", err)
		}
		defer dev.Detach(ctx)

		sessCtx, err := dev.Open(ctx)
		if err != nil {
			return console.Exit(1, "could not open control session: %v", err)
		}
		defer dev.Close(sessCtx)

		shell, err := console.NewShell(console.Cyan("proximity> "), "enable", "disable", "status", "attr", "quit")
		if err != nil {
			return console.Exit(1, "could not open prompt: %v", err)
		}
		defer func() { _ = shell.Close() }()
		console.SetOutput(shell.Stdout(), shell.Stderr())
		defer console.SetOutput(os.Stdout, os.Stderr)

		readings, cancel := events.Subscribe(16)
		defer cancel()
		go printReadings(shell.Stdout(), readings)

		if c.Bool("enable") {
			if err := dev.SetEnabled(sessCtx, true); err != nil {
				console.Errorf("could not enable sensor: %v", err)
			}
		}
		return session(sessCtx, shell, dev.Control)
	},
}

func printReadings(w io.Writer, readings <-chan input.Event) {
	for ev := range readings {
		picto := console.PictoUnknown
		switch ev.Reading() {
		case cm3602.Near:
			picto = console.PictoNear
		case cm3602.Far:
			picto = console.PictoFar
		}
		_, _ = fmt.Fprintf(w, "%s %s %s\n", picto, ev.Time.Format("15:04:05.000"), console.Bold(ev.Reading()))
	}
}

func session(ctx context.Context, shell *console.Shell, ctl *cm3602.Control) error {
	for {
		args, err := shell.Next()
		if errors.Is(err, console.ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		switch args[0] {
		case "quit", "exit":
			return nil
		case "enable":
			report(ctl.SetEnabled(ctx, true))
		case "disable":
			report(ctl.SetEnabled(ctx, false))
		case "status":
			console.Printf("%s", ctl.ShowAttr())
		case "attr":
			if len(args) < 2 {
				console.Warnf("usage: attr <0|1>")
				continue
			}
			report(ctl.StoreAttr(ctx, strings.Join(args[1:], " ")))
		default:
			console.Warnf("unknown command %q", args[0])
		}
	}
}

func report(err error) {
	if err != nil {
		console.Errorf("%v", err)
	}
}
