// Package main runs a kinematic world with simulated IMUs attached to its links.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/imusim/config"
	"go.viam.com/imusim/logging"
)

const (
	// Flags.
	flagConfig   = "config"
	flagDebug    = "debug"
	flagDuration = "duration"
	flagLogFile  = "log-file"
	flagSummary  = "summary"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "imusim",
		Usage: "step a kinematic world and publish simulated IMU readings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Required: true,
				Usage:    "load configuration from `FILE` (json or yaml)",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.DurationFlag{
				Name:  flagDuration,
				Usage: "stop after this much wall time; runs until interrupted when unset",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to a rotating `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagSummary,
				Usage: "print the last reading of every IMU on exit",
			},
		},
		Action: runAction,
	}
}

func newLogger(c *cli.Context) logging.Logger {
	switch {
	case c.String(flagLogFile) != "":
		return logging.NewFileLogger("imusim", logging.FileConfig{Path: c.String(flagLogFile), Debug: c.Bool(flagDebug)})
	case c.Bool(flagDebug):
		return logging.NewDebugLogger("imusim")
	default:
		return logging.NewLogger("imusim")
	}
}

func runAction(c *cli.Context) error {
	logger := newLogger(c)
	logging.ReplaceGlobal(logger)
	//nolint:errcheck
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration(flagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	conf, err := config.Read(ctx, c.String(flagConfig), logger)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	return run(ctx, conf, clock.New(), logger, c.Bool(flagSummary), c.App.Writer)
}

// run builds the simulation, steps it until ctx is done and tears it down.
func run(ctx context.Context, conf *config.Config, clk clock.Clock, logger logging.Logger, summary bool, out io.Writer,
) error {
	sim, err := newSimulation(ctx, conf, clk, logger)
	if err != nil {
		return err
	}
	logger.Infow("simulation started",
		"world", conf.World.Name,
		"step_size", conf.World.StepSize(),
		"bodies", len(conf.Bodies),
		"sensors", len(conf.Sensors))

	sim.manager.Start(ctx)
	<-ctx.Done()

	// ctx is already done; teardown gets its own.
	closeCtx := context.Background()
	err = sim.Close(closeCtx)
	logger.Infow("simulation stopped", "steps", sim.manager.Steps())
	if summary {
		fmt.Fprintln(out, sim.summary())
	}
	return err
}
