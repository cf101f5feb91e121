// btrelay relays a classic Bluetooth link between two machines, each with
// its own controller: Host <-> node A <-> TCP <-> node B <-> Peripheral.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/urfave/cli"
)

func main() {
	ctx, cancelFn := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	app := newApp(ctx)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "btrelay"
	app.Usage = "Relay a Bluetooth link between two machines over TCP"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{flgLogLevel}
	app.Before = func(c *cli.Context) error {
		level, err := parseLogLevel(c.String(flgLogLevel.Name))
		if err != nil {
			return err
		}
		l := xlogrus.New(xlogrus.DefaultLogrusLogger()).WithLevel(level)
		ctx = logger.CtxWithLogger(ctx, l)
		return nil
	}

	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Relay between the local controller and the peer node",
			Action: func(c *cli.Context) error { return run(ctx, c) },
			Flags:  append(deviceFlags(), runFlags()...),
		},
		{
			Name:   "discover",
			Usage:  "Scan for devices and save the selected one as an identity file",
			Action: func(c *cli.Context) error { return discover(ctx, c) },
			Flags:  append(deviceFlags(), flgOut, flgInquirySeconds),
		},
	}
	return app
}
