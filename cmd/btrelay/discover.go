package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xaionaro-go/btrelay"
	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/identity"
)

var errSelectionAborted = errors.New("selection aborted")

func discover(ctx context.Context, c *cli.Context) error {
	cfg, err := parseDeviceConfig(c)
	if err != nil {
		return err
	}
	node, closeFn, err := openNode(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := node.Engine().Reset(ctx); err != nil {
		return errors.Wrap(err, "unable to reset the controller")
	}
	return createIdentity(ctx, node, c.String(flgOut.Name), c.Int(flgInquirySeconds.Name), "the device to save", c.App.Writer, bufio.NewReader(os.Stdin))
}

// createIdentity scans for devices, lets the user pick one and saves it
// to path.
func createIdentity(
	ctx context.Context,
	node *btrelay.Node,
	path string,
	seconds int,
	prompt string,
	out io.Writer,
	in *bufio.Reader,
) error {
	for {
		devices, err := node.Discover(ctx, seconds)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Fprintln(out, "No devices found, scanning again.")
			continue
		}
		d, err := selectDevice(out, in, devices, prompt)
		if err != nil {
			return err
		}
		id := identity.FromNamedDevice(d)
		if err := identity.Save(path, id); err != nil {
			return err
		}
		logger.Infof(ctx, "saved %s (%s) to %s", id.DisplayName, id.Address, path)
		return nil
	}
}

// selectDevice prints the devices as a numbered list and reads the user's
// choice line by line until it is valid. "x" aborts.
func selectDevice(out io.Writer, in *bufio.Reader, devices []hci.NamedDevice, prompt string) (hci.NamedDevice, error) {
	fmt.Fprintf(out, "Select %s:\n", prompt)
	for i, d := range devices {
		fmt.Fprintf(out, "\t%d: %s - %s\n", i, d.Name, d.Address)
	}
	for {
		fmt.Fprint(out, "Enter a number, or x to abort: ")
		line, err := in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && err != nil {
			if err == io.EOF {
				return hci.NamedDevice{}, errSelectionAborted
			}
			return hci.NamedDevice{}, errors.Wrap(err, "unable to read the selection")
		}
		if strings.EqualFold(line, "x") {
			return hci.NamedDevice{}, errSelectionAborted
		}
		idx, convErr := strconv.Atoi(line)
		if convErr == nil && idx >= 0 && idx < len(devices) {
			return devices[idx], nil
		}
		fmt.Fprintln(out, "Invalid selection, try again.")
		if err != nil {
			return hci.NamedDevice{}, errSelectionAborted
		}
	}
}
