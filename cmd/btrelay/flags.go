package main

import (
	"time"

	"github.com/urfave/cli"

	"github.com/xaionaro-go/btrelay/transport/uart"
)

var (
	flgLogLevel = cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace, debug, info, warning or error", EnvVar: "BTRELAY_LOG_LEVEL"}

	flgVID          = cli.StringFlag{Name: "vid", Usage: "USB vendor ID of the controller (hex)", EnvVar: "BTRELAY_VID"}
	flgPID          = cli.StringFlag{Name: "pid", Usage: "USB product ID of the controller (hex)", EnvVar: "BTRELAY_PID"}
	flgHCI          = cli.IntFlag{Name: "hci", Value: -1, Usage: "index of the hciN controller, overrides vid/pid", EnvVar: "BTRELAY_HCI"}
	flgUART         = cli.StringFlag{Name: "uart", Usage: "serial port of an H4 controller, instead of an hciN one", EnvVar: "BTRELAY_UART"}
	flgBaud         = cli.IntFlag{Name: "baud", Value: uart.DefaultBaud, Usage: "baud rate of the serial port", EnvVar: "BTRELAY_BAUD"}
	flgReleaseBlueZ = cli.BoolFlag{Name: "release-bluez", Usage: "power the adapter off through bluetoothd before claiming it", EnvVar: "BTRELAY_RELEASE_BLUEZ"}
	flgCmdTimeout   = cli.DurationFlag{Name: "command-timeout", Usage: "give up on a controller command after this long (0: never)", EnvVar: "BTRELAY_COMMAND_TIMEOUT"}
	flgCapture      = cli.StringFlag{Name: "capture", Usage: "append every ACL frame exchanged with the controller to this file", EnvVar: "BTRELAY_CAPTURE"}

	flgPeer           = cli.StringFlag{Name: "peer", Usage: "hostname or IP address of the peer node", EnvVar: "BTRELAY_PEER"}
	flgInPort         = cli.IntFlag{Name: "inport", Usage: "TCP port the peer connects to; the peer's outport", EnvVar: "BTRELAY_INPORT"}
	flgOutPort        = cli.IntFlag{Name: "outport", Usage: "TCP port of the peer; the peer's inport", EnvVar: "BTRELAY_OUTPORT"}
	flgReal           = cli.StringFlag{Name: "real", Value: "real.txt", Usage: "identity file of the device the local controller talks to", EnvVar: "BTRELAY_REAL"}
	flgEmulated       = cli.StringFlag{Name: "emulated", Value: "emulated.txt", Usage: "identity file of the device the local controller presents", EnvVar: "BTRELAY_EMULATED"}
	flgSOCKS5         = cli.StringFlag{Name: "socks5", Usage: "reach the peer through this SOCKS5 proxy (host:port)", EnvVar: "BTRELAY_SOCKS5"}
	flgInquirySeconds = cli.IntFlag{Name: "inquiry-seconds", Value: 10, Usage: "duration of the inquiry scan of first-run discovery", EnvVar: "BTRELAY_INQUIRY_SECONDS"}
	flgOut            = cli.StringFlag{Name: "out", Value: "real.txt", Usage: "identity file to write", EnvVar: "BTRELAY_OUT"}
)

func deviceFlags() []cli.Flag {
	return []cli.Flag{flgVID, flgPID, flgHCI, flgUART, flgBaud, flgReleaseBlueZ, flgCmdTimeout, flgCapture}
}

func runFlags() []cli.Flag {
	return []cli.Flag{flgPeer, flgInPort, flgOutPort, flgReal, flgEmulated, flgSOCKS5, flgInquirySeconds}
}

// flagSource is the part of *cli.Context the configuration is read from.
type flagSource interface {
	String(name string) string
	Int(name string) int
	Bool(name string) bool
	Duration(name string) time.Duration
}

var _ flagSource = (*cli.Context)(nil)

