package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/transport/socket"
)

// deviceConfig selects and configures the local controller.
type deviceConfig struct {
	USBID        *socket.USBID
	HCI          int
	UART         string
	Baud         int
	ReleaseBlueZ bool

	CommandTimeout time.Duration
	CapturePath    string
}

// runConfig is everything the run command needs.
type runConfig struct {
	Device deviceConfig

	Peer           string
	InPort         int
	OutPort        int
	RealPath       string
	EmulatedPath   string
	SOCKS5         string
	InquirySeconds int
}

func (cfg runConfig) PeerAddress() string {
	return fmt.Sprintf("%s:%d", cfg.Peer, cfg.OutPort)
}

func (cfg runConfig) ListenAddress() string {
	return fmt.Sprintf(":%d", cfg.InPort)
}

func parseDeviceConfig(f flagSource) (deviceConfig, error) {
	cfg := deviceConfig{
		HCI:            f.Int(flgHCI.Name),
		UART:           f.String(flgUART.Name),
		Baud:           f.Int(flgBaud.Name),
		ReleaseBlueZ:   f.Bool(flgReleaseBlueZ.Name),
		CommandTimeout: f.Duration(flgCmdTimeout.Name),
		CapturePath:    f.String(flgCapture.Name),
	}

	vid, pid := f.String(flgVID.Name), f.String(flgPID.Name)
	switch {
	case vid != "" && pid != "":
		v, err := socket.ParseHexID(vid)
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid --%s", flgVID.Name)
		}
		p, err := socket.ParseHexID(pid)
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid --%s", flgPID.Name)
		}
		cfg.USBID = &socket.USBID{Vendor: v, Product: p}
	case vid != "" || pid != "":
		return cfg, errors.Wrapf(hci.ErrInvalidArgument, "--%s and --%s go together", flgVID.Name, flgPID.Name)
	}

	if cfg.USBID == nil && cfg.HCI < 0 && cfg.UART == "" {
		return cfg, errors.Wrapf(hci.ErrInvalidArgument, "one of --%s/--%s, --%s or --%s is required",
			flgVID.Name, flgPID.Name, flgHCI.Name, flgUART.Name)
	}
	if cfg.UART != "" && cfg.Baud <= 0 {
		return cfg, errors.Wrapf(hci.ErrInvalidArgument, "invalid --%s: %d", flgBaud.Name, cfg.Baud)
	}
	if cfg.CommandTimeout < 0 {
		return cfg, errors.Wrapf(hci.ErrInvalidArgument, "invalid --%s: %v", flgCmdTimeout.Name, cfg.CommandTimeout)
	}
	return cfg, nil
}

func parseRunConfig(f flagSource) (runConfig, error) {
	dev, err := parseDeviceConfig(f)
	if err != nil {
		return runConfig{}, err
	}
	cfg := runConfig{
		Device:         dev,
		Peer:           f.String(flgPeer.Name),
		InPort:         f.Int(flgInPort.Name),
		OutPort:        f.Int(flgOutPort.Name),
		RealPath:       f.String(flgReal.Name),
		EmulatedPath:   f.String(flgEmulated.Name),
		SOCKS5:         f.String(flgSOCKS5.Name),
		InquirySeconds: f.Int(flgInquirySeconds.Name),
	}

	var missing []string
	if cfg.Peer == "" {
		missing = append(missing, "--"+flgPeer.Name)
	}
	if cfg.InPort == 0 {
		missing = append(missing, "--"+flgInPort.Name)
	}
	if cfg.OutPort == 0 {
		missing = append(missing, "--"+flgOutPort.Name)
	}
	if len(missing) > 0 {
		return cfg, errors.Wrapf(hci.ErrInvalidArgument, "missing %s", strings.Join(missing, ", "))
	}
	for _, port := range []int{cfg.InPort, cfg.OutPort} {
		if port < 0 || port > 0xFFFF {
			return cfg, errors.Wrapf(hci.ErrInvalidArgument, "invalid port: %d", port)
		}
	}
	if cfg.RealPath == "" || cfg.EmulatedPath == "" {
		return cfg, errors.Wrapf(hci.ErrInvalidArgument, "--%s and --%s must not be empty", flgReal.Name, flgEmulated.Name)
	}
	return cfg, nil
}

func parseLogLevel(s string) (logger.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return logger.LevelTrace, nil
	case "debug":
		return logger.LevelDebug, nil
	case "", "info":
		return logger.LevelInfo, nil
	case "warn", "warning":
		return logger.LevelWarning, nil
	case "error":
		return logger.LevelError, nil
	}
	return logger.LevelInfo, errors.Wrapf(hci.ErrInvalidArgument, "unknown log level %q", s)
}
