package relay

import (
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// Option sets an option on a Bridge.
type Option func(*config)

type config struct {
	ListenAddress string
	Dialer        proxy.Dialer
	FramePacing   time.Duration
	AcceptPacing  time.Duration
	MaxFrameSize  int
}

func defaultConfig() config {
	return config{
		ListenAddress: ":0",
		Dialer:        &net.Dialer{Timeout: 10 * time.Second},
		FramePacing:   100 * time.Millisecond,
		AcceptPacing:  100 * time.Millisecond,
		MaxFrameSize:  DefaultMaxFrameSize,
	}
}

// OptionListenAddress sets the address the peer connects to.
func OptionListenAddress(addr string) Option {
	return func(cfg *config) {
		cfg.ListenAddress = addr
	}
}

// OptionDialer sets how the outbound peer connection is opened, e.g.
// through a proxy.SOCKS5 dialer.
func OptionDialer(d proxy.Dialer) Option {
	return func(cfg *config) {
		cfg.Dialer = d
	}
}

// OptionFramePacing sets the delay after each processed inbound frame.
func OptionFramePacing(d time.Duration) Option {
	return func(cfg *config) {
		cfg.FramePacing = d
	}
}

// OptionAcceptPacing sets the delay after each accepted connection.
func OptionAcceptPacing(d time.Duration) Option {
	return func(cfg *config) {
		cfg.AcceptPacing = d
	}
}

// OptionMaxFrameSize bounds the length prefix of inbound frames. Zero disables the check.
func OptionMaxFrameSize(n int) Option {
	return func(cfg *config) {
		cfg.MaxFrameSize = n
	}
}
