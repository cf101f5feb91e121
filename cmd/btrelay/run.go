package main

import (
	"bufio"
	"context"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/net/proxy"

	"github.com/xaionaro-go/btrelay"
	"github.com/xaionaro-go/btrelay/identity"
	"github.com/xaionaro-go/btrelay/relay"
)

func run(ctx context.Context, c *cli.Context) error {
	cfg, err := parseRunConfig(c)
	if err != nil {
		return err
	}

	relayOpts := []relay.Option{relay.OptionListenAddress(cfg.ListenAddress())}
	if cfg.SOCKS5 != "" {
		dialer, err := proxy.SOCKS5("tcp", cfg.SOCKS5, nil, proxy.Direct)
		if err != nil {
			return errors.Wrapf(err, "unable to use the SOCKS5 proxy %s", cfg.SOCKS5)
		}
		relayOpts = append(relayOpts, relay.OptionDialer(dialer))
	}

	node, closeFn, err := openNode(ctx, cfg.Device, btrelay.OptionRelay(relayOpts...))
	if err != nil {
		return err
	}
	defer closeFn()

	if err := node.Engine().Reset(ctx); err != nil {
		return errors.Wrap(err, "unable to reset the controller")
	}

	in := bufio.NewReader(os.Stdin)
	for _, f := range []struct {
		path   string
		prompt string
	}{
		{cfg.RealPath, "the device this node talks to"},
		{cfg.EmulatedPath, "the device this node impersonates"},
	} {
		if identity.Exists(f.path) {
			continue
		}
		logger.Infof(ctx, "%s does not exist, discovering devices", f.path)
		if err := createIdentity(ctx, node, f.path, cfg.InquirySeconds, f.prompt, c.App.Writer, in); err != nil {
			return err
		}
	}

	real, err := identity.Load(cfg.RealPath)
	if err != nil {
		return err
	}
	emulated, err := identity.Load(cfg.EmulatedPath)
	if err != nil {
		return err
	}

	if err := node.Start(ctx, real, emulated, cfg.PeerAddress()); err != nil {
		return errors.Wrap(err, "unable to start relaying")
	}
	logger.Infof(ctx, "relaying %s as %s; peer %s, listening on %s",
		real.Address, emulated.Address, cfg.PeerAddress(), node.Bridge().Addr())

	<-ctx.Done()
	logger.Infof(ctx, "shutting down")
	return nil
}
