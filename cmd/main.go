package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"ris_live/pkg"
)

func main() {
	app := newApp(run)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command line. Flags override values from --config.
func newApp(action func(*pkg.Config) error) *cli.App {
	return &cli.App{
		Name:  "ris-live-reader",
		Usage: "stream BGP messages from RIPE RIS Live and print routing elements",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "url", Usage: "RIS Live websocket endpoint"},
			&cli.StringFlag{Name: "client", Usage: "client name to identify the stream"},
			&cli.StringFlag{Name: "host", Usage: `filter by RRC host, e.g. rrc01. Use "all" for the firehose`},
			&cli.StringFlag{Name: "msg-type", Usage: "only UPDATE, OPEN, NOTIFICATION, KEEPALIVE or RIS_PEER_STATE messages"},
			&cli.StringFlag{Name: "update-type", Usage: "only announcements (a) or withdrawals (w)"},
			&cli.StringFlag{Name: "require", Usage: "only messages containing the given key"},
			&cli.StringFlag{Name: "peer", Usage: "only messages sent by the given BGP peer"},
			&cli.StringFlag{Name: "prefix", Usage: "filter UPDATE messages by prefix in announcements or withdrawals"},
			&cli.BoolFlag{Name: "more-specific", Usage: "match prefixes that are more specific than --prefix"},
			&cli.BoolFlag{Name: "less-specific", Usage: "match prefixes that are less specific than --prefix"},
			&cli.StringFlag{Name: "path", Usage: "ASN or pattern to match against the AS path"},
			&cli.BoolFlag{Name: "json", Usage: "output JSON objects"},
			&cli.BoolFlag{Name: "pretty", Usage: "pretty-print JSON output"},
			&cli.BoolFlag{Name: "raw", Usage: "print raw messages without parsing"},
			&cli.StringFlag{Name: "metrics", Usage: "listen address for /metrics, e.g. :9102"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Action: func(c *cli.Context) error {
			config, err := configFromContext(c)
			if err != nil {
				return err
			}
			return action(config)
		},
	}
}

func configFromContext(c *cli.Context) (*pkg.Config, error) {
	config := pkg.NewConfig()
	if path := c.String("config"); path != "" {
		loaded, err := pkg.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		config = loaded
	}

	setString := func(flag string, dst *string) {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	setString("url", &config.Stream.URL)
	setString("client", &config.Stream.Client)
	setString("host", &config.Stream.Subscription.Host)
	setString("msg-type", &config.Stream.Subscription.Type)
	setString("update-type", &config.Stream.UpdateType)
	setString("require", &config.Stream.Subscription.Require)
	setString("peer", &config.Stream.Subscription.Peer)
	setString("prefix", &config.Stream.Subscription.Prefix)
	setString("path", &config.Stream.Subscription.Path)
	setString("metrics", &config.Metrics.Listen)
	setString("log-level", &config.Log.Level)

	if c.IsSet("more-specific") {
		config.Stream.Subscription.MoreSpecific = c.Bool("more-specific")
	}
	if c.IsSet("less-specific") {
		config.Stream.Subscription.LessSpecific = c.Bool("less-specific")
	}
	if c.IsSet("raw") {
		config.Stream.Raw = c.Bool("raw")
	}
	switch {
	case c.Bool("pretty"):
		config.Output.Format = pkg.FormatPretty
	case c.Bool("json"):
		config.Output.Format = pkg.FormatJSON
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func run(config *pkg.Config) error {
	level, err := log.ParseLevel(config.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	printer, err := pkg.NewPrinter(os.Stdout, config.Output.Format, config.Stream.UpdateType)
	if err != nil {
		return err
	}
	metrics := pkg.NewMetrics()

	var rib pkg.RIB
	if config.BGP.Enabled {
		bgpService := pkg.NewBGPService().WithMetrics(metrics)
		if err := bgpService.Start(config.BGP.Local.RouterID, uint32(config.BGP.Local.ASN), config.BGP.Local.ListenPort); err != nil {
			return fmt.Errorf("start BGP server: %w", err)
		}
		defer bgpService.Stop()

		if config.BGP.Remote.PeerIP != "" {
			if err := bgpService.AddNeighbor(config.BGP.Remote.PeerIP, uint32(config.BGP.Remote.ASN)); err != nil {
				return fmt.Errorf("add neighbor: %w", err)
			}
		}
		bgpService.MonitorPrefixes()
		rib = bgpService
	}

	stream, err := pkg.NewStreamClient(config.Stream.URL, config.Stream.Client, config.Stream.Subscription, config.Stream.PingInterval)
	if err != nil {
		return err
	}
	processor := pkg.NewProcessor(printer, metrics, rib, config.Stream.Raw)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return stream.Run(ctx, processor.Handle)
	})
	if config.Metrics.Listen != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, config.Metrics.Listen)
		})
	}

	log.WithField("url", stream.URL()).Info("Reading RIS Live stream")
	return g.Wait()
}
