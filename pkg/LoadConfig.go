package pkg

import (
	"fmt"
	"math"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ris_live/pkg/rislive"
)

const (
	// DefaultStreamURL is the public RIS Live websocket endpoint
	DefaultStreamURL = "wss://ris-live.ripe.net/v1/ws/"
	// DefaultClient identifies this reader to the RIS Live server
	DefaultClient = "ris-live-go"
	// DefaultHost is the route collector subscribed to when none is configured
	DefaultHost = "rrc21"
)

type Config struct {
	Stream struct {
		URL          string               `yaml:"url"`
		Client       string               `yaml:"client"`
		PingInterval time.Duration        `yaml:"pingInterval"`
		Subscription rislive.Subscription `yaml:"subscription"`
		UpdateType   string               `yaml:"updateType"` // "a", "w" or empty for both
		Raw          bool                 `yaml:"raw"`
	} `yaml:"stream"`
	BGP struct {
		Enabled bool `yaml:"enabled"`
		Local   struct {
			RouterID   string `yaml:"routerId"`
			ASN        int    `yaml:"asn"`
			ListenPort int32  `yaml:"listenPort"`
		} `yaml:"local"`
		Remote struct {
			PeerIP string `yaml:"peerIP"`
			ASN    int    `yaml:"asn"`
		} `yaml:"remote"`
	} `yaml:"bgp"`
	Output struct {
		Format string `yaml:"format"` // text, json or pretty
	} `yaml:"output"`
	Metrics struct {
		Listen string `yaml:"listen"` // empty disables the endpoint
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.SetDefaults()
	return &config, nil
}

// NewConfig returns a configuration populated with defaults only
func NewConfig() *Config {
	config := &Config{}
	config.SetDefaults()
	return config
}

// SetDefaults fills every unset field with its default value
func (c *Config) SetDefaults() {
	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.Client == "" {
		c.Stream.Client = DefaultClient
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = 30 * time.Second
	}
	if c.Stream.Subscription.Host == "" {
		c.Stream.Subscription.Host = DefaultHost
	}
	if c.BGP.Local.ListenPort == 0 {
		c.BGP.Local.ListenPort = 179
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatText
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	if err := c.Stream.Subscription.Validate(); err != nil {
		return fmt.Errorf("stream.subscription: %w", err)
	}
	if c.Stream.UpdateType != "" {
		if _, err := ParseUpdateType(c.Stream.UpdateType); err != nil {
			return fmt.Errorf("stream.updateType: %w", err)
		}
	}
	if _, err := ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.BGP.Enabled {
		if _, err := netip.ParseAddr(c.BGP.Local.RouterID); err != nil {
			return fmt.Errorf("bgp.local.routerId: %w", err)
		}
		if !validASN(c.BGP.Local.ASN) {
			return fmt.Errorf("bgp.local.asn: %d out of range", c.BGP.Local.ASN)
		}
		if c.BGP.Remote.PeerIP != "" {
			if _, err := netip.ParseAddr(c.BGP.Remote.PeerIP); err != nil {
				return fmt.Errorf("bgp.remote.peerIP: %w", err)
			}
			if !validASN(c.BGP.Remote.ASN) {
				return fmt.Errorf("bgp.remote.asn: %d out of range", c.BGP.Remote.ASN)
			}
		}
	}
	return nil
}

func validASN(asn int) bool {
	return asn > 0 && int64(asn) <= math.MaxUint32
}
