// Package config loads host configuration from a TOML file, replacing
// the constructor-literal settings the teacher hardcodes in
// NewServer. Exposes ConfigInt to satisfy the transport.ConfigSource
// contract of spec.md §6 ("config_int(key)").
//
// Grounded on ventosilenzioso-go-raknet/source/server/server.go's
// NewServer field set, re-expressed as a TOML-decoded struct via
// github.com/BurntSushi/toml.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Listen holds the local socket bind settings.
type Listen struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Network holds the shakeout/simulation knobs looked up via
// ConfigInt("network.delay") and ConfigInt("oop.percent").
type Network struct {
	DelayMS    int `toml:"delay"`
	OOPPercent int `toml:"percent"`
}

// Disconnect holds the liveness policy, both 0 to disable.
type Disconnect struct {
	NotifyStartMS int `toml:"notify_start_ms"`
	TimeoutMS     int `toml:"timeout_ms"`
}

// Config is the full host configuration tree.
type Config struct {
	Listen     Listen     `toml:"listen"`
	Network    Network    `toml:"network"`
	OOP        struct {
		Percent int `toml:"percent"`
	} `toml:"oop"`
	Disconnect Disconnect `toml:"disconnect"`
	MaxPeers   int        `toml:"max_peers"`
}

// Default returns the zero-shakeout, liveness-disabled configuration
// used when no file is supplied.
func Default() Config {
	return Config{
		Listen:   Listen{Host: "127.0.0.1", Port: 7777},
		MaxPeers: 4,
	}
}

// Load parses a TOML file at path into a Config seeded from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigInt implements the transport.ConfigSource contract. Keys used
// by the endpoint are "network.delay" (ms) and "oop.percent" (0-100).
func (c Config) ConfigInt(key string) int {
	switch key {
	case "network.delay":
		return c.Network.DelayMS
	case "oop.percent":
		if c.OOP.Percent != 0 {
			return c.OOP.Percent
		}
		return c.Network.OOPPercent
	default:
		return 0
	}
}

// SendLatency converts the network.delay config into a Duration for
// internal/sendqueue.
func (c Config) SendLatency() time.Duration {
	return time.Duration(c.ConfigInt("network.delay")) * time.Millisecond
}

// DisconnectTimeout converts disconnect.timeout_ms into a Duration.
func (c Config) DisconnectTimeout() time.Duration {
	return time.Duration(c.Disconnect.TimeoutMS) * time.Millisecond
}

// DisconnectNotifyStart converts disconnect.notify_start_ms into a
// Duration.
func (c Config) DisconnectNotifyStart() time.Duration {
	return time.Duration(c.Disconnect.NotifyStartMS) * time.Millisecond
}
