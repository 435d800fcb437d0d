// SPDX-FileCopyrightText: Copyright (C) 2026  The mixframe authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config implements the configuration for the packet builder.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mixframe/mixframe/core/delay"
	"github.com/mixframe/mixframe/core/node"
	"github.com/mixframe/mixframe/core/route"
)

const (
	defaultLogLevel     = "NOTICE"
	defaultMaxSnapshots = 8
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// DefaultIdentifier is the destination identifier used when none is
// configured.
var DefaultIdentifier = [node.IdentifierLength]byte{4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Routing is the route selection configuration.
type Routing struct {
	// Strategy is the relay selection strategy, one of "deterministic"
	// (the default), "random" or "weighted".
	Strategy string

	// Layers are the mix layers traversed in order, defaulting to 1, 2, 3.
	Layers []uint

	// Provider is the identity key of the provider terminating every
	// route. If omitted the first provider listed is used.
	Provider string

	// DisableResolver restricts relay addresses to IP literals.
	DisableResolver bool

	strategy route.Strategy
}

// SelectionStrategy returns the parsed Strategy.
func (rCfg *Routing) SelectionStrategy() route.Strategy {
	return rCfg.strategy
}

func (rCfg *Routing) validate() error {
	var err error
	if rCfg.strategy, err = route.ParseStrategy(rCfg.Strategy); err != nil {
		return fmt.Errorf("config: Routing: %v", err)
	}
	if rCfg.Layers == nil {
		rCfg.Layers = append([]uint{}, route.DefaultLayers...)
	}
	if len(rCfg.Layers) != route.HopCount-1 {
		return fmt.Errorf("config: Routing: %d Layers configured, expected %d", len(rCfg.Layers), route.HopCount-1)
	}
	return nil
}

// Delays is the per-hop delay configuration.
type Delays struct {
	// AverageDelay is the average per-hop delay in milliseconds.
	AverageDelay int

	// MaxDelay is the maximum per-hop delay in milliseconds, 0 for no
	// limit.
	MaxDelay int
}

// Average returns the average per-hop delay.
func (dCfg *Delays) Average() time.Duration {
	return time.Duration(dCfg.AverageDelay) * time.Millisecond
}

// Max returns the maximum per-hop delay.
func (dCfg *Delays) Max() time.Duration {
	return time.Duration(dCfg.MaxDelay) * time.Millisecond
}

func (dCfg *Delays) validate() error {
	if dCfg.AverageDelay == 0 {
		dCfg.AverageDelay = int(delay.DefaultAverage / time.Millisecond)
	}
	if dCfg.AverageDelay < 0 {
		return fmt.Errorf("config: Delays: AverageDelay %d is invalid", dCfg.AverageDelay)
	}
	if dCfg.MaxDelay < 0 {
		return fmt.Errorf("config: Delays: MaxDelay %d is invalid", dCfg.MaxDelay)
	}
	return nil
}

// Destination is the destination configuration.
type Destination struct {
	// Identifier is the hex encoded destination identifier.
	Identifier string

	identifier [node.IdentifierLength]byte
}

// ID returns the decoded identifier.
func (dCfg *Destination) ID() [node.IdentifierLength]byte {
	return dCfg.identifier
}

func (dCfg *Destination) validate() error {
	if dCfg.Identifier == "" {
		dCfg.identifier = DefaultIdentifier
		return nil
	}
	b, err := hex.DecodeString(dCfg.Identifier)
	if err != nil {
		return fmt.Errorf("config: Destination: Identifier: %v", err)
	}
	if len(b) != node.IdentifierLength {
		return fmt.Errorf("config: Destination: Identifier is %d bytes, expected %d", len(b), node.IdentifierLength)
	}
	copy(dCfg.identifier[:], b)
	return nil
}

// Metrics is the metrics configuration.
type Metrics struct {
	// Address is the address the Prometheus endpoint listens on, metrics
	// are not served if omitted.
	Address string
}

// Cache is the topology cache configuration.
type Cache struct {
	// File is the path of the topology cache database.
	File string

	// MaxSnapshots is the number of snapshots retained.
	MaxSnapshots int
}

func (cCfg *Cache) validate() error {
	if cCfg.MaxSnapshots == 0 {
		cCfg.MaxSnapshots = defaultMaxSnapshots
	}
	if cCfg.MaxSnapshots < 0 {
		return fmt.Errorf("config: Cache: MaxSnapshots %d is invalid", cCfg.MaxSnapshots)
	}
	return nil
}

// Config is the top level configuration.
type Config struct {
	Logging     *Logging
	Routing     *Routing
	Delays      *Delays
	Destination *Destination
	Metrics     *Metrics
	Cache       *Cache
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration sections.
func (c *Config) FixupAndValidate() error {
	// Handle missing sections if possible.
	if c.Logging == nil {
		l := defaultLogging
		c.Logging = &l
	}
	if c.Routing == nil {
		c.Routing = new(Routing)
	}
	if c.Delays == nil {
		c.Delays = new(Delays)
	}
	if c.Destination == nil {
		c.Destination = new(Destination)
	}
	if c.Metrics == nil {
		c.Metrics = new(Metrics)
	}
	if c.Cache == nil {
		c.Cache = new(Cache)
	}

	// Validate/fixup the various sections.
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := c.Routing.validate(); err != nil {
		return err
	}
	if err := c.Delays.validate(); err != nil {
		return err
	}
	if err := c.Destination.validate(); err != nil {
		return err
	}
	return c.Cache.validate()
}

// Default returns the default configuration.
func Default() *Config {
	cfg := new(Config)
	if err := cfg.FixupAndValidate(); err != nil {
		panic("config: BUG: invalid defaults: " + err.Error())
	}
	return cfg
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: no config provided")
	}
	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
