// Package config holds the client-side configuration of the ledger
// boundary: which endpoint to submit to, at what commitment, and how long
// to wait for it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "30s" or "1m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config configures the rpc client.
type Config struct {
	// Endpoint is the JSON-RPC HTTP endpoint transactions go to.
	Endpoint string `yaml:"endpoint"`

	// Commitment is the confirmation level requested on submission and
	// account reads.
	Commitment string `yaml:"commitment"`

	// RequestTimeout bounds each HTTP round trip.
	RequestTimeout Duration `yaml:"request_timeout"`

	// LogLevel selects the logger verbosity: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the devnet configuration.
func Default() Config {
	return Config{
		Endpoint:       "https://api.devnet.solana.com",
		Commitment:     "confirmed",
		RequestTimeout: Duration(30 * time.Second),
		LogLevel:       "info",
	}
}

// Load reads a YAML config file and fills unset fields with defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills zero-valued fields with the defaults.
func (c Config) withDefaults() Config {
	def := Default()
	if c.Endpoint == "" {
		c.Endpoint = def.Endpoint
	}
	if c.Commitment == "" {
		c.Commitment = def.Commitment
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c
}
