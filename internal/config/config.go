// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

const (
	// defaultCacheTTL is the effective-permission cache lifetime applied
	// when the config leaves it unset.
	defaultCacheTTL = 5 * time.Minute
	// defaultSweepInterval is the expired-context sweep cadence applied
	// when the config leaves it unset.
	defaultSweepInterval = time.Minute
	// minRetentionDays is the compliance floor for audit retention.
	minRetentionDays = 365
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv("FLEETGRID_CONFIG_JSON")

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings and apply engine defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.DB.GormEngine == "" {
		return errors.Wrap(ErrEmptyDBEngine, invalidErrMessage)
	}

	if c.Metrics.Enabled && c.Metrics.Port == 0 {
		return errors.Wrap(ErrMetricsPortCanNotBeZero, invalidErrMessage)
	}

	if c.Engine.CacheTTL <= 0 {
		c.Engine.CacheTTL = defaultCacheTTL
	}

	if c.Engine.SweepInterval <= 0 {
		c.Engine.SweepInterval = defaultSweepInterval
	}

	if len(c.Engine.ManagerTiers) == 0 {
		// which tiers count as "manager" is a configuration point; these
		// are the defaults, not an exhaustive enumeration
		c.Engine.ManagerTiers = []string{"manager", "director"}
	}

	if c.Engine.RetentionDays < minRetentionDays {
		c.Engine.RetentionDays = minRetentionDays
	}

	return nil
}
