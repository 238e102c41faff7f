package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. INFMETER_BASE_POWER.
const EnvPrefix = "INFMETER"

// Load overlays the configuration with, in decreasing priority, flags that
// were set on cmd, INFMETER_* environment variables and a yaml file. When path
// is empty ./configs/config.yaml is read if present. cmd may be nil.
func (c *Config) Load(path string, cmd *cobra.Command) error {
	v := viper.New()

	for key, val := range c.settings() {
		v.SetDefault(key, val)
	}

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("cannot bind flags: %w", err)
		}
		if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
			return fmt.Errorf("cannot bind inherited flags: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig()
	}

	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("cannot decode config: %w", err)
	}

	c.ApplyDefaults()
	return c.Validate()
}

// settings lists every key known to viper with its current value.
func (c *Config) settings() map[string]interface{} {
	return map[string]interface{}{
		"interval":        c.Interval,
		"base-power":      c.BasePowerW,
		"max-power":       c.MaxPowerW,
		"probe":           c.Probe,
		"proc-root":       c.ProcRoot,
		"model":           c.Model,
		"endpoint":        c.Endpoint,
		"request-timeout": c.RequestTimeout,
		"retries":         c.RetryCount,
		"port":            c.Port,
		"output":          c.OutputPath,
		"format":          c.OutputFormat,
		"graph-dir":       c.GraphDir,
		"graph-format":    c.GraphFormat,
		"log-level":       c.LogLevel,
		"log-file":        c.LogFile,
		"uuid":            c.UUID,
		"hostname":        c.Hostname,
		"nvidia":          c.GPUs,
	}
}
