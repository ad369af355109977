// Package config loads and validates portscout configuration. Configuration
// is a TOML document with scanning defaults, logging settings, and a
// port_lists table of named port groups. A missing or unparseable file is
// not fatal: the built-in default port lists are used instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
	"github.com/anstrom/portscout/internal/portlist"
)

const (
	defaultTimeoutSeconds = 3
	defaultThreads        = 50
	fastTimeoutSeconds    = 1

	minPort = 1
	maxPort = 65535
)

// Config represents the complete portscout configuration.
type Config struct {
	Scanning  ScanningConfig            `mapstructure:"scanning" validate:"required"`
	Logging   logging.Config            `mapstructure:"logging"`
	PortLists map[string]PortListConfig `mapstructure:"port_lists" validate:"required,min=1"`
}

// ScanningConfig holds scanning defaults, overridable per invocation by flags.
type ScanningConfig struct {
	// Connection timeout in seconds
	TimeoutSeconds float64 `mapstructure:"timeout_seconds" validate:"gt=0"`

	// Worker pool width for both scan and probe phases
	Threads int `mapstructure:"threads" validate:"gte=1"`

	// Include closed ports in textual output
	ShowClosed bool `mapstructure:"show_closed"`

	// Run the service identification cascade on open ports
	ServiceDetection bool `mapstructure:"service_detection"`
}

// PortListConfig is the on-disk shape of a port group: a description plus a
// table mapping port-number string keys to service-label values.
type PortListConfig struct {
	Description string            `mapstructure:"description"`
	Ports       map[string]string `mapstructure:"ports"`
}

// Timeout returns the configured connection timeout as a duration.
func (s ScanningConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds * float64(time.Second))
}

// FastTimeout returns the shortened timeout used by --fast.
func FastTimeout() time.Duration {
	return fastTimeoutSeconds * time.Second
}

// Default returns a configuration with the built-in port lists and sensible
// scanning defaults.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			TimeoutSeconds:   defaultTimeoutSeconds,
			Threads:          defaultThreads,
			ShowClosed:       false,
			ServiceDetection: true,
		},
		Logging: logging.DefaultConfig(),
		PortLists: map[string]PortListConfig{
			"common": {
				Description: "Basic common ports",
				Ports: map[string]string{
					"22":   "SSH",
					"80":   "HTTP",
					"443":  "HTTPS",
					"3000": "Node.js Dev",
					"5432": "PostgreSQL",
				},
			},
			"web": {
				Description: "Web servers and frameworks",
				Ports: map[string]string{
					"80":   "HTTP",
					"443":  "HTTPS",
					"3000": "Node.js Dev",
					"3001": "Node.js Alt",
					"5000": "Flask Dev",
					"8000": "Django Dev",
					"8080": "HTTP Proxy",
					"8443": "HTTPS Alt",
					"8888": "Jupyter",
					"9000": "SonarQube",
				},
			},
			"database": {
				Description: "Database servers",
				Ports: map[string]string{
					"3306":  "MySQL/MariaDB",
					"5432":  "PostgreSQL",
					"5984":  "CouchDB",
					"6379":  "Redis",
					"8086":  "InfluxDB",
					"9200":  "Elasticsearch",
					"27017": "MongoDB",
				},
			},
		},
	}
}

// Load reads configuration from the given path, or searches the standard
// locations when path is empty: ./portscout.toml, then
// ~/.config/portscout/portscout.toml. Any failure to locate or parse the
// file falls back to Default() with a warning.
func Load(path string) *Config {
	v := viper.New()
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("portscout")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "portscout"))
		}
	}

	// Read in environment variables that match
	v.SetEnvPrefix("PORTSCOUT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		logging.WarnConfig("Config file not loaded, using built-in port lists", "error", err)
		return Default()
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		logging.WarnConfig("Config file not parseable, using built-in port lists", "error", err)
		return Default()
	}

	// A file that defines its own port_lists replaces the built-ins
	// entirely rather than merging with them.
	if v.IsSet("port_lists") {
		cfg.PortLists = make(map[string]PortListConfig)
		if err := v.UnmarshalKey("port_lists", &cfg.PortLists); err != nil || len(cfg.PortLists) == 0 {
			logging.WarnConfig("port_lists table not parseable, using built-in port lists", "error", err)
			cfg.PortLists = Default().PortLists
		}
	}

	if err := cfg.Validate(); err != nil {
		logging.WarnConfig("Invalid configuration, using built-in defaults", "error", err)
		return Default()
	}

	logging.InfoConfig("Loaded port config", "file", v.ConfigFileUsed())
	return cfg
}

// setDefaults seeds viper with scanning and logging defaults so partial
// files inherit them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("scanning.timeout_seconds", defaultTimeoutSeconds)
	v.SetDefault("scanning.threads", defaultThreads)
	v.SetDefault("scanning.show_closed", false)
	v.SetDefault("scanning.service_detection", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}

// Validate validates the configuration structure.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.WrapConfigError(errors.CodeValidation, "configuration failed validation", err)
	}
	return nil
}

// Registry converts the configured port lists into a portlist.Registry,
// rejecting malformed entries at the boundary. A port key that is not an
// integer in 1..65535 is dropped with a warning; the remaining entries of
// the group are kept.
func (c *Config) Registry() *portlist.Registry {
	groups := make(map[string]portlist.Group, len(c.PortLists))

	for name, list := range c.PortLists {
		ports := make(map[int]string, len(list.Ports))
		for key, label := range list.Ports {
			port, err := strconv.Atoi(key)
			if err != nil || port < minPort || port > maxPort {
				logging.WarnConfig("Dropping malformed port entry", "error",
					errors.NewConfigFieldError(errors.CodeConfiguration,
						"port key must be an integer in 1-65535", "port_lists."+name, key))
				continue
			}
			ports[port] = label
		}

		groups[name] = portlist.Group{
			Name:        name,
			Description: list.Description,
			Ports:       ports,
		}
	}

	return portlist.NewRegistry(groups)
}

// Describe returns a short human-readable summary of a port list for
// display purposes.
func (p PortListConfig) Describe() string {
	desc := p.Description
	if desc == "" {
		desc = "No description"
	}
	return fmt.Sprintf("%s (%d ports)", desc, len(p.Ports))
}
