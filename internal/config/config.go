// Package config loads command line configuration. Sources are layered
// lowest to highest: defaults, sqlanalyzer.yaml, SQLANALYZER_ environment
// variables, then flags set on the command line.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/tobsdb/sqlanalyzer/pkg"
)

const (
	EnvPrefix   = "SQLANALYZER_"
	DefaultHost = "127.0.0.1"
	DefaultPort = 50005
)

var configFileNames = []string{"sqlanalyzer.yaml", "sqlanalyzer.yml"}

// flag names that differ from their config key
var flagKeys = map[string]string{
	"catalog": "catalog_file",
}

type Config struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	LogLevel       string        `koanf:"log_level"`
	Output         string        `koanf:"output"`
	StateDir       string        `koanf:"state_dir"`
	WriteInterval  time.Duration `koanf:"write_interval"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	CatalogFile    string        `koanf:"catalog_file"`

	// path of the config file that was read, if any
	FileUsed string `koanf:"-"`
}

func Defaults() map[string]any {
	return map[string]any{
		"host":            DefaultHost,
		"port":            DefaultPort,
		"log_level":       "error",
		"output":          "text",
		"state_dir":       "",
		"write_interval":  time.Second,
		"connect_timeout": 10 * time.Second,
		"request_timeout": 30 * time.Second,
		"catalog_file":    "",
	}
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads every source into a Config. flags may be nil; only flags
// that were set are applied.
func Load(cfg_file string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	file_used := findConfigFile(cfg_file)
	if file_used != "" {
		if err := k.Load(file.Provider(file_used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file_used, err)
		}
	}

	// SQLANALYZER_STATE_DIR -> state_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.FileUsed = file_used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := pkg.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Output {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output %q, expected text or json", c.Output)
	}
	if c.WriteInterval <= 0 {
		return fmt.Errorf("write_interval must be positive, got %s", c.WriteInterval)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
