// Package config loads the project configuration (posted.yaml) with the
// usual layering: packaged defaults, config file, POSTED_ environment
// variables, then explicitly set CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the project config file.
const ConfigFileName = "posted.yaml"

// ConfigFileNameAlt is the alternate name of the project config file.
const ConfigFileNameAlt = "posted.yml"

// Default configuration values.
const (
	DefaultPeriodMode = "interpolate+extrapolate"
	DefaultOutput     = "table"
)

// Config holds all project configuration options.
type Config struct {
	// DefinitionsDir holds units.yaml / definitions.yaml overlays.
	DefinitionsDir string `koanf:"definitions_dir"`
	// MaskFiles are YAML mask files applied to every aggregation.
	MaskFiles []string `koanf:"mask_files"`
	// PeriodMode is the default period resolution mode.
	PeriodMode string `koanf:"period_mode"`
	// ExpandNotSpecified treats N/S cells like wildcards by default.
	ExpandNotSpecified bool `koanf:"expand_not_specified"`
	// OutputFormat is the default render format (table, csv, json).
	OutputFormat string `koanf:"output"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// Load builds the configuration. cfgFile may be empty, in which case
// posted.yaml is searched for in the working directory and its parents.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"period_mode": DefaultPeriodMode,
		"output":      DefaultOutput,
		"verbose":     false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if cfgFile == "" {
		cfgFile = findConfigFile()
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider("POSTED_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "POSTED_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Paths in the config file resolve relative to its directory.
	if cfgFile != "" {
		base := filepath.Dir(cfgFile)
		if cfg.DefinitionsDir != "" && !filepath.IsAbs(cfg.DefinitionsDir) {
			cfg.DefinitionsDir = filepath.Join(base, cfg.DefinitionsDir)
		}
		for i, m := range cfg.MaskFiles {
			if !filepath.IsAbs(m) {
				cfg.MaskFiles[i] = filepath.Join(base, m)
			}
		}
	}
	return &cfg, nil
}

// findConfigFile walks up from the working directory looking for
// posted.yaml or posted.yml. Empty if none is found.
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
