// Package config loads analysis options from fixpoint.conf files.
//
// Options are looked up from the working directory upwards; settings in a
// nearer file override those of files further up, which override the
// defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables of the interval fixpoint computation.
type Config struct {
	// WideningDelay is the number of increasing iterations per cycle that
	// join instead of widening. A delay of zero widens from the first
	// iteration on.
	WideningDelay int `toml:"widening_delay"`
	// NarrowingLimit bounds the number of decreasing iterations per
	// cycle. Zero means no limit.
	NarrowingLimit int `toml:"narrowing_limit"`
	// WideningThresholds are landing points for unstable bounds; an
	// empty list widens straight to infinity.
	WideningThresholds []int64 `toml:"widening_thresholds"`
}

type config struct {
	cfg  Config
	meta toml.MetaData
}

var defaultConfig = Config{
	WideningDelay:      1,
	NarrowingLimit:     0,
	WideningThresholds: nil,
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config { return defaultConfig }

func (cfg config) merge(ocfg config) config {
	if ocfg.meta.IsDefined("widening_delay") {
		cfg.cfg.WideningDelay = ocfg.cfg.WideningDelay
	}
	if ocfg.meta.IsDefined("narrowing_limit") {
		cfg.cfg.NarrowingLimit = ocfg.cfg.NarrowingLimit
	}
	if ocfg.meta.IsDefined("widening_thresholds") {
		cfg.cfg.WideningThresholds = ocfg.cfg.WideningThresholds
	}
	return cfg
}

const configName = "fixpoint.conf"

func parseConfigs(dir string) ([]config, error) {
	var out []config

	for dir != "" {
		f, err := os.Open(filepath.Join(dir, configName))
		if os.IsNotExist(err) {
			ndir := filepath.Dir(dir)
			if ndir == dir {
				break
			}
			dir = ndir
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg config
		cfg.meta, err = toml.NewDecoder(f).Decode(&cfg.cfg)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)

		ndir := filepath.Dir(dir)
		if ndir == dir {
			break
		}
		dir = ndir
	}
	out = append(out, config{cfg: defaultConfig})
	return out, nil
}

func mergeConfigs(confs []config) Config {
	if len(confs) == 0 {
		return defaultConfig
	}
	conf := confs[len(confs)-1]
	for i := len(confs) - 2; i >= 0; i-- {
		conf = conf.merge(confs[i])
	}
	return conf.cfg
}

// Load returns the configuration in effect for dir.
func Load(dir string) (Config, error) {
	confs, err := parseConfigs(dir)
	if err != nil {
		return Config{}, err
	}
	return mergeConfigs(confs), nil
}

// ParseFile loads a single options file on top of the defaults.
func ParseFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	var cfg config
	cfg.meta, err = toml.NewDecoder(f).Decode(&cfg.cfg)
	if err != nil {
		return Config{}, err
	}
	return config{cfg: defaultConfig}.merge(cfg).cfg, nil
}
