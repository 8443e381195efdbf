package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/srodi/faultstat/pkg/types"
)

// EnvPrefix is prepended to every config key looked up in the environment,
// e.g. FAULTSTAT_INTERVAL.
const EnvPrefix = "FAULTSTAT"

const minInterval = time.Second

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the merged result of defaults, the config file, FAULTSTAT_*
// environment variables and command-line flags.
type Config struct {
	Interval       time.Duration `mapstructure:"interval" yaml:"interval"`
	Count          int           `mapstructure:"count" yaml:"count"`
	Arrows         bool          `mapstructure:"arrows" yaml:"arrows"`
	Command        string        `mapstructure:"command" yaml:"command"`
	StripDirectory bool          `mapstructure:"stripDirectory" yaml:"stripDirectory"`
	Top            bool          `mapstructure:"top" yaml:"top"`
	TopTotal       bool          `mapstructure:"topTotal" yaml:"topTotal"`
	JSON           bool          `mapstructure:"json" yaml:"json"`
	PIDs           string        `mapstructure:"pids" yaml:"pids"`
	Sort           string        `mapstructure:"sort" yaml:"sort"`
	ProcRoot       string        `mapstructure:"procRoot" yaml:"procRoot"`
	MetricsFile    string        `mapstructure:"metricsFile" yaml:"metricsFile"`
	TraceFaults    bool          `mapstructure:"traceFaults" yaml:"traceFaults"`
	LogLevel       string        `mapstructure:"logLevel" yaml:"logLevel"`
}

var commandModes = map[string]types.CommandMode{
	"default": types.CommandDefault,
	"short":   types.CommandShort,
	"long":    types.CommandLong,
	"comm":    types.CommandComm,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", time.Duration(0))
	v.SetDefault("count", 0)
	v.SetDefault("arrows", false)
	v.SetDefault("command", "default")
	v.SetDefault("stripDirectory", false)
	v.SetDefault("top", false)
	v.SetDefault("topTotal", false)
	v.SetDefault("json", false)
	v.SetDefault("pids", "")
	v.SetDefault("sort", types.SortMajorMinor.String())
	v.SetDefault("procRoot", "/proc")
	v.SetDefault("metricsFile", "")
	v.SetDefault("traceFaults", false)
	v.SetDefault("logLevel", "warn")
}

// Load reads configuration from defaults, the optional file at path, and
// FAULTSTAT_* environment variables, in increasing priority. The result is
// not validated so that command-line flags can still be applied.
func Load(fs afero.Fs, path string) (Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

// Validate checks option values and combinations.
func (c Config) Validate() error {
	if c.Interval != 0 && c.Interval < minInterval {
		return fmt.Errorf("%w: interval must be %s or more, got %s", ErrInvalid, minInterval, c.Interval)
	}
	if c.Count < 0 {
		return fmt.Errorf("%w: count must not be negative, got %d", ErrInvalid, c.Count)
	}
	if _, err := c.NamePolicy(); err != nil {
		return err
	}
	if _, err := c.SortKey(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.JSON && c.Interactive() {
		return fmt.Errorf("%w: json output cannot be combined with top mode", ErrInvalid)
	}
	return nil
}

// NamePolicy maps Command and StripDirectory onto a types.NamePolicy.
func (c Config) NamePolicy() (types.NamePolicy, error) {
	name := strings.ToLower(strings.TrimSpace(c.Command))
	if name == "" {
		name = "default"
	}
	mode, ok := commandModes[name]
	if !ok {
		return types.NamePolicy{}, fmt.Errorf("%w: unknown command mode %q (want default, short, long or comm)", ErrInvalid, c.Command)
	}
	return types.NamePolicy{Mode: mode, StripDir: c.StripDirectory}, nil
}

// SortKey parses Sort; an empty name selects SortMajorMinor.
func (c Config) SortKey() (types.SortKey, error) {
	return types.ParseSortKey(c.Sort)
}

// Interactive reports whether the full-screen display was requested.
func (c Config) Interactive() bool {
	return c.Top || c.TopTotal
}

// OneShot reports whether a single cumulative snapshot should be printed
// instead of running the sampling loop.
func (c Config) OneShot() bool {
	return c.Interval == 0 && !c.Interactive() && !c.JSON
}

// EffectiveInterval is the tick period, defaulting to one second.
func (c Config) EffectiveInterval() time.Duration {
	if c.Interval == 0 {
		return minInterval
	}
	return c.Interval
}

// Ticks is the number of ticks to run, 0 meaning until stopped.
func (c Config) Ticks() int {
	if c.Count == 0 && c.JSON {
		return 1
	}
	return c.Count
}

// YAML renders the configuration as it would appear in a config file.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
