package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Build metadata, injected at link time.
var (
	Version = "latest"
	Commit  = "none"
	Date    = "unknown"
)

const EnvPrefix = "PROXIMITY_"

const (
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterMCP2221 = "mcp2221"
	AdapterMock    = "mock"
)

const (
	WakeSysfs = "sysfs"
	WakeNone  = "none"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Adapter string     `yaml:"adapter"`
	I2C     I2CConfig  `yaml:"i2c"`
	MicroP  MicroP     `yaml:"microp"`
	IRQ     IRQConfig  `yaml:"irq"`
	Wake    WakeConfig `yaml:"wake"`
}

type I2CConfig struct {
	// Device is the periph bus name, e.g. "/dev/i2c-0" or "" for the first bus.
	Device string `yaml:"device"`
	// Bus is the bus number used by the gobot adaptor.
	Bus int `yaml:"bus"`
}

type MicroP struct {
	Address    byte `yaml:"address"`
	RetryLimit int  `yaml:"retry_limit"`
}

type IRQConfig struct {
	Pin          string        `yaml:"pin"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type WakeConfig struct {
	Backend  string        `yaml:"backend"`
	LockName string        `yaml:"lock_name"`
	Duration time.Duration `yaml:"duration"`
}

func Default() Config {
	return Config{
		Adapter: AdapterGeneric,
		I2C: I2CConfig{
			Bus: 0,
		},
		MicroP: MicroP{
			Address:    0x66,
			RetryLimit: 3,
		},
		IRQ: IRQConfig{
			Pin:          "GPIO6",
			PollInterval: 20 * time.Millisecond,
		},
		Wake: WakeConfig{
			Backend:  WakeSysfs,
			LockName: "proximity",
			Duration: 2 * time.Second,
		},
	}
}

// Load reads the YAML file at path (skipped when empty or missing), then the
// optional dotenv file and finally applies PROXIMITY_* overrides.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("could not read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
			}
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("could not load env file %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v, ok := lookup("ADAPTER"); ok {
		c.Adapter = v
	}
	if v, ok := lookup("I2C_DEVICE"); ok {
		c.I2C.Device = v
	}
	if v, ok := lookup("I2C_BUS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sI2C_BUS: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.I2C.Bus = n
	}
	if v, ok := lookup("MICROP_ADDRESS"); ok {
		n, err := strconv.ParseUint(v, 0, 7)
		if err != nil {
			return fmt.Errorf("%w: %sMICROP_ADDRESS: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.MicroP.Address = byte(n)
	}
	if v, ok := lookup("IRQ_PIN"); ok {
		c.IRQ.Pin = v
	}
	if v, ok := lookup("IRQ_POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sIRQ_POLL_INTERVAL: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.IRQ.PollInterval = d
	}
	if v, ok := lookup("WAKE_BACKEND"); ok {
		c.Wake.Backend = v
	}
	if v, ok := lookup("WAKE_LOCK_NAME"); ok {
		c.Wake.LockName = v
	}
	if v, ok := lookup("WAKE_DURATION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sWAKE_DURATION: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Wake.Duration = d
	}
	return nil
}

func lookup(name string) (string, bool) {
	return os.LookupEnv(EnvPrefix + name)
}

func (c Config) Validate() error {
	switch c.Adapter {
	case AdapterGeneric, AdapterNanoPi, AdapterMCP2221, AdapterMock:
	default:
		return fmt.Errorf("%w: unknown adapter %q", ErrInvalidConfig, c.Adapter)
	}
	switch c.Wake.Backend {
	case WakeSysfs, WakeNone:
	default:
		return fmt.Errorf("%w: unknown wake backend %q", ErrInvalidConfig, c.Wake.Backend)
	}
	if c.Wake.Duration < 0 {
		return fmt.Errorf("%w: negative wake duration", ErrInvalidConfig)
	}
	if c.IRQ.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	return nil
}

func BuildInfo() string {
	return fmt.Sprintf("%s-%s-%s", Version, Date, Commit)
}
