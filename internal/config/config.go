// Package config loads the bootstrap settings: listen ports, log file,
// extra probe locations and optional NAT port mapping. Sampling constants
// (tick period, client timeout, probe throttle) are not configurable.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWSPort   = 9000
	DefaultUDPPort  = 9001
	DefaultNATLease = 10 * time.Minute

	// DefaultHTTPRatePerMinute limits API requests per client IP.
	DefaultHTTPRatePerMinute = 100
	// DefaultFanCommandBurst is how many fan commands a peer may send back to back.
	DefaultFanCommandBurst = 2
)

const envPrefix = "HOLODASH_"

type Config struct {
	WSPort     int       `yaml:"ws_port" validate:"min=1,max=65535"`
	UDPPort    int       `yaml:"udp_port" validate:"min=1,max=65535"`
	Bind       string    `yaml:"bind" validate:"omitempty,ip"`
	LogFile    string    `yaml:"log_file"`
	ProbePaths []string  `yaml:"probe_paths" validate:"dive,required"`
	HTTPRate   int       `yaml:"http_rate_per_minute" validate:"min=1"`
	FanBurst   int       `yaml:"fan_command_burst" validate:"min=1,max=100"`
	NAT        NATConfig `yaml:"nat"`
}

// NATConfig controls UPnP/NAT-PMP mapping of both listen ports.
type NATConfig struct {
	Enabled bool          `yaml:"enabled"`
	Lease   time.Duration `yaml:"lease" validate:"min=1m"`
}

var validate = validator.New()

// Default returns a config with every field at its default.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads a YAML file and fills unset fields with defaults. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

func ApplyDefaults(cfg *Config) {
	if cfg.WSPort == 0 {
		cfg.WSPort = DefaultWSPort
	}
	if cfg.UDPPort == 0 {
		cfg.UDPPort = DefaultUDPPort
	}
	if cfg.HTTPRate == 0 {
		cfg.HTTPRate = DefaultHTTPRatePerMinute
	}
	if cfg.FanBurst == 0 {
		cfg.FanBurst = DefaultFanCommandBurst
	}
	if cfg.NAT.Lease == 0 {
		cfg.NAT.Lease = DefaultNATLease
	}
}

// ApplyEnv overrides fields from HOLODASH_* variables. getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(envPrefix + "WS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sWS_PORT: %w", envPrefix, err)
		}
		cfg.WSPort = port
	}
	if v := getenv(envPrefix + "UDP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sUDP_PORT: %w", envPrefix, err)
		}
		cfg.UDPPort = port
	}
	if v := getenv(envPrefix + "BIND"); v != "" {
		cfg.Bind = v
	}
	if v := getenv(envPrefix + "LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := getenv(envPrefix + "PROBE_PATHS"); v != "" {
		cfg.ProbePaths = strings.Split(v, string(os.PathListSeparator))
	}
	if v := getenv(envPrefix + "NAT"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sNAT: %w", envPrefix, err)
		}
		cfg.NAT.Enabled = enabled
	}
	return nil
}

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WSAddr is the listen address of the HTTP/WebSocket server.
func (c Config) WSAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.WSPort))
}

// UDPAddr is the listen address of the discovery socket.
func (c Config) UDPAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.UDPPort))
}
