package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const maxRateBps = 10_000

// Genesis carries the protocol parameters applied when the daemon starts
// against an uninitialised state. The admin address becomes the identity for
// every subsequent admin operation.
type Genesis struct {
	Admin           string   `toml:"Admin"`
	YieldRate30     uint64   `toml:"YieldRate30"`
	YieldRate90     uint64   `toml:"YieldRate90"`
	CooldownSeconds int64    `toml:"CooldownSeconds"`
	PenaltyRateBps  uint64   `toml:"PenaltyRateBps"`
	WhitelistOnly   bool     `toml:"WhitelistOnly"`
	Whitelist       []string `toml:"Whitelist"`
}

// Config is the daemon configuration loaded from TOML.
type Config struct {
	RPCAddress     string   `toml:"RPCAddress"`
	MetricsAddress string   `toml:"MetricsAddress"`
	DataDir        string   `toml:"DataDir"`
	NetworkName    string   `toml:"NetworkName"`
	PausedModules  []string `toml:"PausedModules"`
	Genesis        Genesis  `toml:"genesis"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parameter ranges the protocol requires at
// configuration time. The penalty bound in particular must hold before any
// position exists, not at redemption time.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if c.Genesis.PenaltyRateBps > maxRateBps {
		return fmt.Errorf("config: PenaltyRateBps %d exceeds %d", c.Genesis.PenaltyRateBps, maxRateBps)
	}
	if c.Genesis.YieldRate30 > maxRateBps {
		return fmt.Errorf("config: YieldRate30 %d exceeds %d", c.Genesis.YieldRate30, maxRateBps)
	}
	if c.Genesis.YieldRate90 > maxRateBps {
		return fmt.Errorf("config: YieldRate90 %d exceeds %d", c.Genesis.YieldRate90, maxRateBps)
	}
	if c.Genesis.CooldownSeconds < 0 {
		return fmt.Errorf("config: CooldownSeconds must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = "127.0.0.1:9465"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./stfix-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "stfix-local"
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
	if cfg.Genesis.Whitelist == nil {
		cfg.Genesis.Whitelist = []string{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Genesis: Genesis{
			YieldRate30:     500,
			YieldRate90:     1_500,
			CooldownSeconds: 3_600,
			PenaltyRateBps:  1_000,
		},
	}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
