package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress string           `toml:"ListenAddress"`
	DataDir       string           `toml:"DataDir"`
	NetworkName   string           `toml:"NetworkName"`
	Admin         Admin            `toml:"Admin"`
	Auth          Auth             `toml:"Auth"`
	RateLimit     RateLimit        `toml:"RateLimit"`
	Logging       Logging          `toml:"Logging"`
	Telemetry     Telemetry        `toml:"Telemetry"`
	Genesis       []GenesisAccount `toml:"Genesis"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "dealchain-local"
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.Auth.ClockSkew.Duration <= 0 {
		cfg.Auth.ClockSkew.Duration = 2 * time.Minute
	}
	if cfg.Genesis == nil {
		cfg.Genesis = []GenesisAccount{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		ListenAddress: ":8080",
		DataDir:       "./dealchain-data",
		NetworkName:   "dealchain-local",
		Auth: Auth{
			ClockSkew: Duration{2 * time.Minute},
		},
		RateLimit: RateLimit{
			RequestsPerMinute: 600,
			Burst:             50,
		},
		Logging: Logging{
			Env:        "dev",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Telemetry: Telemetry{
			Insecure: true,
		},
		Genesis: []GenesisAccount{},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
