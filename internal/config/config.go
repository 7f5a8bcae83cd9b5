package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	APIToken   string `yaml:"api_token"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LedgerConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Flat per-payment network fee in XRP used for pre-flight estimates.
	FeePerTxXRP float64 `yaml:"fee_per_tx_xrp"`
}

// WalletConfig identifies the funding account. Key generation and encryption
// are out of scope; the secret is supplied here the way API keys are.
type WalletConfig struct {
	Address string `yaml:"address"`
	Secret  string `yaml:"secret"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/airdropd/airdropd.db"
	}
	if cfg.Ledger.FeePerTxXRP == 0 {
		cfg.Ledger.FeePerTxXRP = 0.000012
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Ledger.Endpoint == "" {
		return fmt.Errorf("ledger.endpoint is required")
	}
	if cfg.Wallet.Address == "" {
		return fmt.Errorf("wallet.address is required")
	}
	if cfg.Wallet.Secret == "" {
		return fmt.Errorf("wallet.secret is required")
	}
	return nil
}
