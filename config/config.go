package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"prizepool/crypto"
)

const (
	envRPCToken    = "PRIZEPOOL_RPC_TOKEN"
	envEnvironment = "PRIZEPOOL_ENV"
)

type Config struct {
	ListenAddress    string    `toml:"ListenAddress"`
	DataDir          string    `toml:"DataDir"`
	Environment      string    `toml:"Environment"`
	Admin            string    `toml:"Admin"`
	MintAuthority    string    `toml:"MintAuthority"`
	MintKeystorePath string    `toml:"MintKeystorePath"`
	EventLogSize     int       `toml:"EventLogSize"`
	RPC              RPC       `toml:"rpc"`
	Logging          Logging   `toml:"logging"`
	Telemetry        Telemetry `toml:"telemetry"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults and a freshly generated operator keystore whose key
// is both the mint authority and the admin.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./prizepool-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	if c.EventLogSize <= 0 {
		c.EventLogSize = 1024
	}
	if c.RPC.RateLimitPerSecond == 0 {
		c.RPC.RateLimitPerSecond = 5
	}
	if c.RPC.RateLimitBurst == 0 {
		c.RPC.RateLimitBurst = 10
	}
	if c.RPC.ReadHeaderTimeout == 0 {
		c.RPC.ReadHeaderTimeout = 5
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
}

func (c *Config) applyEnv() {
	if token := strings.TrimSpace(os.Getenv(envRPCToken)); token != "" {
		c.RPC.AuthToken = token
	}
	if env := strings.TrimSpace(os.Getenv(envEnvironment)); env != "" {
		c.Environment = env
	}
}

// AdminAddress returns the designated admin. The zero address means any
// signer may register winners, and since a pool authority is derived from the
// game id alone, whoever registers an id first controls payouts from its
// escrow.
func (c *Config) AdminAddress() (crypto.Address, error) {
	return optionalAddress("Admin", c.Admin)
}

// MintAuthorityAddress returns the key allowed to mint tokens.
func (c *Config) MintAuthorityAddress() (crypto.Address, error) {
	addr, err := optionalAddress("MintAuthority", c.MintAuthority)
	if err != nil {
		return addr, err
	}
	if addr.IsZero() {
		return addr, fmt.Errorf("config: MintAuthority is required")
	}
	return addr, nil
}

func optionalAddress(field, raw string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return crypto.Address{}, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("config: %s: %w", field, err)
	}
	return addr, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:    "127.0.0.1:8645",
		DataDir:          "./prizepool-data",
		Environment:      "dev",
		Admin:            key.PubKey().Address().String(),
		MintAuthority:    key.PubKey().Address().String(),
		MintKeystorePath: keystorePath,
		EventLogSize:     1024,
		RPC: RPC{
			RateLimitPerSecond: 5,
			RateLimitBurst:     10,
			ReadHeaderTimeout:  5,
		},
		Logging: Logging{MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Telemetry: Telemetry{
			Endpoint: "localhost:4318",
			Insecure: true,
		},
	}

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

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "mint.keystore")
}
