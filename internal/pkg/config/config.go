package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/marketplace/internal/core/domain"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	// LogFile, when set, receives JSON logs rotated by size.
	LogFile string `env:"LOG_FILE"`

	Ledger LedgerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

type LedgerConfig struct {
	OwnerAddress    string   `env:"OWNER_ADDRESS, required"`
	SeedAdmins      []string `env:"SEED_ADMINS"`
	SeedStoreOwners []string `env:"SEED_STORE_OWNERS"`
	SeedProvisioner string   `env:"SEED_PROVISIONER"`
	JournalWorkers  int      `env:"JOURNAL_WORKERS, default=8"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=marketplace"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return load(envconfig.OsLookuper())
}

func load(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.Ledger.Owner(); err != nil {
		return nil, fmt.Errorf("config: OWNER_ADDRESS: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether ENV selects production behaviour.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Owner returns the parsed OWNER_ADDRESS.
func (l LedgerConfig) Owner() (domain.Principal, error) {
	owner, err := domain.ParsePrincipal(l.OwnerAddress)
	if err != nil {
		return domain.Principal{}, err
	}
	if owner == domain.ZeroPrincipal {
		return domain.Principal{}, domain.ErrZeroAddress
	}
	return owner, nil
}

// Admins returns the parsed SEED_ADMINS.
func (l LedgerConfig) Admins() ([]domain.Principal, error) {
	return parsePrincipals("SEED_ADMINS", l.SeedAdmins)
}

// StoreOwners returns the parsed SEED_STORE_OWNERS.
func (l LedgerConfig) StoreOwners() ([]domain.Principal, error) {
	return parsePrincipals("SEED_STORE_OWNERS", l.SeedStoreOwners)
}

// Provisioner returns the parsed SEED_PROVISIONER, or the zero principal
// when unset.
func (l LedgerConfig) Provisioner() (domain.Principal, error) {
	if l.SeedProvisioner == "" {
		return domain.ZeroPrincipal, nil
	}
	p, err := domain.ParsePrincipal(l.SeedProvisioner)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("SEED_PROVISIONER: %w", err)
	}
	return p, nil
}

func parsePrincipals(key string, raw []string) ([]domain.Principal, error) {
	out := make([]domain.Principal, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		p, err := domain.ParsePrincipal(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, p)
	}
	return out, nil
}
