package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/smartcontractkit/chainlink-common/pkg/config"

	"github.com/ton-connect/walletkit-go/pkg/toncenter"
	"github.com/ton-connect/walletkit-go/pkg/utils"
	"github.com/ton-connect/walletkit-go/pkg/wallet"
)

// EnvPrefix prefixes environment overrides; "__" separates nesting levels,
// e.g. TONKIT_TONCENTER__API_KEY.
const EnvPrefix = "TONKIT_"

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

var DefaultConfigSet = Config{
	Network: string(wallet.Mainnet),
	Toncenter: Toncenter{
		URL:     toncenter.MainnetURL,
		Timeout: 15 * time.Second,
	},
	Intent: Intent{
		Scheme: "tc",
	},
	Handlers: Handlers{
		DisablePreview: false,
	},
	Storage: Storage{
		Backend:     StorageMemory,
		RedisPrefix: "tonkit:",
		SQLitePath:  "tonkit.db",
	},
	Cache: Cache{
		StakingQuoteSize: 256,
		StakingQuoteTTL:  30 * time.Second,
		QuoteTimeout:     10 * time.Second,
	},
	Retry: Retry{
		Attempts: utils.DefaultRetryConfig.Attempts,
		Delay:    utils.DefaultRetryConfig.Delay,
	},
}

type Config struct {
	Network   string    `koanf:"network"`
	Toncenter Toncenter `koanf:"toncenter"`
	Intent    Intent    `koanf:"intent"`
	Handlers  Handlers  `koanf:"handlers"`
	Storage   Storage   `koanf:"storage"`
	Cache     Cache     `koanf:"cache"`
	Retry     Retry     `koanf:"retry"`
}

type Toncenter struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

type Intent struct {
	Scheme string `koanf:"scheme"`
}

type Handlers struct {
	DisablePreview bool `koanf:"disable_preview"`
}

type Storage struct {
	Backend     string `koanf:"backend"`
	RedisURL    string `koanf:"redis_url"`
	RedisPrefix string `koanf:"redis_prefix"`
	SQLitePath  string `koanf:"sqlite_path"`
}

type Cache struct {
	StakingQuoteSize int           `koanf:"staking_quote_size"`
	StakingQuoteTTL  time.Duration `koanf:"staking_quote_ttl"`
	QuoteTimeout     time.Duration `koanf:"quote_timeout"`
}

type Retry struct {
	Attempts uint          `koanf:"attempts"`
	Delay    time.Duration `koanf:"delay"`
}

func (r Retry) RetryConfig() utils.RetryConfig {
	return utils.RetryConfig{Attempts: r.Attempts, Delay: r.Delay}
}

// Load layers DefaultConfigSet, the YAML file at path (skipped when path is
// empty or missing) and TONKIT_ environment variables, then validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := DefaultConfigSet
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func (c *Config) ValidateConfig() (err error) {
	if _, perr := wallet.ParseNetwork(c.Network); perr != nil {
		err = errors.Join(err, config.ErrInvalid{Name: "Network", Value: c.Network, Msg: "must be -239 or -3"})
	}

	if c.Toncenter.URL == "" {
		err = errors.Join(err, config.ErrMissing{Name: "Toncenter.URL", Msg: "required for traces and emulation"})
	} else if u, perr := url.Parse(c.Toncenter.URL); perr != nil || u.Scheme == "" || u.Host == "" {
		err = errors.Join(err, config.ErrInvalid{Name: "Toncenter.URL", Value: c.Toncenter.URL, Msg: "must be an absolute URL"})
	}
	if c.Toncenter.Timeout <= 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "Toncenter.Timeout", Value: c.Toncenter.Timeout, Msg: "must be positive"})
	}

	if c.Intent.Scheme == "" {
		err = errors.Join(err, config.ErrMissing{Name: "Intent.Scheme", Msg: "required to recognize intent URLs"})
	} else if strings.Contains(c.Intent.Scheme, ":") || strings.Contains(c.Intent.Scheme, "/") {
		err = errors.Join(err, config.ErrInvalid{Name: "Intent.Scheme", Value: c.Intent.Scheme, Msg: "must be a bare scheme such as tc"})
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			err = errors.Join(err, config.ErrMissing{Name: "Storage.RedisURL", Msg: "required for the redis backend"})
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			err = errors.Join(err, config.ErrMissing{Name: "Storage.SQLitePath", Msg: "required for the sqlite backend"})
		}
	default:
		err = errors.Join(err, config.ErrInvalid{Name: "Storage.Backend", Value: c.Storage.Backend, Msg: "must be memory, redis or sqlite"})
	}

	if c.Cache.StakingQuoteSize <= 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "Cache.StakingQuoteSize", Value: c.Cache.StakingQuoteSize, Msg: "must be positive"})
	}
	if c.Cache.StakingQuoteTTL <= 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "Cache.StakingQuoteTTL", Value: c.Cache.StakingQuoteTTL, Msg: "must be positive"})
	}
	if c.Cache.QuoteTimeout <= 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "Cache.QuoteTimeout", Value: c.Cache.QuoteTimeout, Msg: "must be positive"})
	}
	if c.Retry.Attempts == 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "Retry.Attempts", Value: c.Retry.Attempts, Msg: "must be at least 1"})
	}
	if c.Retry.Delay < 0 {
		err = errors.Join(err, config.ErrInvalid{Name: "Retry.Delay", Value: c.Retry.Delay, Msg: "must not be negative"})
	}
	return err
}
