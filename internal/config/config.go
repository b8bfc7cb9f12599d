// Package config loads process configuration from COMMUNITIES_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"communities.ooo/internal/identity"
	"communities.ooo/internal/ledger"
)

// Config is read once at startup.
type Config struct {
	HTTPAddr              string        `env:"COMMUNITIES_HTTP_ADDR"               envDefault:":8080"`
	GRPCAddr              string        `env:"COMMUNITIES_GRPC_ADDR"               envDefault:":9090"`
	PGDSN                 string        `env:"COMMUNITIES_PG_DSN"`
	SnapshotInterval      time.Duration `env:"COMMUNITIES_SNAPSHOT_INTERVAL"       envDefault:"0s"`
	AuthSecret            string        `env:"COMMUNITIES_AUTH_SECRET,required,notEmpty"`
	SessionTTL            time.Duration `env:"COMMUNITIES_SESSION_TTL"             envDefault:"24h"`
	Controllers           []string      `env:"COMMUNITIES_CONTROLLERS"             envSeparator:","`
	LedgerPrincipal       string        `env:"COMMUNITIES_LEDGER_PRINCIPAL"        envDefault:"communities"`
	Symbol                string        `env:"COMMUNITIES_SYMBOL"                  envDefault:"COMM"`
	CollectionName        string        `env:"COMMUNITIES_COLLECTION_NAME"         envDefault:"Community Admin"`
	CollectionDescription string        `env:"COMMUNITIES_COLLECTION_DESCRIPTION"`
	TxWindow              time.Duration `env:"COMMUNITIES_TX_WINDOW"               envDefault:"24h"`
	PermittedDrift        time.Duration `env:"COMMUNITIES_PERMITTED_DRIFT"         envDefault:"2m"`
	MaxMemoSize           int           `env:"COMMUNITIES_MAX_MEMO_SIZE"           envDefault:"32"`
	MaxUpdateBatchSize    int           `env:"COMMUNITIES_MAX_UPDATE_BATCH_SIZE"   envDefault:"32"`
	MaxQueryBatchSize     int           `env:"COMMUNITIES_MAX_QUERY_BATCH_SIZE"    envDefault:"32"`
	DefaultTake           int           `env:"COMMUNITIES_DEFAULT_TAKE"            envDefault:"32"`
	MaxTake               int           `env:"COMMUNITIES_MAX_TAKE"                envDefault:"32"`
	SingleTokenPerHolder  bool          `env:"COMMUNITIES_SINGLE_TOKEN_PER_HOLDER" envDefault:"true"`
	TopK                  int           `env:"COMMUNITIES_TOP_K"                   envDefault:"10"`
	IDSeed                string        `env:"COMMUNITIES_ID_SEED"`
	RatePerSecond         float64       `env:"COMMUNITIES_RATE_PER_SECOND"         envDefault:"20"`
	RateBurst             int           `env:"COMMUNITIES_RATE_BURST"              envDefault:"40"`
	MaxBodyBytes          int64         `env:"COMMUNITIES_MAX_BODY_BYTES"          envDefault:"1048576"`
	CORSOrigins           []string      `env:"COMMUNITIES_CORS_ORIGINS"            envSeparator:","`
	SeedDemo              bool          `env:"COMMUNITIES_SEED_DEMO"               envDefault:"false"`
	LogLevel              string        `env:"COMMUNITIES_LOG_LEVEL"               envDefault:"info"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.MaxTake <= 0 || c.DefaultTake <= 0 || c.DefaultTake > c.MaxTake {
		errs = append(errs, fmt.Errorf("default take %d must be within 1..%d", c.DefaultTake, c.MaxTake))
	}
	if c.MaxUpdateBatchSize <= 0 || c.MaxQueryBatchSize <= 0 {
		errs = append(errs, errors.New("batch sizes must be positive"))
	}
	if c.MaxMemoSize < 0 {
		errs = append(errs, errors.New("max memo size must not be negative"))
	}
	if c.TxWindow <= 0 || c.PermittedDrift < 0 {
		errs = append(errs, errors.New("tx window must be positive and drift not negative"))
	}
	if c.TopK <= 0 {
		errs = append(errs, errors.New("top k must be positive"))
	}
	if c.LedgerPrincipal == "" {
		errs = append(errs, errors.New("ledger principal is required"))
	}
	return errors.Join(errs...)
}

// Ledger projects the ledger settings.
func (c Config) Ledger() ledger.Config {
	return ledger.Config{
		Principal:            identity.Principal(c.LedgerPrincipal),
		Symbol:               c.Symbol,
		Name:                 c.CollectionName,
		Description:          c.CollectionDescription,
		TxWindow:             c.TxWindow,
		PermittedDrift:       c.PermittedDrift,
		MaxMemoSize:          c.MaxMemoSize,
		MaxUpdateBatchSize:   c.MaxUpdateBatchSize,
		MaxQueryBatchSize:    c.MaxQueryBatchSize,
		DefaultTake:          c.DefaultTake,
		MaxTake:              c.MaxTake,
		SingleTokenPerHolder: c.SingleTokenPerHolder,
	}
}

// ControllerPrincipals returns the bootstrap controllers.
func (c Config) ControllerPrincipals() []identity.Principal {
	out := make([]identity.Principal, 0, len(c.Controllers))
	for _, p := range c.Controllers {
		if p != "" {
			out = append(out, identity.Principal(p))
		}
	}
	return out
}
