package scheduler

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/pkg/httpx"
)

const (
	ProviderHTTP     = "http"
	ProviderPostgres = "postgres"
	ProviderSQLite   = "sqlite"
)

// Config is loaded from SCHEDULER_*.
type Config struct {
	Provider    string        `split_words:"true" default:"http"`
	URL         string        `split_words:"true"`
	DatabaseDSN string        `envconfig:"DATABASE_DSN"`
	Timeout     time.Duration `split_words:"true" default:"5s"`

	Breaker httpx.BreakerConfig
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderHTTP:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("%w: scheduler url is required", contractx.ErrConfiguration)
		}
	case ProviderPostgres, ProviderSQLite:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("%w: scheduler database dsn is required", contractx.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown scheduler provider %q", contractx.ErrConfiguration, c.Provider)
	}
	return nil
}
