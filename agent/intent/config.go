package intent

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/pkg/httpx"
)

const (
	ProviderLUIS = "luis"
	ProviderLLM  = "llm"
)

// Config is loaded from CLASSIFIER_*.
type Config struct {
	Provider string        `split_words:"true" default:"luis"`
	Endpoint string        `split_words:"true"`
	AppID    string        `envconfig:"APP_ID"`
	APIKey   string        `envconfig:"API_KEY"`
	Slot     string        `split_words:"true" default:"production"`
	Timeout  time.Duration `split_words:"true" default:"5s"`

	Breaker httpx.BreakerConfig
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderLUIS:
		if strings.TrimSpace(c.Endpoint) == "" {
			return fmt.Errorf("%w: classifier endpoint is required", contractx.ErrConfiguration)
		}
		if strings.TrimSpace(c.AppID) == "" {
			return fmt.Errorf("%w: classifier app id is required", contractx.ErrConfiguration)
		}
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: classifier api key is required", contractx.ErrConfiguration)
		}
		return nil
	case ProviderLLM:
		return nil
	default:
		return fmt.Errorf("%w: unknown classifier provider %q", contractx.ErrConfiguration, c.Provider)
	}
}
