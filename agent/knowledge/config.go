package knowledge

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/pkg/httpx"
)

const (
	ProviderQnAMaker = "qnamaker"
	ProviderLLM      = "llm"
)

// Config is loaded from KNOWLEDGE_*.
type Config struct {
	Provider        string        `split_words:"true" default:"qnamaker"`
	Host            string        `split_words:"true"`
	KnowledgeBaseID string        `envconfig:"KNOWLEDGE_BASE_ID"`
	EndpointKey     string        `split_words:"true"`
	Top             int           `split_words:"true" default:"3"`
	ScoreThreshold  float64       `split_words:"true" default:"0.3"`
	Timeout         time.Duration `split_words:"true" default:"5s"`

	Breaker httpx.BreakerConfig
}

func (c Config) Validate() error {
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("%w: knowledge score threshold must be within 0..1", contractx.ErrConfiguration)
	}

	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderQnAMaker:
		if strings.TrimSpace(c.Host) == "" {
			return fmt.Errorf("%w: knowledge host is required", contractx.ErrConfiguration)
		}
		if strings.TrimSpace(c.KnowledgeBaseID) == "" {
			return fmt.Errorf("%w: knowledge base id is required", contractx.ErrConfiguration)
		}
		if strings.TrimSpace(c.EndpointKey) == "" {
			return fmt.Errorf("%w: knowledge endpoint key is required", contractx.ErrConfiguration)
		}
		return nil
	case ProviderLLM:
		return nil
	default:
		return fmt.Errorf("%w: unknown knowledge provider %q", contractx.ErrConfiguration, c.Provider)
	}
}
