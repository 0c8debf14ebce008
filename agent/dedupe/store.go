package dedupe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

var ErrInvalidActivity = errors.New("activity id is empty")

const (
	defaultKeyPrefix = "dentabot:activity:"
	defaultTTL       = 10 * time.Minute

	ProviderNone    = "none"
	ProviderUpstash = "upstash"
	ProviderRedis   = "redis"
)

// Store remembers activity ids so channel redeliveries are answered once.
type Store interface {
	// MarkSeen records id and reports whether this is its first delivery.
	MarkSeen(ctx context.Context, activityID string) (bool, error)
	// Forget drops id so a redelivery is processed again.
	Forget(ctx context.Context, activityID string) error
}

// Config is loaded from DEDUPE_*.
type Config struct {
	Provider  string        `split_words:"true" default:"none"`
	URL       string        `split_words:"true"`
	Token     string        `split_words:"true"`
	KeyPrefix string        `split_words:"true" default:"dentabot:activity:"`
	TTL       time.Duration `envconfig:"TTL" default:"10m"`
	Timeout   time.Duration `split_words:"true" default:"5s"`
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderNone:
	case ProviderUpstash:
		if strings.TrimSpace(c.URL) == "" || strings.TrimSpace(c.Token) == "" {
			return fmt.Errorf("%w: dedupe upstash url and token are required", contractx.ErrConfiguration)
		}
	case ProviderRedis:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("%w: dedupe redis url is required", contractx.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown dedupe provider %q", contractx.ErrConfiguration, c.Provider)
	}
	if c.TTL < 0 {
		return fmt.Errorf("%w: dedupe ttl must be >= 0", contractx.ErrConfiguration)
	}
	return nil
}

// Nop treats every activity as new.
type Nop struct{}

func (Nop) MarkSeen(context.Context, string) (bool, error) {
	return true, nil
}

func (Nop) Forget(context.Context, string) error {
	return nil
}

func buildKey(prefix string, activityID string) (string, error) {
	id := strings.TrimSpace(activityID)
	if id == "" {
		return "", ErrInvalidActivity
	}
	return strings.TrimSpace(prefix) + id, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
