package outbound

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

const (
	ModeInline = "inline"
	ModeQStash = "qstash"
	ModeNATS   = "nats"
)

// Config is loaded from OUTBOUND_*.
type Config struct {
	Mode          string `split_words:"true" default:"inline"`
	Destination   string `split_words:"true"`
	NATSURL       string `envconfig:"NATS_URL"`
	SubjectPrefix string `split_words:"true" default:"dentabot.replies"`
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Mode)) {
	case ModeInline:
	case ModeQStash:
		if strings.TrimSpace(c.Destination) == "" {
			return fmt.Errorf("%w: outbound destination is required for qstash", contractx.ErrConfiguration)
		}
	case ModeNATS:
		if strings.TrimSpace(c.NATSURL) == "" {
			return fmt.Errorf("%w: outbound nats url is required", contractx.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown outbound mode %q", contractx.ErrConfiguration, c.Mode)
	}
	return nil
}

// Publisher pushes a reply towards the channel that owns the conversation.
type Publisher interface {
	Publish(ctx context.Context, conversationID string, text string) error
}

// Reply is the payload every publisher sends.
type Reply struct {
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
}

// Discard drops replies; used in inline mode where the HTTP response
// carries them.
type Discard struct{}

func (Discard) Publish(context.Context, string, string) error {
	return nil
}

// Conversation binds a publisher to one conversation.
func Conversation(pub Publisher, conversationID string) contractx.Replier {
	return contractx.ReplierFunc(func(ctx context.Context, text string) error {
		return pub.Publish(ctx, conversationID, text)
	})
}
