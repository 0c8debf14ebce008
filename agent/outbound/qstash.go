package outbound

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	qstashx "github.com/happyorsaad/dental-assistant-bot/pkg/qstash"
	"github.com/rs/zerolog/log"
)

// QStashPublisher hands replies to QStash, which delivers them to the
// channel connector with its own retries.
type QStashPublisher struct {
	client      *qstashx.Client
	destination string
	now         func() time.Time
}

func NewQStashPublisher(client *qstashx.Client, destination string) (*QStashPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: qstash client is required", contractx.ErrConfiguration)
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: qstash destination is required", contractx.ErrConfiguration)
	}
	return &QStashPublisher{client: client, destination: destination, now: time.Now}, nil
}

func (p *QStashPublisher) Publish(ctx context.Context, conversationID string, text string) error {
	resp, err := p.client.Publish(ctx, p.destination, Reply{
		ConversationID: conversationID,
		Text:           text,
		SentAt:         p.now().UTC(),
	}, map[string]string{"X-Conversation-Id": conversationID})
	if err != nil {
		return fmt.Errorf("%w: qstash: %w", contractx.ErrDelivery, err)
	}

	log.Debug().
		Str("conversation_id", conversationID).
		Str("message_id", resp.MessageID).
		Msg("reply queued")
	return nil
}
