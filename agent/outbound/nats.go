package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes each reply on <prefix>.<conversation>.
type NATSPublisher struct {
	conn   natsConn
	closer func()
	prefix string
	now    func() time.Time
}

func NewNATSPublisher(url string, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("dental-assistant-bot"))
	if err != nil {
		return nil, fmt.Errorf("%w: connect nats: %v", contractx.ErrConfiguration, err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to nats")
	p := newNATSPublisher(nc, prefix)
	p.closer = nc.Close
	return p, nil
}

func newNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "dentabot.replies"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, now: time.Now}
}

func (p *NATSPublisher) Publish(ctx context.Context, conversationID string, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", contractx.ErrDelivery, err)
	}

	data, err := json.Marshal(Reply{
		ConversationID: conversationID,
		Text:           text,
		SentAt:         p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: marshal reply: %v", contractx.ErrDelivery, err)
	}

	subject := p.Subject(conversationID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("%w: nats publish %s: %w", contractx.ErrDelivery, subject, err)
	}
	return nil
}

// Subject returns the subject replies for conversationID are published on.
func (p *NATSPublisher) Subject(conversationID string) string {
	return p.prefix + "." + subjectToken(conversationID)
}

func (p *NATSPublisher) Close() {
	if p.closer != nil {
		p.closer()
	}
}

// subjectToken keeps a conversation id inside a single subject token.
func subjectToken(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
