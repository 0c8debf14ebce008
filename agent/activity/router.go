package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/happyorsaad/dental-assistant-bot/agent/dedupe"
	"github.com/happyorsaad/dental-assistant-bot/agent/outbound"
	"github.com/happyorsaad/dental-assistant-bot/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// ApologyText replaces the reply when a dispatch cycle fails.
const ApologyText = "Sorry, something went wrong. Please try again later."

type Dispatcher interface {
	Dispatch(ctx context.Context, utt contractx.Utterance, replier contractx.Replier) (contractx.Decision, error)
}

type Greeter interface {
	OnMembersAdded(ctx context.Context, ev contractx.MembershipEvent, replier contractx.Replier) (int, error)
}

// Result is what the webhook returns for one activity.
type Result struct {
	Replies   []string         `json:"replies"`
	Action    contractx.Action `json:"action,omitempty"`
	Duplicate bool             `json:"duplicate,omitempty"`
	Ignored   bool             `json:"ignored,omitempty"`
}

type Router struct {
	engine    Dispatcher
	greeter   Greeter
	seen      dedupe.Store
	publisher outbound.Publisher
}

type RouterOption func(*Router)

func WithDedupe(store dedupe.Store) RouterOption {
	return func(r *Router) {
		if store != nil {
			r.seen = store
		}
	}
}

func WithPublisher(pub outbound.Publisher) RouterOption {
	return func(r *Router) {
		if pub != nil {
			r.publisher = pub
		}
	}
}

func NewRouter(engine Dispatcher, greeter Greeter, opts ...RouterOption) (*Router, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", contractx.ErrConfiguration)
	}
	if greeter == nil {
		return nil, fmt.Errorf("%w: greeter is required", contractx.ErrConfiguration)
	}

	r := &Router{
		engine:    engine,
		greeter:   greeter,
		seen:      dedupe.Nop{},
		publisher: outbound.Discard{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Handle routes one activity: messages to the engine, member additions to
// the greeter. Replies are published and also collected into the Result.
func (r *Router) Handle(ctx context.Context, act Activity) (Result, error) {
	actType := act.normalizedType()
	if strings.TrimSpace(act.Conversation.ID) == "" {
		metrics.ActivitiesTotal.WithLabelValues(actType, "invalid").Inc()
		return Result{}, fmt.Errorf("%w: activity has no conversation id", contractx.ErrValidation)
	}

	if actType != TypeMessage && actType != TypeConversationUpdate {
		metrics.ActivitiesTotal.WithLabelValues("other", "ignored").Inc()
		return Result{Replies: []string{}, Ignored: true}, nil
	}

	marked := false
	if act.ID != "" {
		first, err := r.seen.MarkSeen(ctx, act.ID)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("activity_id", act.ID).Msg("dedupe lookup failed, processing anyway")
		case !first:
			metrics.ActivitiesTotal.WithLabelValues(actType, "duplicate").Inc()
			log.Info().Str("activity_id", act.ID).Msg("duplicate activity skipped")
			return Result{Replies: []string{}, Duplicate: true}, nil
		default:
			marked = true
		}
	}

	res, err := r.handleFresh(ctx, actType, act)
	if err != nil {
		metrics.ActivitiesTotal.WithLabelValues(actType, "failed").Inc()
		if marked {
			// The caller sees an error and the channel will redeliver.
			if forgetErr := r.seen.Forget(ctx, act.ID); forgetErr != nil {
				log.Warn().Err(forgetErr).Str("activity_id", act.ID).Msg("dedupe forget failed")
			}
		}
		return Result{}, err
	}
	return res, nil
}

func (r *Router) handleFresh(ctx context.Context, actType string, act Activity) (Result, error) {
	replier := newCollector(outbound.Conversation(r.publisher, act.Conversation.ID))

	if actType == TypeConversationUpdate {
		if _, err := r.greeter.OnMembersAdded(ctx, act.MembershipEvent(), replier); err != nil {
			return Result{}, err
		}
		metrics.ActivitiesTotal.WithLabelValues(actType, "handled").Inc()
		return Result{Replies: replier.Replies()}, nil
	}

	decision, err := r.engine.Dispatch(ctx, act.Utterance(), replier)
	switch {
	case err == nil:
		metrics.ActivitiesTotal.WithLabelValues(actType, "handled").Inc()
		return Result{Replies: replier.Replies(), Action: decision.Action}, nil
	case errors.Is(err, contractx.ErrValidation), errors.Is(err, contractx.ErrDelivery):
		return Result{}, err
	}

	log.Error().Err(err).
		Str("activity_id", act.ID).
		Str("conversation_id", act.Conversation.ID).
		Msg("dispatch failed, sending apology")

	if sendErr := replier.Send(ctx, ApologyText); sendErr != nil {
		return Result{}, fmt.Errorf("%w: apology: %w", contractx.ErrDelivery, sendErr)
	}
	metrics.ActivitiesTotal.WithLabelValues(actType, "apologized").Inc()
	return Result{Replies: replier.Replies()}, nil
}

// collector forwards replies and remembers what was sent.
type collector struct {
	next contractx.Replier

	mu   sync.Mutex
	sent []string
}

func newCollector(next contractx.Replier) *collector {
	return &collector{next: next}
}

func (c *collector) Send(ctx context.Context, text string) error {
	if err := c.next.Send(ctx, text); err != nil {
		return err
	}
	c.mu.Lock()
	c.sent = append(c.sent, text)
	c.mu.Unlock()
	return nil
}

func (c *collector) Replies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}
