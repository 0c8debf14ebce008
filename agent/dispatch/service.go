package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	nodex "github.com/happyorsaad/dental-assistant-bot/agent/nodes/dispatch"
	"github.com/happyorsaad/dental-assistant-bot/pkg/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidUtterance    = nodex.ErrInvalidUtterance
	ErrInvalidConversation = nodex.ErrInvalidConversation
)

// FallbackText is sent when no intent branch fires and the knowledge base
// has nothing to offer.
const FallbackText = nodex.FallbackText

// Engine routes one utterance to exactly one reply. It holds only the
// client handles, so a single Engine serves concurrent conversations.
type Engine struct {
	answers    contractx.AnswerFinder
	classifier contractx.IntentClassifier
	scheduler  contractx.Scheduler

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	newID func() string
	now   func() time.Time
}

func New(
	answers contractx.AnswerFinder,
	classifier contractx.IntentClassifier,
	scheduler contractx.Scheduler,
) (*Engine, error) {
	if answers == nil {
		return nil, fmt.Errorf("%w: knowledge answer client is required", contractx.ErrConfiguration)
	}
	if classifier == nil {
		return nil, fmt.Errorf("%w: intent classifier client is required", contractx.ErrConfiguration)
	}
	if scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler client is required", contractx.ErrConfiguration)
	}

	e := &Engine{
		answers:    answers,
		classifier: classifier,
		scheduler:  scheduler,
		newID:      uuid.NewString,
		now:        time.Now,
	}

	graphRunner, err := e.compileDispatchGraph(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrConfiguration, err)
	}
	e.graphRunner = graphRunner

	return e, nil
}

// Decide runs the lookups, the decision and any scheduler call, and returns
// the rendered decision without sending it.
func (e *Engine) Decide(ctx context.Context, utt contractx.Utterance) (contractx.Decision, error) {
	return e.run(ctx, e.newID(), utt)
}

// Dispatch runs one full cycle and sends exactly one reply through replier.
// Nothing is sent when any stage fails; the error is returned as is.
func (e *Engine) Dispatch(
	ctx context.Context,
	utt contractx.Utterance,
	replier contractx.Replier,
) (_ contractx.Decision, err error) {
	if replier == nil {
		return contractx.Decision{}, fmt.Errorf("%w: replier is required", contractx.ErrConfiguration)
	}

	start := e.now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		metrics.DispatchLatency.WithLabelValues(outcome).Observe(e.now().Sub(start).Seconds())
	}()

	dispatchID := e.newID()

	decision, err := e.run(ctx, dispatchID, utt)
	if err != nil {
		return contractx.Decision{}, err
	}

	if err := replier.Send(ctx, decision.Reply); err != nil {
		metrics.DispatchFailures.WithLabelValues("delivery").Inc()
		log.Error().Err(err).
			Str("dispatch_id", dispatchID).
			Str("conversation_id", utt.ConversationID).
			Msg("reply delivery failed")
		return decision, fmt.Errorf("%w: %w", contractx.ErrDelivery, err)
	}
	return decision, nil
}

func (e *Engine) run(ctx context.Context, dispatchID string, utt contractx.Utterance) (contractx.Decision, error) {
	out, err := e.graphRunner.Invoke(ctx, nodex.GraphInput{
		DispatchID: dispatchID,
		Utterance:  utt,
	})
	if err != nil {
		stage := failureStage(err)
		metrics.DispatchFailures.WithLabelValues(stage).Inc()
		log.Error().Err(err).
			Str("dispatch_id", dispatchID).
			Str("conversation_id", utt.ConversationID).
			Str("stage", stage).
			Msg("dispatch aborted")
		return contractx.Decision{}, err
	}

	metrics.DispatchTotal.WithLabelValues(string(out.Decision.Action)).Inc()
	log.Info().
		Str("dispatch_id", dispatchID).
		Str("conversation_id", utt.ConversationID).
		Str("action", string(out.Decision.Action)).
		Msg("dispatch decided")

	return out.Decision, nil
}

func failureStage(err error) string {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return "validate"
	case errors.Is(err, contractx.ErrAnswerService):
		return "answers"
	case errors.Is(err, contractx.ErrClassificationService):
		return "classifier"
	case errors.Is(err, contractx.ErrSchedulerService):
		return "scheduler"
	default:
		return "unknown"
	}
}
