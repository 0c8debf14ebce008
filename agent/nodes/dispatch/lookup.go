package dispatchnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Lookup queries the answer service and the classifier concurrently and
// returns only once both have finished. The first failure cancels the other
// call and aborts the cycle.
func Lookup(
	ctx context.Context,
	in *GraphState,
	answers contractx.AnswerFinder,
	classifier contractx.IntentClassifier,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var (
		candidates     []contractx.AnswerCandidate
		classification contractx.Classification
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := answers.FindAnswers(gctx, in.Utterance)
		if err != nil {
			return wrapService(contractx.ErrAnswerService, err)
		}
		if err := contractx.ValidateAnswers(out); err != nil {
			return wrapService(contractx.ErrAnswerService, err)
		}
		candidates = out
		return nil
	})
	g.Go(func() error {
		out, err := classifier.Classify(gctx, in.Utterance)
		if err != nil {
			return wrapService(contractx.ErrClassificationService, err)
		}
		out.Entities.Slot = contractx.NormalizeSpans(out.Entities.Slot)
		if err := out.Validate(); err != nil {
			return wrapService(contractx.ErrClassificationService, err)
		}
		classification = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("dispatch_id", in.DispatchID).
		Int("answers", len(candidates)).
		Str("top_intent", string(classification.TopIntent)).
		Float64("top_score", classification.Score(classification.TopIntent)).
		Int("slots", len(classification.Entities.Slot)).
		Msg("lookups joined")

	in.Answers = candidates
	in.Classification = classification
	return in, nil
}

func wrapService(sentinel error, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
