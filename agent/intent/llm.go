package intent

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

// LLMClassifier asks a chat model for the same intent and slot shape the
// LUIS app produces.
type LLMClassifier struct {
	runner compose.Runnable[map[string]any, llmOutput]
}

type llmOutput struct {
	TopIntent string             `json:"top_intent"`
	Scores    map[string]float64 `json:"scores"`
	Slot      []string           `json:"slot,omitempty"`
}

func NewLLMClassifier(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*LLMClassifier, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: classifier chat model is required", contractx.ErrConfiguration)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier prompt is empty", contractx.ErrConfiguration)
	}

	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrConfiguration, err)
	}
	return &LLMClassifier{runner: runner}, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, utt contractx.Utterance) (contractx.Classification, error) {
	out, err := c.runner.Invoke(ctx, map[string]any{"input": utt.Text})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: llm classify: %w", contractx.ErrClassificationService, err)
	}

	cls := contractx.Classification{
		TopIntent: canonicalIntent(out.TopIntent),
		Scores:    make(map[contractx.Intent]float64, len(out.Scores)),
		Entities:  contractx.Entities{Slot: contractx.NormalizeSpans(out.Slot)},
	}
	for name, score := range out.Scores {
		cls.Scores[canonicalIntent(name)] = score
	}

	if err := cls.Validate(); err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: %w", contractx.ErrClassificationService, err)
	}
	return cls, nil
}

// canonicalIntent maps model output onto the known intent spelling.
func canonicalIntent(name string) contractx.Intent {
	name = strings.TrimSpace(name)
	for _, known := range contractx.KnownIntents {
		if strings.EqualFold(name, string(known)) {
			return known
		}
	}
	return contractx.Intent(name)
}
