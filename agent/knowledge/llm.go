package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	openrouterx "github.com/happyorsaad/dental-assistant-bot/pkg/openrouter"
	openaisdk "github.com/openai/openai-go"
)

// LLMClient answers from the clinic FAQ embedded in its system prompt.
// It yields at most one candidate.
type LLMClient struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int
	prompt      string
	threshold   float64
}

type llmAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

func NewLLMClient(cfg openrouterx.Config, systemPrompt string, threshold float64) (*LLMClient, error) {
	client, err := openrouterx.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrConfiguration, err)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: knowledge model is required", contractx.ErrConfiguration)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: knowledge prompt is empty", contractx.ErrConfiguration)
	}

	maxTokens := 0
	if cfg.MaxCompletionToken != nil {
		maxTokens = *cfg.MaxCompletionToken
	}

	return &LLMClient{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: float64(cfg.Temperature),
		maxTokens:   maxTokens,
		prompt:      systemPrompt,
		threshold:   threshold,
	}, nil
}

func (c *LLMClient) FindAnswers(ctx context.Context, utt contractx.Utterance) ([]contractx.AnswerCandidate, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(c.prompt),
			openaisdk.UserMessage(utt.Text),
		},
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %w", contractx.ErrAnswerService, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %w: chat completion returned no choices", contractx.ErrAnswerService, contractx.ErrSchemaViolation)
	}

	var parsed llmAnswer
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Choices[0].Message.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w: decode answer: %v", contractx.ErrAnswerService, contractx.ErrSchemaViolation, err)
	}

	answer := strings.TrimSpace(parsed.Answer)
	if answer == "" || parsed.Confidence < c.threshold {
		return nil, nil
	}
	return []contractx.AnswerCandidate{{Text: answer, Score: parsed.Confidence}}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
