package llm

import (
	"errors"
	"testing"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

func TestOpenRouterForAppliesRoleOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:                " key ",
		Model:                 "openai/gpt-4o-mini",
		MaxCompletionToken:    300,
		Temperature:           0.4,
		ClassifierModel:       "anthropic/claude-3-haiku",
		ClassifierTemperature: 0,
		KnowledgeTemperature:  -1,
	}

	cls := cfg.OpenRouterFor(RoleClassifier)
	if cls.Model != "anthropic/claude-3-haiku" || cls.Temperature != 0 {
		t.Fatalf("unexpected classifier config: model=%s temp=%v", cls.Model, cls.Temperature)
	}
	if cls.APIKey != "key" || cls.MaxCompletionToken == nil || *cls.MaxCompletionToken != 300 {
		t.Fatalf("unexpected shared fields: %#v", cls)
	}

	kb := cfg.OpenRouterFor(RoleKnowledge)
	if kb.Model != "openai/gpt-4o-mini" || kb.Temperature != 0.4 {
		t.Fatalf("unexpected knowledge config: model=%s temp=%v", kb.Model, kb.Temperature)
	}
}

func TestRequireModel(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).RequireModel(); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing key, got %v", err)
	}
	if err := (Config{APIKey: "k"}).RequireModel(); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing model, got %v", err)
	}
	if err := (Config{APIKey: "k", Model: "m"}).RequireModel(); err != nil {
		t.Fatalf("RequireModel() error = %v", err)
	}
}
