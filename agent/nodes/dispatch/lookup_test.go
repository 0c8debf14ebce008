package dispatchnode

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

type stubAnswers struct {
	out []contractx.AnswerCandidate
	err error
	// wait blocks until the context is cancelled when set.
	wait bool
}

func (s stubAnswers) FindAnswers(ctx context.Context, _ contractx.Utterance) ([]contractx.AnswerCandidate, error) {
	if s.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.out, s.err
}

type stubClassifier struct {
	out contractx.Classification
	err error
}

func (s stubClassifier) Classify(context.Context, contractx.Utterance) (contractx.Classification, error) {
	return s.out, s.err
}

func TestLookupJoinsBothResults(t *testing.T) {
	t.Parallel()

	st := &GraphState{Utterance: contractx.Utterance{ConversationID: "c1", Text: "book 9am"}}
	out, err := Lookup(context.Background(), st,
		stubAnswers{out: []contractx.AnswerCandidate{{Text: "a", Score: 0.7}}},
		stubClassifier{out: classification(contractx.IntentScheduleAppointment, 0.9, " ", " 9am ")},
	)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(out.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(out.Answers))
	}
	if slot, _ := out.Classification.FirstSlot(); slot != "9am" {
		t.Fatalf("expected normalized slot 9am, got %q", slot)
	}
}

func TestLookupWrapsClientErrors(t *testing.T) {
	t.Parallel()

	st := &GraphState{Utterance: contractx.Utterance{ConversationID: "c1", Text: "hi"}}

	_, err := Lookup(context.Background(), st,
		stubAnswers{err: errors.New("timeout")},
		stubClassifier{out: classification(contractx.IntentNone, 0.2)},
	)
	if !errors.Is(err, contractx.ErrAnswerService) {
		t.Fatalf("expected ErrAnswerService, got %v", err)
	}

	_, err = Lookup(context.Background(), st,
		stubAnswers{},
		stubClassifier{out: contractx.Classification{TopIntent: contractx.IntentNone}},
	)
	if !errors.Is(err, contractx.ErrClassificationService) || !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected classification schema violation, got %v", err)
	}
}

func TestLookupRejectsBlankAnswers(t *testing.T) {
	t.Parallel()

	st := &GraphState{Utterance: contractx.Utterance{ConversationID: "c1", Text: "hours?"}}
	_, err := Lookup(context.Background(), st,
		stubAnswers{out: []contractx.AnswerCandidate{{Text: "  ", Score: 0.9}, {Text: "We are open 9-5", Score: 0.6}}},
		stubClassifier{out: classification(contractx.IntentNone, 0.9)},
	)
	if !errors.Is(err, contractx.ErrAnswerService) || !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected answer schema violation, got %v", err)
	}
	if errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("blank answer must not read as invalid input: %v", err)
	}
}

func TestLookupFailureCancelsSibling(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st := &GraphState{Utterance: contractx.Utterance{ConversationID: "c1", Text: "hi"}}
	_, err := Lookup(ctx, st,
		stubAnswers{wait: true},
		stubClassifier{err: errors.New("luis down")},
	)
	if !errors.Is(err, contractx.ErrClassificationService) {
		t.Fatalf("expected ErrClassificationService, got %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("sibling was not cancelled before the test deadline")
	}
}
