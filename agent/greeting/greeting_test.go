package greeting

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

type recordingReplier struct {
	sent []string
	err  error
}

func (r *recordingReplier) Send(ctx context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func TestOnMembersAddedSkipsBot(t *testing.T) {
	t.Parallel()

	replier := &recordingReplier{}
	n, err := New().OnMembersAdded(context.Background(), contractx.MembershipEvent{
		ConversationID: "conv-1",
		BotID:          "B",
		MembersAdded:   []contractx.Account{{ID: "A"}, {ID: "B"}},
	}, replier)
	if err != nil {
		t.Fatalf("OnMembersAdded() error = %v", err)
	}
	if n != 1 || len(replier.sent) != 1 {
		t.Fatalf("expected exactly one welcome, got n=%d sent=%d", n, len(replier.sent))
	}
	if replier.sent[0] != WelcomeText {
		t.Fatalf("unexpected welcome: %q", replier.sent[0])
	}
}

func TestOnMembersAddedOnlyBot(t *testing.T) {
	t.Parallel()

	replier := &recordingReplier{}
	n, err := New().OnMembersAdded(context.Background(), contractx.MembershipEvent{
		BotID:        "bot",
		MembersAdded: []contractx.Account{{ID: "bot"}},
	}, replier)
	if err != nil || n != 0 || len(replier.sent) != 0 {
		t.Fatalf("expected no welcome, got n=%d err=%v", n, err)
	}
}

func TestOnMembersAddedDeliveryFailure(t *testing.T) {
	t.Parallel()

	_, err := New().OnMembersAdded(context.Background(), contractx.MembershipEvent{
		BotID:        "bot",
		MembersAdded: []contractx.Account{{ID: "user"}},
	}, &recordingReplier{err: errors.New("closed")})
	if !errors.Is(err, contractx.ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
}
