package dispatchnode

import (
	"fmt"
	"strings"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

var (
	ErrInvalidUtterance    = fmt.Errorf("%w: utterance text is empty", contractx.ErrValidation)
	ErrInvalidConversation = fmt.Errorf("%w: conversation id is empty", contractx.ErrValidation)
)

type GraphInput struct {
	DispatchID string
	Utterance  contractx.Utterance
}

type GraphOutput struct {
	Decision contractx.Decision
}

type GraphState struct {
	DispatchID string
	Utterance  contractx.Utterance

	Answers        []contractx.AnswerCandidate
	Classification contractx.Classification

	Decision contractx.Decision
}

func ValidateRequest(in GraphInput) (*GraphState, error) {
	utt := in.Utterance

	utt.ConversationID = strings.TrimSpace(utt.ConversationID)
	if utt.ConversationID == "" {
		return nil, ErrInvalidConversation
	}

	utt.Text = strings.TrimSpace(utt.Text)
	if utt.Text == "" {
		return nil, ErrInvalidUtterance
	}

	return &GraphState{
		DispatchID: in.DispatchID,
		Utterance:  utt,
	}, nil
}
