package dispatchnode

import (
	"context"
	"fmt"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

// ConfidenceThreshold gates both scheduler branches. Scores must be strictly
// above it.
const ConfidenceThreshold = 0.5

const FallbackText = "I'm not sure I can answer your question.\n" +
	"I can find available slots for the dental checkup\n" +
	"Or you can ask me to make a reservation for a given time slot"

const (
	NodeCheckAvailability = "check_availability"
	NodeBookSlot          = "book_slot"
	NodeRespondAnswer     = "respond_answer"
	NodeRespondFallback   = "respond_fallback"
)

// Decide applies the routing rules, first match wins:
// availability, then booking (only with a slot), then the top answer, then
// the fallback text. Answers are used in the order the service returned them.
func Decide(answers []contractx.AnswerCandidate, c contractx.Classification) contractx.Decision {
	switch c.TopIntent {
	case contractx.IntentGetAvailability:
		if c.Score(contractx.IntentGetAvailability) > ConfidenceThreshold {
			return contractx.Decision{Action: contractx.ActionAvailability}
		}
	case contractx.IntentScheduleAppointment:
		if c.Score(contractx.IntentScheduleAppointment) > ConfidenceThreshold {
			if slot, ok := c.FirstSlot(); ok {
				return contractx.Decision{Action: contractx.ActionBooking, Slot: slot}
			}
		}
	}

	if len(answers) > 0 {
		top := answers[0]
		return contractx.Decision{
			Action: contractx.ActionAnswer,
			Reply:  top.Text,
			Answer: &top,
		}
	}

	return contractx.Decision{
		Action: contractx.ActionFallback,
		Reply:  FallbackText,
	}
}

func DecideAction(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Decision = Decide(in.Answers, in.Classification)
	return in, nil
}

// Route maps a decision to the node that renders it.
func Route(_ context.Context, in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	switch in.Decision.Action {
	case contractx.ActionAvailability:
		return NodeCheckAvailability, nil
	case contractx.ActionBooking:
		return NodeBookSlot, nil
	case contractx.ActionAnswer:
		return NodeRespondAnswer, nil
	case contractx.ActionFallback:
		return NodeRespondFallback, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", contractx.ErrValidation, in.Decision.Action)
	}
}

// RouteTargets is the branch end-node set for Route.
func RouteTargets() map[string]bool {
	return map[string]bool{
		NodeCheckAvailability: true,
		NodeBookSlot:          true,
		NodeRespondAnswer:     true,
		NodeRespondFallback:   true,
	}
}
