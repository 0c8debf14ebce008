package contract

import (
	"fmt"
	"strings"
)

type Utterance struct {
	ActivityID     string `json:"activity_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	ChannelID      string `json:"channel_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Text           string `json:"text"`
}

type Intent string

const (
	IntentGetAvailability     Intent = "GetAvailability"
	IntentScheduleAppointment Intent = "ScheduleAppointment"
	IntentNone                Intent = "None"
)

// KnownIntents lists the intents the classifier model is trained on.
var KnownIntents = []Intent{
	IntentGetAvailability,
	IntentScheduleAppointment,
	IntentNone,
}

// Entities holds extracted spans per entity role. Slot carries free-text time
// expressions in utterance order; it may be empty for any intent.
type Entities struct {
	Slot []string `json:"slot,omitempty"`
}

type Classification struct {
	TopIntent Intent             `json:"top_intent"`
	Scores    map[Intent]float64 `json:"scores"`
	Entities  Entities           `json:"entities"`
}

func (c Classification) Score(intent Intent) float64 {
	if c.Scores == nil {
		return 0
	}
	return c.Scores[intent]
}

// FirstSlot returns the first extracted slot span, if any.
func (c Classification) FirstSlot() (string, bool) {
	if len(c.Entities.Slot) == 0 || c.Entities.Slot[0] == "" {
		return "", false
	}
	return c.Entities.Slot[0], true
}

// Validate checks what clients must guarantee before handing a
// classification to the dispatcher.
func (c Classification) Validate() error {
	if strings.TrimSpace(string(c.TopIntent)) == "" {
		return fmt.Errorf("%w: top intent is empty", ErrSchemaViolation)
	}
	if _, ok := c.Scores[c.TopIntent]; !ok {
		return fmt.Errorf("%w: top intent %q has no score", ErrSchemaViolation, c.TopIntent)
	}
	for intent, s := range c.Scores {
		if s < 0 || s > 1 {
			return fmt.Errorf("%w: score for %q out of range: %v", ErrSchemaViolation, intent, s)
		}
	}
	for i, span := range c.Entities.Slot {
		if strings.TrimSpace(span) == "" {
			return fmt.Errorf("%w: slot span %d is empty", ErrSchemaViolation, i)
		}
	}
	return nil
}

// NormalizeSpans trims spans and drops the empty ones, keeping order.
func NormalizeSpans(spans []string) []string {
	if len(spans) == 0 {
		return nil
	}
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

type AnswerCandidate struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// ValidateAnswers rejects candidate lists a knowledge client must never
// return: blank answer text or a score outside 0..1.
func ValidateAnswers(candidates []AnswerCandidate) error {
	for i, c := range candidates {
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("%w: answer %d has empty text", ErrSchemaViolation, i)
		}
		if c.Score < 0 || c.Score > 1 {
			return fmt.Errorf("%w: answer %d score out of range: %v", ErrSchemaViolation, i, c.Score)
		}
	}
	return nil
}

type Action string

const (
	ActionAvailability Action = "respond_availability"
	ActionBooking      Action = "respond_booking"
	ActionAnswer       Action = "respond_answer"
	ActionFallback     Action = "respond_fallback"
)

// Decision is the single outcome of one dispatch cycle.
type Decision struct {
	Action Action `json:"action"`
	Reply  string `json:"reply"`

	// Slot is set for ActionBooking.
	Slot string `json:"slot,omitempty"`
	// Answer is set for ActionAnswer.
	Answer *AnswerCandidate `json:"answer,omitempty"`
}

type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type MembershipEvent struct {
	ConversationID string    `json:"conversation_id"`
	BotID          string    `json:"bot_id"`
	MembersAdded   []Account `json:"members_added"`
}
