package greeting

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
	"github.com/rs/zerolog/log"
)

const WelcomeText = "Hi, this is your assistant from Contoso.\n" +
	"I can help you find available slots\n" +
	"Or you can ask me to make a reservation for a given time slot"

type Handler struct {
	text string
}

func New() *Handler {
	return &Handler{text: WelcomeText}
}

// OnMembersAdded welcomes every added member except the bot itself and
// returns how many welcomes were sent.
func (h *Handler) OnMembersAdded(ctx context.Context, ev contractx.MembershipEvent, replier contractx.Replier) (int, error) {
	if replier == nil {
		return 0, fmt.Errorf("%w: replier is required", contractx.ErrConfiguration)
	}

	botID := strings.TrimSpace(ev.BotID)
	sent := 0
	for _, member := range ev.MembersAdded {
		if strings.TrimSpace(member.ID) == botID {
			continue
		}
		if err := replier.Send(ctx, h.text); err != nil {
			return sent, fmt.Errorf("%w: welcome %s: %w", contractx.ErrDelivery, member.ID, err)
		}
		sent++
	}

	if sent > 0 {
		log.Debug().
			Str("conversation_id", ev.ConversationID).
			Int("welcomed", sent).
			Msg("members welcomed")
	}
	return sent, nil
}
