package activity

import (
	"strings"

	contractx "github.com/happyorsaad/dental-assistant-bot/agent/contract"
)

const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
)

type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ConversationAccount struct {
	ID string `json:"id"`
}

// Activity is the subset of a Bot Framework activity the router reads.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	Text         string              `json:"text,omitempty"`
	From         ChannelAccount      `json:"from"`
	Recipient    ChannelAccount      `json:"recipient"`
	Conversation ConversationAccount `json:"conversation"`
	MembersAdded []ChannelAccount    `json:"membersAdded,omitempty"`
}

func (a Activity) Utterance() contractx.Utterance {
	return contractx.Utterance{
		ActivityID:     a.ID,
		ConversationID: a.Conversation.ID,
		ChannelID:      a.ChannelID,
		UserID:         a.From.ID,
		Text:           a.Text,
	}
}

func (a Activity) MembershipEvent() contractx.MembershipEvent {
	members := make([]contractx.Account, 0, len(a.MembersAdded))
	for _, m := range a.MembersAdded {
		members = append(members, contractx.Account{ID: m.ID, Name: m.Name})
	}
	return contractx.MembershipEvent{
		ConversationID: a.Conversation.ID,
		BotID:          a.Recipient.ID,
		MembersAdded:   members,
	}
}

func (a Activity) normalizedType() string {
	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case "message":
		return TypeMessage
	case "conversationupdate":
		return TypeConversationUpdate
	default:
		return a.Type
	}
}
