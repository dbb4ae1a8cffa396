package models

import (
	"strconv"
	"time"
)

// Role identifies which side of a conversation the current user is on.
type Role string

const (
	RoleHousehold Role = "household"
	RoleHousehelp Role = "househelp"
)

// Conversation represents a thread between one household and one househelp.
type Conversation struct {
	ID                string     `json:"id"`
	HouseholdID       string     `json:"household_participant_id"`
	HousehelpID       string     `json:"househelp_participant_id"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
	UnreadCount       int        `json:"unread_count"`
	ParticipantName   string     `json:"participant_display_name,omitempty"`
	ParticipantAvatar string     `json:"participant_avatar,omitempty"`
}

// PairKey normalizes the participant pair into a dedup key. The key is the
// same regardless of which side the viewer is on, so both roles collapse
// duplicate rows identically.
func (c Conversation) PairKey() string {
	return c.HouseholdID + "|" + c.HousehelpID
}

// CounterpartID returns the participant on the other side of the pair.
func (c Conversation) CounterpartID(viewer Role) string {
	if viewer == RoleHousehold {
		return c.HousehelpID
	}
	return c.HouseholdID
}

// UnreadLabel is the display form of the unread counter, capped at "9+".
// The raw count is kept intact so totals never saturate.
func (c Conversation) UnreadLabel() string {
	switch {
	case c.UnreadCount <= 0:
		return ""
	case c.UnreadCount > 9:
		return "9+"
	default:
		return strconv.Itoa(c.UnreadCount)
	}
}

// Identity is the process-wide read-only identity of the current user.
type Identity struct {
	UserID string
	Role   Role
}

// Profile is the lazily hydrated display info for a participant.
type Profile struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url"`
}

// HireSummary feeds the banner shown above an open conversation.
type HireSummary struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	Headline       string `json:"headline"`
}
