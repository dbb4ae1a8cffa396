package view

import "inbox-engine/internal/models"

// ReactionGroup is the per-emoji rollup shown under a message.
type ReactionGroup struct {
	Emoji       string   `json:"emoji"`
	Count       int      `json:"count"`
	Users       []string `json:"users"`
	ReactedByMe bool     `json:"reacted_by_me"`
}

// AggregateReactions folds a message's flat reaction list into emoji groups,
// preserving first-seen emoji order. Duplicate (emoji, user) pairs collapse,
// matching the server's one-entry-per-user rule.
func AggregateReactions(reactions []models.Reaction, currentUserID string) []ReactionGroup {
	if len(reactions) == 0 {
		return nil
	}

	byEmoji := make(map[string]int)
	seen := make(map[string]struct{}, len(reactions))
	groups := make([]ReactionGroup, 0, 4)

	for _, r := range reactions {
		pair := r.Emoji + "\x00" + r.UserID
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}

		i, ok := byEmoji[r.Emoji]
		if !ok {
			i = len(groups)
			byEmoji[r.Emoji] = i
			groups = append(groups, ReactionGroup{Emoji: r.Emoji})
		}
		groups[i].Users = append(groups[i].Users, r.UserID)
		groups[i].Count++
		if r.UserID == currentUserID {
			groups[i].ReactedByMe = true
		}
	}
	return groups
}
