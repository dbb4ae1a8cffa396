package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-engine/internal/models"
)

func TestAggregateGroupsByEmoji(t *testing.T) {
	reactions := []models.Reaction{
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "❤️", UserID: "u2"},
		{Emoji: "👍", UserID: "u3"},
	}

	groups := AggregateReactions(reactions, "u9")
	require.Len(t, groups, 2)

	assert.Equal(t, "👍", groups[0].Emoji)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []string{"u1", "u3"}, groups[0].Users)
	assert.False(t, groups[0].ReactedByMe)

	assert.Equal(t, "❤️", groups[1].Emoji)
	assert.Equal(t, 1, groups[1].Count)
}

func TestAggregateFlagsCurrentUser(t *testing.T) {
	reactions := []models.Reaction{
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "👍", UserID: "me"},
	}

	groups := AggregateReactions(reactions, "me")
	require.Len(t, groups, 1)
	assert.True(t, groups[0].ReactedByMe)
}

func TestAggregateCollapsesDuplicatePairs(t *testing.T) {
	reactions := []models.Reaction{
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "👍", UserID: "u1"},
	}

	groups := AggregateReactions(reactions, "u1")
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Count)
}

func TestAggregateEmptyList(t *testing.T) {
	assert.Nil(t, AggregateReactions(nil, "u1"))
}
