package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"inbox-engine/internal/api"
	"inbox-engine/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ListConversations(ctx context.Context, offset, limit int) ([]models.Conversation, error) {
	args := m.Called(ctx, offset, limit)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ServiceMock) ListMessages(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, offset, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ServiceMock) SendMessage(ctx context.Context, conversationID, body, replyToID string) (models.Message, error) {
	args := m.Called(ctx, conversationID, body, replyToID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ServiceMock) EditMessage(ctx context.Context, messageID, body string) (models.Message, error) {
	args := m.Called(ctx, messageID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ServiceMock) DeleteMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ServiceMock) ToggleReaction(ctx context.Context, messageID, emoji string) (models.Message, error) {
	args := m.Called(ctx, messageID, emoji)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ServiceMock) Profile(ctx context.Context, participantID string) (models.Profile, error) {
	args := m.Called(ctx, participantID)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ServiceMock) HireSummary(ctx context.Context, conversationID string) (models.HireSummary, error) {
	args := m.Called(ctx, conversationID)
	var summary models.HireSummary
	if val := args.Get(0); val != nil {
		summary = val.(models.HireSummary)
	}
	return summary, args.Error(1)
}

var _ api.Service = (*ServiceMock)(nil)
