package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"inbox-engine/internal/models"
	"inbox-engine/internal/observability"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("operation forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Service is the REST surface the engine consumes. Implemented by *Client and
// by the testify mock in internal/mocks.
type Service interface {
	ListConversations(ctx context.Context, offset, limit int) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, body, replyToID string) (models.Message, error)
	EditMessage(ctx context.Context, messageID, body string) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) (models.Message, error)
	ToggleReaction(ctx context.Context, messageID, emoji string) (models.Message, error)
	Profile(ctx context.Context, participantID string) (models.Profile, error)
	HireSummary(ctx context.Context, conversationID string) (models.HireSummary, error)
}

// Client is the authenticated JSON client for the conversations API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	tracer  trace.Tracer
}

// NewClient builds a Client against the given base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		tracer:  otel.Tracer("inbox-engine/api"),
	}
}

// ListConversations fetches one page of the conversation list.
func (c *Client) ListConversations(ctx context.Context, offset, limit int) ([]models.Conversation, error) {
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	path := "/conversations?" + pageQuery(offset, limit)
	if err := c.do(ctx, "list_conversations", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// ListMessages fetches one page of a conversation's messages.
func (c *Client) ListMessages(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages?" + pageQuery(offset, limit)
	if err := c.do(ctx, "list_messages", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Messages {
		resp.Messages[i] = resp.Messages[i].WithDerivedStatus()
	}
	return resp.Messages, nil
}

// SendMessage creates a message, optionally as a reply.
func (c *Client) SendMessage(ctx context.Context, conversationID, body, replyToID string) (models.Message, error) {
	req := struct {
		Body      string `json:"body"`
		ReplyToID string `json:"reply_to_id,omitempty"`
	}{Body: body, ReplyToID: replyToID}

	var msg models.Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, "send_message", http.MethodPost, path, req, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// EditMessage replaces a message body. The server stamps edited_at.
func (c *Client) EditMessage(ctx context.Context, messageID, body string) (models.Message, error) {
	req := struct {
		Body string `json:"body"`
	}{Body: body}

	var msg models.Message
	path := "/messages/" + url.PathEscape(messageID)
	if err := c.do(ctx, "edit_message", http.MethodPatch, path, req, &msg); err != nil {
		return models.Message{}, err
	}
	return msg.WithDerivedStatus(), nil
}

// DeleteMessage soft-deletes a message and returns the deleted record.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	path := "/messages/" + url.PathEscape(messageID)
	if err := c.do(ctx, "delete_message", http.MethodDelete, path, nil, &msg); err != nil {
		return models.Message{}, err
	}
	return msg.WithDerivedStatus(), nil
}

// ToggleReaction requests a reaction toggle; the server adds or removes the
// caller's emoji and returns the updated message.
func (c *Client) ToggleReaction(ctx context.Context, messageID, emoji string) (models.Message, error) {
	req := struct {
		Emoji string `json:"emoji"`
	}{Emoji: emoji}

	var msg models.Message
	path := "/messages/" + url.PathEscape(messageID) + "/reactions"
	if err := c.do(ctx, "toggle_reaction", http.MethodPost, path, req, &msg); err != nil {
		return models.Message{}, err
	}
	return msg.WithDerivedStatus(), nil
}

// Profile looks up display info for a participant.
func (c *Client) Profile(ctx context.Context, participantID string) (models.Profile, error) {
	var profile models.Profile
	path := "/participants/" + url.PathEscape(participantID) + "/profile"
	if err := c.do(ctx, "profile", http.MethodGet, path, nil, &profile); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// HireSummary fetches the hire-request banner summary for a conversation.
func (c *Client) HireSummary(ctx context.Context, conversationID string) (models.HireSummary, error) {
	var summary models.HireSummary
	path := "/conversations/" + url.PathEscape(conversationID) + "/hire-summary"
	if err := c.do(ctx, "hire_summary", http.MethodGet, path, nil, &summary); err != nil {
		return models.HireSummary{}, err
	}
	return summary, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "api."+operation)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveAPIRequest(operation, "error", time.Since(start))
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		observability.ObserveAPIRequest(operation, strconv.Itoa(resp.StatusCode), time.Since(start))
		return fmt.Errorf("%s: %w", operation, err)
	}
	observability.ObserveAPIRequest(operation, "ok", time.Since(start))

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}

func pageQuery(offset, limit int) string {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return q.Encode()
}

var _ Service = (*Client)(nil)
