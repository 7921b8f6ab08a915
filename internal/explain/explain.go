// Package explain asks an OpenAI-compatible model for a short explanation
// of an answered question.
package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmpty is returned when the model produced no usable text.
var ErrEmpty = errors.New("empty explanation")

// Request describes the answered question to explain.
type Request struct {
	Topic         string
	Prompt        string
	Options       []string
	CorrectAnswer string
	Selected      string // empty when the student skipped or has not answered
	Rationale     string
	Lang          string // UI language code, e.g. "it"
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new explainer client. A zero timeout leaves the deadline to
// the caller's context.
func New(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

type response struct {
	Explanation string `json:"explanation"`
}

// Explain returns a short explanation of why the correct answer is right.
func (c *Client) Explain(ctx context.Context, req Request) (string, error) {
	systemPrompt, err := BuildPrompt(req)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Explain the answer."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return parseResponse(raw)
}

// parseResponse extracts the explanation from the model output. Models that
// ignore the JSON format get their plain text used as is.
func parseResponse(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var r response
	if err := json.Unmarshal([]byte(raw), &r); err == nil {
		raw = strings.TrimSpace(r.Explanation)
	} else if strings.HasPrefix(raw, "{") {
		return "", fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if raw == "" {
		return "", ErrEmpty
	}
	return raw, nil
}
