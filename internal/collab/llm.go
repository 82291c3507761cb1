package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LLM client chat completion theo API dạng OpenAI
type LLM struct {
	client *Client
	model  string
}

// NewLLM tạo LLM client với model mặc định
func NewLLM(client *Client, model string) *LLM {
	return &LLM{client: client, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Text trả về nội dung text của câu trả lời
func (l *LLM) Text(ctx context.Context, system, prompt string) (string, error) {
	return l.complete(ctx, system, prompt, false)
}

// JSON yêu cầu câu trả lời là một JSON object và decode vào out
func (l *LLM) JSON(ctx context.Context, system, prompt string, out interface{}) error {
	content, err := l.complete(ctx, system, prompt, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), out); err != nil {
		return fmt.Errorf("LLM returned invalid JSON: %w", err)
	}
	return nil
}

func (l *LLM) complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	req := chatRequest{Model: l.model}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})
	if jsonMode {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}

	var resp chatResponse
	if err := l.client.DoJSON(ctx, "POST", "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Một số model vẫn bọc JSON trong ```json ... ```
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
