package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SystemPrompt frames every remote conversation.
const SystemPrompt = "你是一个专业的经济分析师，擅长分析汇率和购买力平价理论。"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *chatMessage `json:"message"`
	} `json:"choices"`
}

// ChatClient sends prompts to an OpenAI-compatible chat-completions
// endpoint. It makes exactly one attempt per request.
type ChatClient struct {
	client *resty.Client
	cfg    Config
	logger *zap.Logger
}

// NewChatClient builds a client for cfg.BaseURL. A zero cfg.Timeout leaves
// the transport default in place.
func NewChatClient(cfg Config, logger *zap.Logger) *ChatClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.WithDefaults()

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &ChatClient{client: client, cfg: cfg, logger: logger}
}

// Submit posts req.Prompt and returns the first choice's message content.
func (c *ChatClient) Submit(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrAuthentication)
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Stream:      false,
		Temperature: *c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		c.logger.Warn("chat request failed",
			zap.String("op", "insight.ChatClient.Submit"),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	c.logger.Debug("chat response received",
		zap.String("op", "insight.ChatClient.Submit"),
		zap.String("kind", string(req.Kind)),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "", fmt.Errorf("%w: endpoint returned %s", ErrAuthentication, resp.Status())
	case status < 200 || status > 299:
		return "", fmt.Errorf("%w: endpoint returned %s: %s", ErrUnexpectedResponse, resp.Status(), truncate(resp.String(), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("%w: invalid JSON body: %v", ErrUnexpectedResponse, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		return "", fmt.Errorf("%w: reply has no choices[0].message", ErrUnexpectedResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
