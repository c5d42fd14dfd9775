package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	logx "senseibot/pkg/logx"
)

// DefaultSystemPrompt is used when no prompt file is configured or the
// configured file cannot be read.
const DefaultSystemPrompt = `You are a helpful teaching assistant for an AI learning community.
Answer questions about machine learning, deep learning, and related topics
clearly and concisely. Wrap your final answer in <llm-response></llm-response> tags.`

// FriendlyError is what chat users see when the model call fails.
const FriendlyError = "Sorry, I couldn't reach the model right now. Please try again in a moment."

var responseTag = regexp.MustCompile(`(?s)<llm-response>(.*?)</llm-response>`)

type Config struct {
	BaseURL          string
	APIKey           string
	Model            string
	SystemPromptPath string
	RetryMax         uint
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient   *resty.Client
	model        string
	systemPrompt string
	retryMax     uint
	log          logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	client := resty.New()
	client.SetBaseURL(base)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	if log.IsZero() {
		log = logx.Nop()
	}

	prompt := DefaultSystemPrompt
	if p := strings.TrimSpace(cfg.SystemPromptPath); p != "" {
		if b, err := os.ReadFile(p); err == nil && len(strings.TrimSpace(string(b))) > 0 {
			prompt = string(b)
		} else if err != nil {
			log.Warn("system prompt file unreadable, using built-in", logx.String("path", p), logx.Err(err))
		}
	}

	return &Client{
		httpClient:   client,
		model:        cfg.Model,
		systemPrompt: prompt,
		retryMax:     cfg.RetryMax,
		log:          log,
	}
}

func (c *Client) Close() error {
	return c.httpClient.Close()
}

func (c *Client) Model() string { return c.model }

type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Ask sends a user question and returns the extracted answer with a model
// footer. Transport or API failures surface as an error; callers render
// FriendlyError to the chat.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	var resp ChatCompletionResponse
	if err := retry.Do(
		func() error {
			r, err := c.complete(ctx, question)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retryMax+1),
		retry.DelayType(retry.BackOffDelay),
	); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	answer := extractResponse(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("blank completion content")
	}
	return answer + "\n\n— " + c.model, nil
}

func (c *Client) complete(ctx context.Context, question string) (ChatCompletionResponse, error) {
	body := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: RoleSystem, Content: c.systemPrompt},
			{Role: RoleUser, Content: question},
		},
	}

	var result ChatCompletionResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if resp.IsError() {
		return ChatCompletionResponse{}, fmt.Errorf("response error %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

// extractResponse pulls the content of the first <llm-response> block, or
// the whole trimmed content when the model omitted the tags.
func extractResponse(content string) string {
	if m := responseTag.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// isRetryableError reports whether an error is worth another attempt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if strings.Contains(s, "connection refused") || strings.Contains(s, "i/o timeout") {
		return true
	}
	// Server errors and rate limiting.
	if strings.Contains(s, "response error 5") {
		return true
	}
	if strings.Contains(s, "response error 429") {
		return true
	}
	return false
}
