package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// GroqClient implements Generator against Groq's OpenAI-compatible chat
// completions endpoint.
type GroqClient struct {
	endpoint string
	model    string
	apiKey   string
	client   *resty.Client
}

var _ Generator = (*GroqClient)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGroqClient creates a new Groq client. The timeout bounds every
// completion call.
func NewGroqClient(endpoint, model, apiKey string, timeout time.Duration) *GroqClient {
	return &GroqClient{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		client:   resty.New().SetTimeout(timeout),
	}
}

func (g *GroqClient) IsEnabled() bool {
	return g.apiKey != "" && g.endpoint != "" && g.model != ""
}

// Generate sends one user prompt and returns the completion text.
func (g *GroqClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if !g.IsEnabled() {
		return "", &UnavailableError{Reason: "missing credentials"}
	}

	body := chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(g.endpoint)

	if err != nil {
		return "", &UnavailableError{Reason: "request failed", Err: err}
	}

	if resp.StatusCode() >= 400 {
		logrus.Debugf("Groq returned status %d: %s", resp.StatusCode(), resp.String())
		return "", &UnavailableError{Reason: resp.Status()}
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", &UnavailableError{Reason: "malformed response", Err: err}
	}
	if parsed.Error != nil {
		return "", &UnavailableError{Reason: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", &UnavailableError{Reason: "empty completion"}
	}

	return parsed.Choices[0].Message.Content, nil
}
