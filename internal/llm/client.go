package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Credentials are the per-request connection parameters for the model endpoint.
// The API key is never stored; callers pass it with every invocation.
type Credentials struct {
	Endpoint   string // e.g. https://myresource.openai.azure.com
	APIKey     string
	Deployment string // deployment / model name
}

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries the sampling parameters for one completion call.
type ChatRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int // 0 = no cap
}

// ChatClient is the interface the extractor and narrative synthesizer depend on.
type ChatClient interface {
	Complete(ctx context.Context, creds Credentials, req ChatRequest) (string, error)
}

// Config for the Azure OpenAI client.
type Config struct {
	APIVersion string        // default 2024-02-01
	Timeout    time.Duration // http client timeout
}

// AzureClient talks the Azure OpenAI chat/completions wire format.
type AzureClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewAzureClient(cfg Config, logger *slog.Logger) *AzureClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-02-01"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AzureClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Complete sends one chat-completion request and returns the first choice's content.
func (c *AzureClient) Complete(ctx context.Context, creds Credentials, req ChatRequest) (string, error) {
	if strings.TrimSpace(creds.Endpoint) == "" {
		return "", fmt.Errorf("llm endpoint is required")
	}
	if strings.TrimSpace(creds.Deployment) == "" {
		return "", fmt.Errorf("llm deployment is required")
	}

	start := time.Now()
	body := map[string]any{
		"messages":    req.Messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	url := strings.TrimRight(creds.Endpoint, "/") +
		"/openai/deployments/" + creds.Deployment +
		"/chat/completions?api-version=" + c.cfg.APIVersion

	headers := map[string]string{"api-key": creds.APIKey}
	raw, status, err := SendJSON(ctx, c.http, url, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"deployment", creds.Deployment,
			"status", status,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices", "raw_bytes", len(raw))
		return "", fmt.Errorf("no choices in chat response")
	}

	content := cc.Choices[0].Message.Content
	c.logger.Info("llm.complete.ok",
		"deployment", creds.Deployment,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
