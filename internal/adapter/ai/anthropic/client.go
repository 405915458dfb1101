// Package anthropic implements the model client against the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/ai/tokencount"
	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/config"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// Client implements domain.AIClient against the Anthropic Messages API.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a Client with an instrumented transport and sane timeouts.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		counter: tokencount.NewCounter(),
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ChatJSON sends a prompt expected to yield raw JSON and returns the text
// content of the first block. Cleaning/validation of the JSON is the
// caller's concern.
func (c *Client) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.send(ctx, "chat_json", systemPrompt, userPrompt, maxTokens)
}

// Complete sends a prompt expected to yield plain text.
func (c *Client) Complete(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.send(ctx, "complete", systemPrompt, userPrompt, maxTokens)
}

func (c *Client) send(ctx domain.Context, operation, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cfg.AnthropicAPIKey == "" {
		return "", fmt.Errorf("%w: ANTHROPIC_API_KEY missing", domain.ErrInvalidArgument)
	}
	if budget := c.cfg.PromptTokenBudget; budget > 0 {
		if n, err := c.counter.CountChatTokens(systemPrompt, userPrompt, c.cfg.AnthropicModel); err == nil && n > budget {
			return "", fmt.Errorf("%w: prompt is ~%d tokens, budget %d", domain.ErrInvalidArgument, n, budget)
		}
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.AnthropicModel,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("op=anthropic.send: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxIv, mult := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxIv
	expo.Multiplier = mult

	start := time.Now()
	var text string
	err = backoff.Retry(func() error {
		var attemptErr error
		text, attemptErr = c.doRequest(ctx, body)
		if attemptErr == nil {
			return nil
		}
		// Invalid requests never succeed on retry.
		if errors.Is(attemptErr, domain.ErrInvalidArgument) || errors.Is(attemptErr, domain.ErrSchemaInvalid) {
			return backoff.Permanent(attemptErr)
		}
		slog.WarnContext(ctx, "model request failed, retrying",
			slog.String("operation", operation),
			slog.Any("error", attemptErr))
		return attemptErr
	}, backoff.WithContext(expo, ctx))

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.AIRequestsTotal.WithLabelValues(operation, outcome).Inc()
	observability.AIRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("op=anthropic.%s: %w", operation, err)
	}
	return text, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AnthropicBaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.AnthropicAPIKey)
	req.Header.Set("anthropic-version", c.cfg.AnthropicVersion)

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode below
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status 429", domain.ErrUpstreamRateLimit)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return "", fmt.Errorf("%w: status %d", domain.ErrUpstreamTimeout, resp.StatusCode)
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("upstream status %d", resp.StatusCode)
	default:
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
			return "", fmt.Errorf("%w: %s (%s)", domain.ErrInvalidArgument, ae.Error.Message, ae.Error.Type)
		}
		return "", fmt.Errorf("%w: status %d", domain.ErrInvalidArgument, resp.StatusCode)
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrSchemaInvalid, err)
	}
	if len(mr.Content) == 0 || mr.Content[0].Text == "" {
		return "", fmt.Errorf("%w: empty content", domain.ErrSchemaInvalid)
	}
	slog.DebugContext(ctx, "model response received",
		slog.Int("input_tokens", mr.Usage.InputTokens),
		slog.Int("output_tokens", mr.Usage.OutputTokens),
		slog.String("stop_reason", mr.StopReason))
	return mr.Content[0].Text, nil
}
