package ai

import (
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// CleaningClient runs every ChatJSON response through the ResponseCleaner
// so callers always receive parseable JSON. Wrap the raw model client with
// this before caching, so only cleaned responses are stored.
type CleaningClient struct {
	inner   domain.AIClient
	cleaner *ResponseCleaner
}

// NewCleaningClient wraps inner with response cleaning.
func NewCleaningClient(inner domain.AIClient) *CleaningClient {
	return &CleaningClient{inner: inner, cleaner: NewResponseCleaner()}
}

// ChatJSON forwards to the inner client and cleans the response.
func (c *CleaningClient) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	out, err := c.inner.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
	if err != nil {
		return "", err
	}
	return c.cleaner.CleanJSONResponse(out)
}

// Complete forwards untouched; line-oriented responses are not JSON.
func (c *CleaningClient) Complete(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.inner.Complete(ctx, systemPrompt, userPrompt, maxTokens)
}
