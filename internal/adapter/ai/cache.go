package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/01382253386/ai-hr-decision-platform/internal/adapter/observability"
	"github.com/01382253386/ai-hr-decision-platform/internal/domain"
)

// CachedClient wraps a model client with a read-through response cache for
// ChatJSON calls. The prompts for problem analysis and bias detection are
// deterministic functions of their input, so identical requests can reuse
// the cleaned response. Complete calls are never cached: decision prompts
// are expected to be reviewed fresh.
type CachedClient struct {
	inner domain.AIClient
	cache domain.ResponseCache
	ttl   time.Duration
}

// NewCachedClient wraps inner with the given cache. A nil cache disables
// caching and returns inner unchanged behavior.
func NewCachedClient(inner domain.AIClient, cache domain.ResponseCache, ttl time.Duration) *CachedClient {
	return &CachedClient{inner: inner, cache: cache, ttl: ttl}
}

// ChatJSON returns a cached response when one exists for the exact prompt
// pair, otherwise forwards to the inner client and stores the result.
func (c *CachedClient) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if c.cache == nil {
		return c.inner.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
	}
	key := cacheKey(systemPrompt, userPrompt)
	if v, ok, err := c.cache.Get(ctx, key); err != nil {
		observability.AICacheHitsTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "response cache get failed", slog.Any("error", err))
	} else if ok {
		observability.AICacheHitsTotal.WithLabelValues("hit").Inc()
		return v, nil
	} else {
		observability.AICacheHitsTotal.WithLabelValues("miss").Inc()
	}

	out, err := c.inner.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, key, out, c.ttl); err != nil {
		slog.WarnContext(ctx, "response cache set failed", slog.Any("error", err))
	}
	return out, nil
}

// Complete forwards without caching.
func (c *CachedClient) Complete(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.inner.Complete(ctx, systemPrompt, userPrompt, maxTokens)
}

func cacheKey(systemPrompt, userPrompt string) string {
	h := sha256.New()
	h.Write([]byte(systemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(userPrompt))
	return "airesp:" + hex.EncodeToString(h.Sum(nil))
}
