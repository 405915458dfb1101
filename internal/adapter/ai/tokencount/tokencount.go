// Package tokencount provides approximate token counting for model calls.
//
// It uses tiktoken-go to estimate prompt size before a request is sent,
// so oversized prompts are refused locally instead of burning a call.
// Claude tokenization differs from tiktoken's but cl100k_base is close
// enough for budget enforcement.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	key := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[key]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[key]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(key)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[key] = enc
	return enc, nil
}

// normalizeModelName maps provider model IDs to tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		model = parts[len(parts)-1]
	}
	// Claude models approximate well with the GPT-4 / cl100k_base encoding.
	if strings.Contains(model, "claude") {
		return "gpt-4"
	}
	return model
}

// CountTokens counts tokens in a text string for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountChatTokens estimates tokens for a system+user chat request,
// including per-message overhead.
func (c *Counter) CountChatTokens(systemPrompt, userPrompt, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	const tokensPerMessage = 4 // role + structural overhead
	n := 0
	for _, part := range []string{systemPrompt, userPrompt} {
		n += tokensPerMessage
		n += len(enc.Encode(part, nil, nil))
	}
	return n, nil
}
