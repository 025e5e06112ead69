package analyzer

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Exchange is one cached prompt/response pair.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
}

// cachingProvider writes every exchange to disk before returning it.
// Cache failures are logged, never surfaced.
type cachingProvider struct {
	inner    Provider
	provider string
	model    string
	dir      string
}

func (c *cachingProvider) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	raw, err := c.inner.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if path, cacheErr := SaveExchange(c.dir, Exchange{
		Timestamp: time.Now(),
		Provider:  c.provider,
		Model:     c.model,
		Prompt:    prompt,
		Response:  string(raw),
	}); cacheErr != nil {
		log.Printf("Failed to cache LLM exchange: %v", cacheErr)
	} else {
		log.Printf("Cached LLM exchange to: %s", path)
	}
	return raw, nil
}

// SaveExchange serializes an exchange to JSON and writes it to a
// timestamped file under dataDir/llm. Returns the path written.
func SaveExchange(dataDir string, exchange Exchange) (string, error) {
	dir := filepath.Join(dataDir, "llm")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	// Dashes instead of colons for filesystem compatibility. The random
	// suffix keeps concurrent exchanges from clobbering each other.
	filename := exchange.Timestamp.Format("2006-01-02T15-04-05.000") +
		"-" + uuid.NewString()[:8] + ".json"
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
