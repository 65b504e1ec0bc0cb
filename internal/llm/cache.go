package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog/log"

	"github.com/raine/telegram-tryon-bot/internal/storage"
)

// VisionCache is the part of the store the cached analyzer needs.
type VisionCache interface {
	GetVisionCache(imageHash string) (*storage.VisionCacheEntry, error)
	SetVisionCache(imageHash string, entry *storage.VisionCacheEntry) error
}

// CachedAnalyzer wraps an Analyzer with SQLite caching of product suggestions.
type CachedAnalyzer struct {
	inner Analyzer
	store VisionCache
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, store VisionCache) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

func hashImage(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SuggestProduct implements the Analyzer interface with caching.
func (c *CachedAnalyzer) SuggestProduct(ctx context.Context, imageData []byte, mimeType string) (*SuggestionResult, error) {
	hash := hashImage(imageData)

	if c.store != nil {
		cached, err := c.store.GetVisionCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			log.Debug().Str("hash", hash[:16]).Msg("vision cache hit")
			return &SuggestionResult{
				Suggestion: &ProductSuggestion{
					Name:        cached.Name,
					Brand:       cached.Brand,
					Description: cached.Description,
				},
			}, nil
		}
	}

	result, err := c.inner.SuggestProduct(ctx, imageData, mimeType)
	if err != nil {
		return nil, err
	}

	if c.store != nil && result.Suggestion != nil {
		entry := &storage.VisionCacheEntry{
			Name:        result.Suggestion.Name,
			Brand:       result.Suggestion.Brand,
			Description: result.Suggestion.Description,
		}
		if err := c.store.SetVisionCache(hash, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		}
	}

	return result, nil
}

// SuggestVideoPrompt is passed through uncached.
func (c *CachedAnalyzer) SuggestVideoPrompt(ctx context.Context, name, brand string) (string, error) {
	return c.inner.SuggestVideoPrompt(ctx, name, brand)
}
