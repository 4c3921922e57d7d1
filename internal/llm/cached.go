package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/fe-devtools/devflow/internal/cache"
	"github.com/fe-devtools/devflow/internal/config"
	"github.com/fe-devtools/devflow/internal/httpclient"
	"github.com/fe-devtools/devflow/internal/logger"
)

var _ Completer = (*CachedCompleter)(nil)

// CachedCompleter answers repeated identical requests from the on-disk cache.
type CachedCompleter struct {
	next  Completer
	cache *cache.Cache
	model string
}

func NewCachedCompleter(next Completer, c *cache.Cache, model string) *CachedCompleter {
	return &CachedCompleter{next: next, cache: c, model: model}
}

func (c *CachedCompleter) Complete(ctx context.Context, req Request) (string, error) {
	key := cache.Key(c.model, fmt.Sprintf("%.3f", req.Temperature), req.System, req.User)

	var cached string
	if found, err := c.cache.Get(key, &cached); err != nil {
		logger.Warn(ctx, "llm cache read failed", "error", err)
	} else if found {
		logger.Debug(ctx, "llm cache hit", "key", key[:12])
		return cached, nil
	}

	content, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(key, content); err != nil {
		logger.Warn(ctx, "llm cache write failed", "error", err)
	}
	return content, nil
}

// NewCompleter builds the configured provider wrapped with the response cache.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}

	var base Completer
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model)
		if err != nil {
			return nil, err
		}
		base = g
	default:
		base = NewChatClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, httpclient.New(0))
	}

	if cfg.LLM.CacheTTLHours <= 0 {
		return base, nil
	}
	c, err := cache.NewCache(cfg.CacheDir(), time.Duration(cfg.LLM.CacheTTLHours)*time.Hour)
	if err != nil {
		logger.Warn(ctx, "llm cache disabled", "error", err)
		return base, nil
	}
	return NewCachedCompleter(base, c, cfg.LLM.Provider+"/"+cfg.LLM.Model), nil
}
