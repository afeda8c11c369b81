// Package render sanitizes post HTML, highlights code blocks and converts markdown input.
package render

import (
	"html/template"
	"sync"

	"github.com/kumagoya/kumagoya/internal/cache"
	"github.com/rs/zerolog"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

// Render sanitizes content and highlights its code blocks for the given syntax theme.
func Render(content, highlightTheme string) template.HTML {
	return template.HTML(Highlight(Sanitize(content), highlightTheme))
}

// Mutex to protect the check-render-set operation in RenderCached
var renderCacheMutex sync.Mutex

func RenderCached(content, contentHash, highlightTheme string) template.HTML {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return Render(content, highlightTheme)
	}

	if cached, found := cache.GetRendered(contentHash, highlightTheme); found {
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache hit for rendered post")
		return cached
	}

	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	if cached, found := cache.GetRendered(contentHash, highlightTheme); found {
		return cached
	}

	renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered post")
	out := Render(content, highlightTheme)
	cache.SetRendered(contentHash, highlightTheme, out)
	return out
}

// WarmCache renders content in the background so the first reader gets a cache hit.
func WarmCache(content, contentHash, highlightTheme string) {
	go func() {
		RenderCached(content, contentHash, highlightTheme)
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache warming completed")
	}()
}
