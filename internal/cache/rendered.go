package cache

import "html/template"

var renderedCache = NewCache[string, template.HTML]()

func renderedKey(contentHash, syntaxTheme string) string {
	return contentHash + ":" + syntaxTheme
}

func GetRendered(contentHash, syntaxTheme string) (template.HTML, bool) {
	return renderedCache.Get(renderedKey(contentHash, syntaxTheme))
}

func SetRendered(contentHash, syntaxTheme string, html template.HTML) {
	renderedCache.Set(renderedKey(contentHash, syntaxTheme), html)
}

func ClearRendered() {
	renderedCache.Clear()
}
