package cache

import "html/template"

var (
	// Static file URL path to content hash, served as ETag.
	staticHashes = NewCache[string, string]()
	// Chroma style name to generated stylesheet.
	syntaxStyles = NewCache[string, template.CSS]()
)

func GetStaticHash(path string) (string, bool) {
	return staticHashes.Get(path)
}

func SetStaticHash(path, hash string) {
	staticHashes.Set(path, hash)
}

func GetSyntaxCSS(theme string) (template.CSS, bool) {
	return syntaxStyles.Get(theme)
}

func SetSyntaxCSS(theme string, css template.CSS) {
	syntaxStyles.Set(theme, css)
}
