package render

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var inlineTags = map[string]bool{"a": true, "strong": true, "em": true, "u": true, "s": true, "code": true}

// Excerpt returns the first n runes of the text in content, with whitespace collapsed.
func Excerpt(content string, n int) string {
	z := html.NewTokenizer(strings.NewReader(content))

	var sb strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				renderLogger.Debug().Err(z.Err()).Msg("Error tokenizing excerpt")
			}
			break
		}
		switch tt {
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if !inlineTags[string(name)] {
				sb.WriteByte(' ')
			}
		}
	}

	text := strings.Join(strings.Fields(sb.String()), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
