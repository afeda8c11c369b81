package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/kumagoya/kumagoya/internal/theme"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HighlightCode formats code with chroma. An empty or unknown language uses the plaintext lexer.
func HighlightCode(code, language, highlightTheme string) (string, error) {
	lexer := lexers.Get(language)
	if language == "" || lexer == nil {
		lexer = lexers.Get("plaintext")
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	if err := theme.GetFormatter().Format(&buf, styles.Get(highlightTheme), iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Highlight replaces every <pre><code class="language-xxx"> block in content with chroma output.
func Highlight(content, highlightTheme string) string {
	if !strings.Contains(content, "<pre") {
		return content
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		renderLogger.Error().Err(err).Msg("Error parsing content for highlighting")
		return content
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	replaceCodeBlocks(body, highlightTheme)

	var buf strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			renderLogger.Error().Err(err).Msg("Error rendering highlighted content")
			return content
		}
	}
	return buf.String()
}

func replaceCodeBlocks(n *html.Node, highlightTheme string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.DataAtom == atom.Pre {
			if code := firstElementChild(c); code != nil && code.DataAtom == atom.Code {
				highlighted, err := HighlightCode(textContent(code), codeLanguage(code), highlightTheme)
				if err != nil {
					renderLogger.Warn().Err(err).Msg("Error highlighting code block")
				} else {
					n.InsertBefore(&html.Node{Type: html.RawNode, Data: highlighted}, c)
					n.RemoveChild(c)
				}
			}
		} else {
			replaceCodeBlocks(c, highlightTheme)
		}
		c = next
	}
}

func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func codeLanguage(code *html.Node) string {
	for _, attr := range code.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(attr.Val) {
			if m := languageClass.FindStringSubmatch(class); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
