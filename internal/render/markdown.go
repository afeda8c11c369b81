package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownToHTML converts markdown written in the editor to HTML. Fenced code blocks become
// <pre><code class="language-xxx"> so Highlight treats them like code pasted as HTML.
// The result is not sanitized.
func MarkdownToHTML(md string) string {
	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank,
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				lang := ""
				if fields := strings.Fields(string(code.Info)); len(fields) > 0 {
					lang = fields[0]
				}
				if lang != "" && languageClass.MatchString("language-"+lang) {
					fmt.Fprintf(w, "<pre><code class=\"language-%s\">%s</code></pre>\n", lang, html.EscapeString(string(code.Literal)))
				} else {
					fmt.Fprintf(w, "<pre><code>%s</code></pre>\n", html.EscapeString(string(code.Literal)))
				}
				return ast.GoToNext, true
			}
			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock,
	).Parse(markdown.NormalizeNewlines([]byte(md)))

	return string(markdown.Render(doc, md_html.NewRenderer(opts)))
}
