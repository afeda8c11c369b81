package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/render"
	"github.com/kumagoya/kumagoya/internal/routes"
	"github.com/rs/zerolog"
)

// Pages rendered by package main. The login and sign-up pages belong to the auth package.
var pages = []string{
	config.TemplateIndex,
	config.TemplatePost,
	config.TemplateEditor,
	config.TemplateDelete,
	config.TemplateDrafts,
	config.TemplateError,
}

// TweetURL builds the share link for a post.
func TweetURL(title, siteName, baseURL string, id model.PostID) string {
	q := url.Values{
		"text": {title + " | " + siteName},
		"url":  {strings.TrimSuffix(baseURL, "/") + routes.PostURL(id)},
	}
	return "https://twitter.com/intent/tweet?" + q.Encode()
}

func templateFuncs(cfg *config.Config) template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			return t.Local().Format(cfg.Content.DateFormat)
		},
		"isoDate": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
		"excerpt": func(content string) string {
			return render.Excerpt(content, cfg.Content.ExcerptRunes)
		},
		"pageURL":   routes.PageURL,
		"postURL":   routes.PostURL,
		"editURL":   routes.EditURL,
		"deleteURL": routes.DeleteURL,
		"tweetURL": func(title string, id model.PostID) string {
			return TweetURL(title, cfg.Site.Name, cfg.Site.BaseURL, id)
		},
	}
}

func newTemplateCache(content fs.FS, cfg *config.Config) (map[string]*template.Template, error) {
	funcs := templateFuncs(cfg)
	cache := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(config.TemplateLayout).Funcs(funcs).ParseFS(content,
			config.TemplatesLocalDir+"/"+config.TemplateLayout,
			config.TemplatesLocalDir+"/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("error parsing template %s: %w", page, err)
		}
		cache[page] = tmpl
	}
	return cache, nil
}

// render executes page into a buffer first so a template failure still yields a clean 500.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := app.templates[page]
	if !ok {
		app.serverError(w, r, fmt.Errorf("template %s does not exist", page))
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, config.TemplateLayout, data); err != nil {
		if page == config.TemplateError {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render error page")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}
		app.serverError(w, r, fmt.Errorf("error rendering %s: %w", page, err))
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// pageData collects the layout fields for r, including the signed-in user and a pending flash.
func (app *application) pageData(r *http.Request, title string) *model.PageData {
	pd := model.NewPageData(r, userFrom(r))
	if title != "" {
		pd.Title = title
	}
	pd.OGImage = strings.TrimSuffix(app.cfg.Site.BaseURL, "/") + routes.OGImageURL(title)
	pd.Flash = app.auth.PopFlash(r.Context())
	return pd
}
