package main

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/alecthomas/chroma/v2/styles"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/og"
	"github.com/kumagoya/kumagoya/internal/routes"
	"github.com/kumagoya/kumagoya/internal/theme"
	"github.com/kumagoya/kumagoya/internal/util"
	"github.com/rs/zerolog"
)

const themeCookieAge = 365 * 24 * time.Hour

// back is the local page r came from, or the root.
func back(r *http.Request) string {
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" {
		if ref.Host == "" || ref.Host == r.Host {
			return util.SafeRedirect(ref.RequestURI(), routes.RootPath)
		}
	}
	return routes.RootPath
}

func (app *application) themeToggleHandler(w http.ResponseWriter, r *http.Request) {
	newTheme := theme.Opposite(theme.GetThemeFromRequest(r))

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieTheme,
		Value:    newTheme,
		Path:     "/",
		MaxAge:   int(themeCookieAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, back(r), http.StatusSeeOther)
}

func (app *application) syntaxThemeSetHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("syntax-theme-select")
	if name == "" || styles.Registry[name] == nil {
		app.badRequest(w, r, "unknown syntax theme")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSyntaxTheme,
		Value:    name,
		Path:     "/",
		MaxAge:   int(themeCookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, back(r), http.StatusSeeOther)
}

func (app *application) syntaxThemeGetHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("theme")
	if styles.Registry[name] == nil {
		app.notFound(w, r)
		return
	}

	css := []byte(theme.GenerateSyntaxCSS(name))
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HCacheControl, "public, max-age=86400")
	w.Header().Set(config.HETag, `"`+util.ContentHash(css)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(css)
}

func (app *application) ogImageHandler(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		title = app.cfg.Site.Name
	}

	img, err := og.Generate(title, app.cfg.Site.Name)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	w.Header().Set(config.HCType, config.CTypePNG)
	w.Header().Set(config.HCacheControl, "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "available", "database": "ok"}
	if err := app.db.Get().PingContext(ctx); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Database ping failed")
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
		body["database"] = "unreachable"
	}
	writeJSON(w, status, body)
}
