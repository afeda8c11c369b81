package main

import (
	"io/fs"
	"net/http"
	"net/url"

	"github.com/kumagoya/kumagoya/internal/auth"
	"github.com/kumagoya/kumagoya/internal/cache"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/logger"
	"github.com/kumagoya/kumagoya/internal/routes"
	"github.com/kumagoya/kumagoya/internal/util"
)

func (app *application) routes() http.Handler {
	static, err := fs.Sub(app.content, config.StaticLocalDir)
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Static directory missing from embedded content")
	}
	fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return err
		}
		cache.SetStaticHash(config.StaticUrlPath+path, util.ContentHash(data))
		return nil
	})

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+routes.RobotsPath, serveRobots)
	mux.HandleFunc("GET "+routes.HealthPath, app.healthcheckHandler)
	mux.Handle("GET "+config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(static))))
	if app.uploads != nil {
		mux.Handle("GET "+config.UploadsUrlPath, app.uploads)
	}

	mux.HandleFunc("POST "+routes.ThemeToggle, app.themeToggleHandler)
	mux.HandleFunc("POST "+routes.SyntaxThemeSet, app.syntaxThemeSetHandler)
	mux.HandleFunc("GET "+routes.SyntaxThemeGet, app.syntaxThemeGetHandler)
	mux.HandleFunc("GET "+routes.OGImage, app.ogImageHandler)

	mux.HandleFunc("GET /{$}", app.indexHandler)
	mux.HandleFunc("GET "+routes.PostsPath, app.indexHandler)
	mux.HandleFunc("GET "+routes.PostPath, app.postHandler)

	mux.Handle("GET "+routes.NewPost, auth.RequireUser(http.HandlerFunc(app.newPostHandler)))
	mux.Handle("POST "+routes.PostsPath, auth.RequireUser(http.HandlerFunc(app.createPostHandler)))
	mux.Handle("GET "+routes.EditPost, auth.RequireUser(http.HandlerFunc(app.editPostHandler)))
	mux.Handle("POST "+routes.PostPath, auth.RequireUser(http.HandlerFunc(app.updatePostHandler)))
	mux.Handle("GET "+routes.DeletePost, auth.RequireUser(http.HandlerFunc(app.confirmDeleteHandler)))
	mux.Handle("POST "+routes.DeletePost, auth.RequireUser(http.HandlerFunc(app.deletePostHandler)))

	mux.Handle("GET "+routes.DraftsPath, auth.RequireUser(http.HandlerFunc(app.draftsHandler)))
	mux.Handle("POST "+routes.DeleteDraft, auth.RequireUser(http.HandlerFunc(app.deleteDraftHandler)))

	mux.Handle("POST "+routes.EditorChanges, auth.RequireUser(http.HandlerFunc(app.editorChangesHandler)))
	mux.Handle("POST "+routes.EditorDraft, auth.RequireUser(http.HandlerFunc(app.editorDraftHandler)))
	mux.Handle("POST "+routes.EditorLeave, auth.RequireUser(http.HandlerFunc(app.editorLeaveHandler)))
	mux.Handle("POST "+routes.EditorImages, auth.RequireUser(http.HandlerFunc(app.editorImagesHandler)))
	mux.Handle("GET "+routes.EditorEvents, auth.RequireUser(http.HandlerFunc(app.editorEventsHandler)))

	if err := auth.RegisterRoutes(mux, app.auth, app.content); err != nil {
		app.logger.Fatal().Err(err).Msg("Failed to register auth routes")
	}

	mux.HandleFunc("/", app.notFound)

	var h http.Handler = mux
	h = app.auth.LoadUser(h)
	h = auth.CSRF([]byte(app.cfg.Auth.CSRFKey), trustedOrigins(app.cfg.Site.BaseURL))(h)
	h = app.sessions.LoadAndSave(h)
	h = compress(h)
	h = cacheIt(h)
	h = secureHeaders(h)
	h = app.recoverPanic(h)
	h = logger.Middleware(app.logger)(h)
	return h
}

// trustedOrigins is the host of the public base URL; the CSRF check wants hosts, not URLs.
func trustedOrigins(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

func serveRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, config.CTypePlain)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User-agent: *\nDisallow: /api/\nDisallow: /drafts\n"))
}
