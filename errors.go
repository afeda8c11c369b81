package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kumagoya/kumagoya/internal/auth"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/rs/zerolog/hlog"
)

type errorPage struct {
	*model.PageData
	Status  int
	Message string
}

func userFrom(r *http.Request) *model.User {
	return auth.UserFromContext(r.Context())
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	if isAPI(r) {
		writeJSON(w, status, map[string]string{"error": message})
		return
	}
	app.render(w, r, status, config.TemplateError, errorPage{
		PageData: app.pageData(r, message),
		Status:   status,
		Message:  message,
	})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Internal server error")
	app.errorResponse(w, r, http.StatusInternalServerError, config.ErrPageFailed)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, config.ErrPageNotFound)
}

func (app *application) postNotFound(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, config.ErrPostNotFound)
}

func (app *application) forbidden(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusForbidden, http.StatusText(http.StatusForbidden))
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusBadRequest, message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
