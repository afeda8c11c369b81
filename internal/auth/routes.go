package auth

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/util"
	"github.com/rs/zerolog"
)

type formPage struct {
	*model.PageData
	Email    string
	Redirect string
	Error    string
	Errors   map[string]string
}

type handlers struct {
	s      *Service
	login  *template.Template
	signup *template.Template
}

// RegisterRoutes registers the login, sign-up and logout pages. Templates are read from content.
func RegisterRoutes(mux *http.ServeMux, s *Service, content fs.FS) error {
	parse := func(page string) (*template.Template, error) {
		return template.ParseFS(content,
			config.TemplatesLocalDir+"/"+config.TemplateLayout,
			config.TemplatesLocalDir+"/"+page,
		)
	}

	login, err := parse(config.TemplateLogin)
	if err != nil {
		return err
	}
	signup, err := parse(config.TemplateSignup)
	if err != nil {
		return err
	}

	h := &handlers{s: s, login: login, signup: signup}
	mux.HandleFunc("GET /login", h.serveLogin)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("GET /signup", h.serveSignup)
	mux.HandleFunc("POST /signup", h.handleSignup)
	mux.HandleFunc("POST /logout", h.handleLogout)
	mux.HandleFunc("GET /logout", h.handleLogout)
	return nil
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, status int, data formPage) {
	l := zerolog.Ctx(r.Context())

	data.PageData = model.NewPageData(r, UserFromContext(r.Context()))
	data.Flash = h.s.PopFlash(r.Context())
	if data.Redirect == "" {
		data.Redirect = util.SafeRedirect(r.URL.Query().Get("redirect"), "/")
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		l.Error().Err(err).Msg("Failed to render auth template")
	}
}

func (h *handlers) serveLogin(w http.ResponseWriter, r *http.Request) {
	page := formPage{}
	h.render(w, r, h.login, http.StatusOK, page)
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	redirect := util.SafeRedirect(r.PostFormValue("redirect"), "/")

	_, err := h.s.SignIn(r.Context(), ClientIP(r), email, r.PostFormValue("password"))
	switch {
	case err == nil:
		http.Redirect(w, r, redirect, http.StatusSeeOther)
	case errors.Is(err, ErrTooManyRequests):
		h.render(w, r, h.login, http.StatusTooManyRequests, formPage{Email: email, Redirect: redirect, Error: config.ErrTooManyRequest})
	case errors.Is(err, ErrInvalidCredentials):
		h.render(w, r, h.login, http.StatusUnauthorized, formPage{Email: email, Redirect: redirect, Error: "メールアドレスまたはパスワードが違います"})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Sign in failed")
		h.render(w, r, h.login, http.StatusInternalServerError, formPage{Email: email, Redirect: redirect, Error: config.ErrPageFailed})
	}
}

func (h *handlers) serveSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.signup, http.StatusOK, formPage{})
}

func (h *handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	redirect := util.SafeRedirect(r.PostFormValue("redirect"), "/")

	_, err := h.s.SignUp(r.Context(), ClientIP(r), email, r.PostFormValue("password"))

	var formErr *FormError
	switch {
	case err == nil:
		h.s.Flash(r.Context(), "ようこそ！")
		http.Redirect(w, r, redirect, http.StatusSeeOther)
	case errors.Is(err, ErrTooManyRequests):
		h.render(w, r, h.signup, http.StatusTooManyRequests, formPage{Email: email, Redirect: redirect, Error: config.ErrTooManyRequest})
	case errors.Is(err, ErrEmailTaken):
		h.render(w, r, h.signup, http.StatusUnprocessableEntity, formPage{Email: email, Redirect: redirect, Errors: map[string]string{"email": "このメールアドレスは登録済みです"}})
	case errors.As(err, &formErr):
		h.render(w, r, h.signup, http.StatusUnprocessableEntity, formPage{Email: email, Redirect: redirect, Errors: formErr.Errors})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Sign up failed")
		h.render(w, r, h.signup, http.StatusInternalServerError, formPage{Email: email, Redirect: redirect, Error: config.ErrPageFailed})
	}
}

func (h *handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.s.SignOut(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Sign out failed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
