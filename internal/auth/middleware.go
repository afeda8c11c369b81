package auth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"filippo.io/csrf/gorilla"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/repository"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// LoadUser puts the signed-in user, with its admin flag, into the request context. It must
// run inside the session manager's LoadAndSave.
func (s *Service) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.SessionUserID(r.Context())
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.users.GetUser(r.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			s.sessions.Remove(r.Context(), config.SessionKeyUserID)
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("user_id", string(id)).Msg("Error loading user")
			http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
			return
		}

		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user_id", string(user.ID))
		})
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireUser redirects anonymous page requests to the login page and rejects anonymous
// API requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login?redirect="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !UserFromContext(r.Context()).IsAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// CSRF rejects cross-origin state-changing requests using Fetch metadata.
func CSRF(key []byte, trustedOrigins []string) func(http.Handler) http.Handler {
	opts := []csrf.Option{csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler))}
	if len(trustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(trustedOrigins))
	}
	return csrf.Protect(key, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	hlog.FromRequest(r).Warn().
		Str("reason", reason).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("origin", r.Header.Get("Origin")).
		Str("sec_fetch_site", r.Header.Get("Sec-Fetch-Site")).
		Msg("CSRF validation failed")
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
