package auth

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/db"
)

// NewSessionManager creates the session manager backed by the sessions table of d.
func NewSessionManager(d db.DB, lifetime time.Duration, isDev bool) *scs.SessionManager {
	sm := scs.New()

	switch d.Dialect() {
	case db.DialectPostgres:
		sm.Store = NewSQLStore(d, 5*time.Minute)
	default:
		sm.Store = sqlite3store.New(d.Get())
	}

	sm.Lifetime = lifetime
	sm.Cookie.Name = config.CookieSession
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	sm.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		authLogger.Error().Err(err).Str("path", r.URL.Path).Msg("Session error")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}

	return sm
}
