package editor

import (
	"time"

	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/storage"
	"github.com/patrickmn/go-cache"
)

type Options struct {
	AutosaveDelay time.Duration
	// SessionIdle is how long an untouched session is kept before it is closed.
	SessionIdle time.Duration

	Backend  Backend
	Images   storage.ImageStore
	Observer Observer
}

// Manager owns the open sessions, at most one per user and editing target.
type Manager struct {
	opts     Options
	sessions *cache.Cache
}

func NewManager(opts Options) *Manager {
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = time.Second
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = 30 * time.Minute
	}

	sessions := cache.New(opts.SessionIdle, opts.SessionIdle/2)
	sessions.OnEvicted(func(key string, v any) {
		editorLogger.Debug().Str("session", key).Msg("Editor session evicted")
		v.(*Session).Close()
	})
	return &Manager{opts: opts, sessions: sessions}
}

func sessionKey(userID model.UserID, postID *model.PostID) string {
	if postID == nil {
		return string(userID) + ":new"
	}
	return string(userID) + ":" + postID.String()
}

// Open starts a session with the given content, closing any previous one for the same target.
func (m *Manager) Open(userID model.UserID, postID *model.PostID, title, content string, markdown bool) *Session {
	key := sessionKey(userID, postID)
	m.sessions.Delete(key)

	s := newSession(userID, postID, title, content, m.opts)
	s.markdown = markdown
	m.sessions.SetDefault(key, s)

	editorLogger.Debug().Str("session", key).Msg("Editor session opened")
	return s
}

// Get returns the open session and extends its idle expiry.
func (m *Manager) Get(userID model.UserID, postID *model.PostID) (*Session, bool) {
	key := sessionKey(userID, postID)
	v, ok := m.sessions.Get(key)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	if s.State() == Closed {
		m.sessions.Delete(key)
		return nil, false
	}
	m.sessions.SetDefault(key, s)
	return s, true
}

// Remove closes and forgets the session.
func (m *Manager) Remove(userID model.UserID, postID *model.PostID) {
	m.sessions.Delete(sessionKey(userID, postID))
}

func (m *Manager) Len() int {
	return m.sessions.ItemCount()
}
