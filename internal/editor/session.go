// Package editor tracks the state of each open editor: unsaved changes, debounced draft
// autosave, the leave guard and final submission.
package editor

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/storage"
	"github.com/rs/zerolog"
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

var ErrClosed = errors.New("editor session closed")

const saveTimeout = 10 * time.Second

type State int

const (
	Clean State = iota
	Dirty
	Saving
	Closed
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type LeaveResult int

const (
	Left LeaveResult = iota
	NeedsConfirm
)

// Backend persists drafts and posts. *service.PostService implements it.
type Backend interface {
	SaveDraft(ctx context.Context, userID model.UserID, title, content string) (*model.Draft, error)
	SubmitPost(ctx context.Context, userID model.UserID, postID *model.PostID, input model.PostInput) (*model.Post, error)
}

// Observer receives the state name of a session whenever it changes, and "error" when a
// save fails. It is called with the session lock held and must not block.
type Observer func(userID model.UserID, state string)

type Session struct {
	mu sync.Mutex

	userID model.UserID
	postID *model.PostID

	title    string
	content  string
	markdown bool

	state    State
	version  uint64
	inFlight bool
	idle     *sync.Cond
	timer    *time.Timer

	delay    time.Duration
	backend  Backend
	images   storage.ImageStore
	observer Observer
}

func newSession(userID model.UserID, postID *model.PostID, title, content string, opts Options) *Session {
	s := &Session{
		userID:   userID,
		postID:   postID,
		title:    title,
		content:  content,
		state:    Clean,
		delay:    opts.AutosaveDelay,
		backend:  opts.Backend,
		images:   opts.Images,
		observer: opts.Observer,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

func (s *Session) setState(state State) {
	s.state = state
	s.notify(state.String())
}

func (s *Session) notify(event string) {
	if s.observer != nil {
		s.observer(s.userID, event)
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current title and content.
func (s *Session) Snapshot() (title, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, s.content
}

func (s *Session) PostID() *model.PostID {
	return s.postID
}

// autosaves reports whether edits are saved as the user's draft. Persisted posts are not.
func (s *Session) autosaves() bool {
	return s.postID == nil
}

func (s *Session) Markdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markdown
}

func (s *Session) SetMarkdown(markdown bool) {
	s.mu.Lock()
	s.markdown = markdown
	s.mu.Unlock()
}

// Edit records new editor content and (re)starts the autosave timer.
func (s *Session) Edit(title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return ErrClosed
	}
	s.apply(title, content)
	return nil
}

func (s *Session) apply(title, content string) {
	s.title = title
	s.content = content
	s.version++
	s.setState(Dirty)

	if s.autosaves() {
		s.schedule()
	}
}

func (s *Session) schedule() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.autosave)
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) autosave() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.save(ctx); err != nil && !errors.Is(err, ErrClosed) {
		editorLogger.Error().Err(err).Str("user_id", string(s.userID)).Msg("Autosave failed")
	}
}

// SaveNow saves the draft immediately instead of waiting for the autosave timer.
func (s *Session) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.autosaves() {
		s.mu.Unlock()
		return nil
	}
	s.stopTimer()
	s.mu.Unlock()

	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != Dirty {
		s.mu.Unlock()
		return nil
	}
	if s.inFlight {
		// The running save will leave the session Dirty; try again afterwards.
		s.schedule()
		s.mu.Unlock()
		return nil
	}

	title, content, version := s.title, s.content, s.version
	s.inFlight = true
	s.setState(Saving)
	s.mu.Unlock()

	_, err := s.backend.SaveDraft(ctx, s.userID, title, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.idle.Broadcast()

	if s.state == Closed {
		return err
	}
	if err != nil {
		s.notify("error")
		s.setState(Dirty)
		return fmt.Errorf("error saving draft: %w", err)
	}
	if s.version != version {
		s.setState(Dirty)
		return nil
	}
	s.setState(Clean)
	return nil
}

// Leave is the navigation guard. Unsaved changes need confirm to be discarded. On Left the
// session is closed.
func (s *Session) Leave(confirm bool) LeaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Dirty && !confirm {
		return NeedsConfirm
	}
	s.close()
	return Left
}

// Submit publishes the content as a post and closes the session. On failure the session
// keeps its content so the user can fix it.
func (s *Session) Submit(ctx context.Context) (*model.Post, error) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.stopTimer()
	// A draft save finishing after the submit would bring the draft back.
	for s.inFlight {
		s.idle.Wait()
	}
	if s.state == Closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	input := model.PostInput{Title: s.title, Content: s.content, Markdown: s.markdown}
	// inFlight keeps autosaves and other submits out until the post is stored.
	s.inFlight = true
	s.mu.Unlock()

	post, err := s.backend.SubmitPost(ctx, s.userID, s.postID, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.idle.Broadcast()

	if err != nil {
		if s.state == Dirty && s.autosaves() {
			s.schedule()
		}
		return nil, err
	}
	s.close()
	return post, nil
}

// InsertImage uploads an image and inserts a reference to it at position, counted in
// characters. Content is left untouched when the upload fails.
func (s *Session) InsertImage(ctx context.Context, filename, contentType string, r io.Reader, position int) (string, error) {
	if s.State() == Closed {
		return "", ErrClosed
	}
	if s.images == nil {
		return "", errors.New("image uploads are not configured")
	}

	url, err := s.images.Upload(ctx, storage.Object{Filename: filename, ContentType: contentType, Body: r})
	if err != nil {
		return "", fmt.Errorf("error uploading image: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return "", ErrClosed
	}

	alt := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	var snippet string
	if s.markdown {
		snippet = fmt.Sprintf("![%s](%s)", alt, url)
	} else {
		snippet = fmt.Sprintf(`<img src="%s" alt="%s">`, html.EscapeString(url), html.EscapeString(alt))
	}

	runes := []rune(s.content)
	position = min(max(position, 0), len(runes))
	content := string(runes[:position]) + snippet + string(runes[position:])

	s.apply(s.title, content)
	return url, nil
}

// Close stops any pending autosave. Further calls fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
}

func (s *Session) close() {
	s.stopTimer()
	if s.state != Closed {
		s.setState(Closed)
	}
}
