package main

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/editor"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/repository"
	"github.com/kumagoya/kumagoya/internal/sse"
	"github.com/kumagoya/kumagoya/internal/storage"
	"github.com/rs/zerolog"
)

const (
	sseHeartbeat    = 25 * time.Second
	multipartMemory = 8 << 20
)

type editorResponse struct {
	State   string `json:"state"`
	Confirm bool   `json:"confirm,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// editorTarget is the post named by the post_id form field, nil for a new post.
func editorTarget(r *http.Request) (*model.PostID, error) {
	raw := r.PostFormValue("post_id")
	if raw == "" {
		return nil, nil
	}
	id, err := model.ParsePostID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// editorSession finds the caller's session for the request target, opening one when the
// idle timeout already closed it. It writes the error response itself and returns nil
// when the target is invalid or not editable by the caller.
func (app *application) editorSession(w http.ResponseWriter, r *http.Request) *editor.Session {
	user := userFrom(r)

	postID, err := editorTarget(r)
	if err != nil {
		app.badRequest(w, r, err.Error())
		return nil
	}
	if s, ok := app.editors.Get(user.ID, postID); ok {
		return s
	}

	if postID == nil {
		return app.editors.Open(user.ID, nil, "", "", false)
	}

	post, err := app.posts.GetPost(r.Context(), *postID)
	if errors.Is(err, repository.ErrNotFound) {
		app.postNotFound(w, r)
		return nil
	}
	if err != nil {
		app.serverError(w, r, err)
		return nil
	}
	if !canEdit(user, post) {
		app.forbidden(w, r)
		return nil
	}
	return app.editors.Open(user.ID, postID, post.Title, post.Content, false)
}

// applyEdit copies the form content into s, reopening the session if it closed meanwhile.
func (app *application) applyEdit(r *http.Request, s *editor.Session) *editor.Session {
	title, content, markdown := editorInput(r)
	s.SetMarkdown(markdown)
	if err := s.Edit(title, content); errors.Is(err, editor.ErrClosed) {
		s = app.editors.Open(userFrom(r).ID, s.PostID(), "", "", markdown)
		if err := s.Edit(title, content); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Reopened editor session closed before edit")
		}
	}
	return s
}

func (app *application) editorChangesHandler(w http.ResponseWriter, r *http.Request) {
	s := app.editorSession(w, r)
	if s == nil {
		return
	}
	s = app.applyEdit(r, s)
	writeJSON(w, http.StatusOK, editorResponse{State: s.State().String()})
}

func (app *application) editorDraftHandler(w http.ResponseWriter, r *http.Request) {
	s := app.editorSession(w, r)
	if s == nil {
		return
	}
	s = app.applyEdit(r, s)

	if err := s.SaveNow(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to save draft")
		writeJSON(w, http.StatusInternalServerError, editorResponse{State: s.State().String(), Error: config.ErrSaveFailed})
		return
	}
	writeJSON(w, http.StatusOK, editorResponse{State: s.State().String()})
}

func (app *application) editorLeaveHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	postID, err := editorTarget(r)
	if err != nil {
		app.badRequest(w, r, err.Error())
		return
	}

	s, ok := app.editors.Get(user.ID, postID)
	if !ok {
		writeJSON(w, http.StatusOK, editorResponse{State: editor.Closed.String()})
		return
	}

	confirm, _ := strconv.ParseBool(r.PostFormValue("confirm"))
	if s.Leave(confirm) == editor.NeedsConfirm {
		writeJSON(w, http.StatusConflict, editorResponse{State: s.State().String(), Confirm: true})
		return
	}
	app.editors.Remove(user.ID, postID)
	writeJSON(w, http.StatusOK, editorResponse{State: editor.Closed.String()})
}

func (app *application) editorImagesHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, editorResponse{Error: config.ErrUploadFailed})
			return
		}
		app.badRequest(w, r, "invalid upload")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		app.badRequest(w, r, "image file required")
		return
	}
	defer file.Close()

	s := app.editorSession(w, r)
	if s == nil {
		return
	}
	// The page sends its current text so the position refers to what the user sees.
	s = app.applyEdit(r, s)

	position := math.MaxInt
	if p, err := strconv.Atoi(r.PostFormValue("position")); err == nil {
		position = p
	}

	url, err := s.InsertImage(r.Context(), header.Filename, header.Header.Get(config.HCType), file, position)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrUnsupportedImage):
		writeJSON(w, http.StatusUnsupportedMediaType, editorResponse{State: s.State().String(), Error: config.ErrUploadFailed})
		return
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("filename", header.Filename).Msg("Image upload failed")
		writeJSON(w, http.StatusBadGateway, editorResponse{State: s.State().String(), Error: config.ErrUploadFailed})
		return
	}

	_, content := s.Snapshot()
	writeJSON(w, http.StatusOK, editorResponse{State: s.State().String(), URL: url, Content: content})
}

// editorEventsHandler streams the save state of the caller's editor sessions.
func (app *application) editorEventsHandler(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		l.Warn().Err(err).Msg("Failed to clear write deadline")
	}

	w.Header().Set(config.HCType, config.CTypeSSE)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	if err := rc.Flush(); err != nil {
		l.Error().Err(err).Msg("Streaming unsupported")
		return
	}

	client := sse.NewClient(userFrom(r).ID)
	app.clients.Add(client)
	l.Debug().Msg("New SSE client connected")

	defer func() {
		app.clients.Delete(client)
		l.Debug().Msg("SSE client disconnected")
	}()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	notify := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", msg)
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
		case <-notify:
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
