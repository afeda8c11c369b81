package main

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"sync"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/editor"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/pagination"
	"github.com/kumagoya/kumagoya/internal/render"
	"github.com/kumagoya/kumagoya/internal/repository"
	"github.com/kumagoya/kumagoya/internal/routes"
	"github.com/kumagoya/kumagoya/internal/service"
	"github.com/kumagoya/kumagoya/internal/theme"
	"github.com/rs/zerolog"
)

type indexPage struct {
	*model.PageData
	Page   service.Page
	Window []pagination.Item
	// HasDraft shows the link back to an unfinished post.
	HasDraft bool
}

type postPage struct {
	*model.PageData
	Post     *model.Post
	Content  template.HTML
	Adjacent service.Adjacent
	CanEdit  bool
}

type editorPage struct {
	*model.PageData
	PostID        *model.PostID
	PostTitle     string
	Content       string
	Markdown      bool
	State         string
	AutosaveDelay int64
	Error         string
	Errors        map[string]string
}

type deletePage struct {
	*model.PageData
	Post *model.Post
}

type draftsPage struct {
	*model.PageData
	Drafts []model.Draft
}

// canEdit reports whether user may change post: its author or an admin.
func canEdit(user *model.User, post *model.Post) bool {
	if user == nil || post == nil {
		return false
	}
	return user.IsAdmin || post.Owner == user.ID
}

func (app *application) indexHandler(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	user := userFrom(r)
	var (
		wg       sync.WaitGroup
		result   service.Page
		hasDraft bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		result = app.posts.Paginate(r.Context(), page, app.cfg.Content.PostsPerPage)
	}()
	if user != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			draft, err := app.posts.GetDraft(r.Context(), user.ID)
			if err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to look up draft")
				return
			}
			hasDraft = !draft.Empty()
		}()
	}
	wg.Wait()

	app.render(w, r, http.StatusOK, config.TemplateIndex, indexPage{
		PageData: app.pageData(r, ""),
		Page:     result,
		Window:   pagination.Window(result.Page, result.TotalPages),
		HasDraft: hasDraft,
	})
}

// loadPost reads the post named by the {id} path segment, answering 404 itself when it
// cannot.
func (app *application) loadPost(w http.ResponseWriter, r *http.Request) (*model.Post, bool) {
	id, err := model.ParsePostID(r.PathValue("id"))
	if err != nil {
		app.postNotFound(w, r)
		return nil, false
	}

	post, err := app.posts.GetPost(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		app.postNotFound(w, r)
		return nil, false
	}
	if err != nil {
		app.serverError(w, r, err)
		return nil, false
	}
	return post, true
}

func (app *application) postHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}

	adjacent := app.posts.GetAdjacent(r.Context(), post.ID)
	content := render.RenderCached(post.Content, post.ContentHash, theme.GetSyntaxThemeFromRequest(r))

	data := postPage{
		PageData: app.pageData(r, post.Title),
		Post:     post,
		Content:  content,
		Adjacent: adjacent,
		CanEdit:  canEdit(userFrom(r), post),
	}
	data.Description = render.Excerpt(post.Content, app.cfg.Content.ExcerptRunes)
	app.render(w, r, http.StatusOK, config.TemplatePost, data)
}

// openEditor returns the user's live session for the target, or starts one from the given
// content.
func (app *application) openEditor(userID model.UserID, postID *model.PostID, title, content string, markdown bool) *editor.Session {
	if s, ok := app.editors.Get(userID, postID); ok {
		return s
	}
	return app.editors.Open(userID, postID, title, content, markdown)
}

func (app *application) editorData(r *http.Request, s *editor.Session, heading string) editorPage {
	title, content := s.Snapshot()
	return editorPage{
		PageData:      app.pageData(r, heading),
		PostID:        s.PostID(),
		PostTitle:     title,
		Content:       content,
		Markdown:      s.Markdown(),
		State:         s.State().String(),
		AutosaveDelay: app.cfg.Editor.AutosaveDelay.Milliseconds(),
	}
}

func (app *application) newPostHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	s, ok := app.editors.Get(user.ID, nil)
	if !ok {
		draft, err := app.posts.GetDraft(r.Context(), user.ID)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		var title, content string
		if draft != nil {
			title, content = draft.Title, draft.Content
		}
		s = app.editors.Open(user.ID, nil, title, content, false)
	}

	app.render(w, r, http.StatusOK, config.TemplateEditor, app.editorData(r, s, "新しい記事を作成"))
}

func (app *application) editPostHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	user := userFrom(r)
	if !canEdit(user, post) {
		app.forbidden(w, r)
		return
	}

	s := app.openEditor(user.ID, &post.ID, post.Title, post.Content, false)
	app.render(w, r, http.StatusOK, config.TemplateEditor, app.editorData(r, s, "記事を編集"))
}

// editorInput reads the editor form fields shared by the page form and the editor API.
func editorInput(r *http.Request) (title, content string, markdown bool) {
	markdown, _ = strconv.ParseBool(r.PostFormValue("markdown"))
	if r.PostFormValue("markdown") == "on" {
		markdown = true
	}
	return r.PostFormValue("title"), r.PostFormValue("content"), markdown
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	app.submit(w, r, nil, "新しい記事を作成")
}

func (app *application) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	if !canEdit(userFrom(r), post) {
		app.forbidden(w, r)
		return
	}
	app.submit(w, r, &post.ID, "記事を編集")
}

// submit publishes the form content through the user's editor session. Validation failures
// re-render the editor with the messages and the content intact.
func (app *application) submit(w http.ResponseWriter, r *http.Request, postID *model.PostID, heading string) {
	user := userFrom(r)
	title, content, markdown := editorInput(r)

	s := app.openEditor(user.ID, postID, title, content, markdown)
	s.SetMarkdown(markdown)
	if err := s.Edit(title, content); errors.Is(err, editor.ErrClosed) {
		s = app.editors.Open(user.ID, postID, title, content, markdown)
	}

	post, err := s.Submit(r.Context())

	var validationErr *service.ValidationError
	switch {
	case err == nil:
		app.editors.Remove(user.ID, postID)
		render.WarmCache(post.Content, post.ContentHash, theme.GetSyntaxThemeFromRequest(r))
		msg := "記事を投稿しました。"
		if postID != nil {
			msg = "記事を更新しました。"
		}
		app.auth.Flash(r.Context(), msg)
		http.Redirect(w, r, routes.PostURL(post.ID), http.StatusSeeOther)
	case errors.As(err, &validationErr):
		data := app.editorData(r, s, heading)
		data.Errors = validationErr.Errors
		app.render(w, r, http.StatusUnprocessableEntity, config.TemplateEditor, data)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to submit post")
		data := app.editorData(r, s, heading)
		data.Error = config.ErrSaveFailed
		app.render(w, r, http.StatusInternalServerError, config.TemplateEditor, data)
	}
}

func (app *application) confirmDeleteHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	if !canEdit(userFrom(r), post) {
		app.forbidden(w, r)
		return
	}
	app.render(w, r, http.StatusOK, config.TemplateDelete, deletePage{
		PageData: app.pageData(r, post.Title),
		Post:     post,
	})
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := app.loadPost(w, r)
	if !ok {
		return
	}
	if !canEdit(userFrom(r), post) {
		app.forbidden(w, r)
		return
	}

	if err := app.posts.DeletePost(r.Context(), post.ID); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("post_id", int64(post.ID)).Msg("Failed to delete post")
		app.errorResponse(w, r, http.StatusInternalServerError, config.ErrDeleteFailed)
		return
	}

	app.editors.Remove(userFrom(r).ID, &post.ID)
	app.auth.Flash(r.Context(), "記事を削除しました。")
	http.Redirect(w, r, routes.RootPath, http.StatusSeeOther)
}

func (app *application) draftsHandler(w http.ResponseWriter, r *http.Request) {
	drafts, err := app.posts.ListDrafts(r.Context(), userFrom(r).ID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, config.TemplateDrafts, draftsPage{
		PageData: app.pageData(r, "下書き一覧"),
		Drafts:   drafts,
	})
}

func (app *application) deleteDraftHandler(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	// A live session would write the draft back on its next autosave.
	app.editors.Remove(user.ID, nil)
	if err := app.posts.DeleteDraft(r.Context(), user.ID); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to delete draft")
		app.errorResponse(w, r, http.StatusInternalServerError, "下書きの削除に失敗しました。")
		return
	}
	app.auth.Flash(r.Context(), "下書きを削除しました。")
	http.Redirect(w, r, routes.DraftsPath, http.StatusSeeOther)
}
