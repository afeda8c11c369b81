// Package service implements the post and draft operations behind the pages and the editor.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kumagoya/kumagoya/internal/events"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/pagination"
	"github.com/kumagoya/kumagoya/internal/render"
	"github.com/kumagoya/kumagoya/internal/repository"
	"github.com/rs/zerolog"
)

var serviceLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	serviceLogger = l
}

type PostService struct {
	posts  repository.PostRepository
	drafts repository.DraftRepository
	events events.Publisher
}

// NewPostService builds the service. A nil publisher disables change events.
func NewPostService(posts repository.PostRepository, drafts repository.DraftRepository, publisher events.Publisher) *PostService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PostService{posts: posts, drafts: drafts, events: publisher}
}

type Page struct {
	Posts      []model.Post
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

type Adjacent struct {
	// Previous is the next older post, Next the next newer one.
	Previous *model.Post
	Next     *model.Post
}

func (s *PostService) ListPosts(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	return s.posts.GetPost(ctx, id)
}

// prepare validates input and returns the sanitized HTML to store.
func prepare(input model.PostInput) (string, error) {
	v := NewValidator()
	validateTitle(v, input.Title)
	validateContent(v, input.Content)
	if !v.Valid() {
		return "", v.ValidationError()
	}

	content := input.Content
	if input.Markdown {
		content = render.MarkdownToHTML(content)
	}
	content = render.Sanitize(content)

	if strings.TrimSpace(render.Excerpt(content, 1)) == "" && !strings.Contains(content, "<img") {
		v.AddError("content", "本文を入力してください")
		return "", v.ValidationError()
	}
	return content, nil
}

func (s *PostService) CreatePost(ctx context.Context, userID model.UserID, input model.PostInput) (*model.Post, error) {
	content, err := prepare(input)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:   strings.TrimSpace(input.Title),
		Content: content,
		Owner:   userID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	serviceLogger.Info().Int64("post_id", int64(post.ID)).Str("user_id", string(userID)).Msg("Post created")
	s.publish(ctx, events.PostCreated, post.ID)
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id model.PostID, input model.PostInput) (*model.Post, error) {
	content, err := prepare(input)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Title = strings.TrimSpace(input.Title)
	post.Content = content

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("error updating post %d: %w", id, err)
	}

	serviceLogger.Info().Int64("post_id", int64(id)).Msg("Post updated")
	s.publish(ctx, events.PostUpdated, id)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, id model.PostID) error {
	if err := s.posts.DeletePost(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("error deleting post %d: %w", id, err)
	}

	serviceLogger.Info().Int64("post_id", int64(id)).Msg("Post deleted")
	s.publish(ctx, events.PostDeleted, id)
	return nil
}

// Paginate returns page (1-based) of the newest-first post list. A backend failure is
// logged and yields an empty page.
func (s *PostService) Paginate(ctx context.Context, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	result := Page{Posts: []model.Post{}, Page: page, PageSize: pageSize}

	posts, total, err := s.posts.PagePosts(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		serviceLogger.Error().Err(err).Int("page", page).Msg("Error paginating posts")
		return result
	}

	result.Posts = posts
	result.Total = total
	result.TotalPages = pagination.TotalPages(total, pageSize)
	return result
}

// GetAdjacent finds the posts on either side of id in the newest-first list.
func (s *PostService) GetAdjacent(ctx context.Context, id model.PostID) Adjacent {
	var adj Adjacent

	ids, err := s.posts.ListPostIDs(ctx)
	if err != nil {
		serviceLogger.Error().Err(err).Int64("post_id", int64(id)).Msg("Error listing post ids")
		return adj
	}

	idx := slices.Index(ids, id)
	if idx < 0 {
		return adj
	}
	if idx+1 < len(ids) {
		adj.Previous = s.neighbour(ctx, ids[idx+1])
	}
	if idx > 0 {
		adj.Next = s.neighbour(ctx, ids[idx-1])
	}
	return adj
}

func (s *PostService) neighbour(ctx context.Context, id model.PostID) *model.Post {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		serviceLogger.Warn().Err(err).Int64("post_id", int64(id)).Msg("Error reading adjacent post")
		return nil
	}
	return post
}

// SubmitPost creates the post, or updates it when postID is set, then discards the user's
// draft. Failing to discard the draft does not fail the submit.
func (s *PostService) SubmitPost(ctx context.Context, userID model.UserID, postID *model.PostID, input model.PostInput) (*model.Post, error) {
	var (
		post *model.Post
		err  error
	)
	if postID != nil {
		post, err = s.UpdatePost(ctx, *postID, input)
	} else {
		post, err = s.CreatePost(ctx, userID, input)
	}
	if err != nil {
		return nil, err
	}

	if err := s.drafts.DeleteDraft(ctx, userID); err != nil {
		serviceLogger.Error().Err(err).Str("user_id", string(userID)).Msg("Error deleting draft after submit")
	}
	return post, nil
}

func (s *PostService) publish(ctx context.Context, kind string, id model.PostID) {
	err := s.events.Publish(ctx, events.PostEvent{Type: kind, PostID: id, Timestamp: time.Now().UTC()})
	if err != nil {
		serviceLogger.Warn().Err(err).Str("type", kind).Int64("post_id", int64(id)).Msg("Error publishing post event")
	}
}
