package repository

import (
	"context"
	"fmt"

	"github.com/kumagoya/kumagoya/internal/cache"
	"github.com/kumagoya/kumagoya/internal/events"
	"github.com/kumagoya/kumagoya/internal/model"
)

type cachedPage struct {
	Posts []model.Post
	Total int
}

// CachedPostRepository reads through a cache.Store. Any write flushes the store, since a
// single post shifts every page after it.
type CachedPostRepository struct {
	next  PostRepository
	store cache.Store
}

func NewCachedPostRepository(next PostRepository, store cache.Store) *CachedPostRepository {
	return &CachedPostRepository{next: next, store: store}
}

func postKey(id model.PostID) string {
	return "post:" + id.String()
}

func pageKey(offset, limit int) string {
	return fmt.Sprintf("page:%d:%d", offset, limit)
}

func (r *CachedPostRepository) lookup(ctx context.Context, key string, dst any) bool {
	found, err := r.store.Get(ctx, key, dst)
	if err != nil {
		repoLogger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	return found
}

func (r *CachedPostRepository) remember(ctx context.Context, key string, v any) {
	if err := r.store.Set(ctx, key, v); err != nil {
		repoLogger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (r *CachedPostRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	return r.next.ListPosts(ctx)
}

func (r *CachedPostRepository) ListPostIDs(ctx context.Context) ([]model.PostID, error) {
	var ids []model.PostID
	if r.lookup(ctx, "ids", &ids) {
		return ids, nil
	}
	ids, err := r.next.ListPostIDs(ctx)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, "ids", ids)
	return ids, nil
}

func (r *CachedPostRepository) PagePosts(ctx context.Context, offset, limit int) ([]model.Post, int, error) {
	key := pageKey(offset, limit)

	var page cachedPage
	if r.lookup(ctx, key, &page) {
		return page.Posts, page.Total, nil
	}

	posts, total, err := r.next.PagePosts(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	r.remember(ctx, key, cachedPage{Posts: posts, Total: total})
	return posts, total, nil
}

func (r *CachedPostRepository) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	var post model.Post
	if r.lookup(ctx, postKey(id), &post) {
		return &post, nil
	}

	p, err := r.next.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, postKey(id), p)
	return p, nil
}

func (r *CachedPostRepository) CreatePost(ctx context.Context, post *model.Post) error {
	if err := r.next.CreatePost(ctx, post); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

func (r *CachedPostRepository) UpdatePost(ctx context.Context, post *model.Post) error {
	if err := r.next.UpdatePost(ctx, post); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

func (r *CachedPostRepository) DeletePost(ctx context.Context, id model.PostID) error {
	if err := r.next.DeletePost(ctx, id); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

// Invalidate drops every cached entry. It is also called when another instance reports a change.
func (r *CachedPostRepository) Invalidate(ctx context.Context) {
	if err := r.store.Flush(ctx); err != nil {
		repoLogger.Error().Err(err).Msg("Cache flush failed")
	}
}

// HandlePostEvent drops cached entries when another instance changes a post.
func (r *CachedPostRepository) HandlePostEvent(ctx context.Context, event events.PostEvent) {
	repoLogger.Debug().Str("type", event.Type).Int64("post_id", int64(event.PostID)).Msg("Invalidating post cache")
	r.Invalidate(ctx)
}
