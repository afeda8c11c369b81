package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/util"
	"github.com/kumagoya/kumagoya/internal/util/compression"
)

const postColumns = `id, title, content, content_hash, user_id, created_at, updated_at`

type DBPostRepository struct { // implements PostRepository
	db         db.DB
	compressor compression.Compressor
}

func NewDBPostRepository(d db.DB) *DBPostRepository {
	return &DBPostRepository{
		db:         d,
		compressor: compression.NewZstdCompressor(),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DBPostRepository) scanPost(row rowScanner) (*model.Post, error) {
	var post model.Post
	var compressed []byte
	var owner sql.NullString

	err := row.Scan(&post.ID, &post.Title, &compressed, &post.ContentHash, &owner, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	post.Owner = model.UserID(owner.String)

	content, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing content of post %d: %w", post.ID, err)
	}
	post.Content = string(content)

	return &post, nil
}

func (r *DBPostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

func (r *DBPostRepository) ListPosts(ctx context.Context) ([]model.Post, error) {
	return r.queryPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
}

func (r *DBPostRepository) ListPostIDs(ctx context.Context) ([]model.PostID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying post ids: %w", err)
	}
	defer rows.Close()

	var ids []model.PostID
	for rows.Next() {
		var id model.PostID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning post id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *DBPostRepository) PagePosts(ctx context.Context, offset, limit int) ([]model.Post, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting posts: %w", err)
	}
	if total == 0 || offset >= total {
		return []model.Post{}, total, nil
	}

	posts, err := r.queryPosts(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *DBPostRepository) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := r.scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading post %d: %w", id, err)
	}
	return post, nil
}

func (r *DBPostRepository) compress(post *model.Post) ([]byte, error) {
	compressed, err := r.compressor.Compress([]byte(post.Content))
	if err != nil {
		return nil, fmt.Errorf("error compressing content: %w", err)
	}
	post.ContentHash = util.ContentHash(compressed)
	return compressed, nil
}

// CreatePost inserts post and fills in its store-assigned id and timestamps.
func (r *DBPostRepository) CreatePost(ctx context.Context, post *model.Post) error {
	compressed, err := r.compress(post)
	if err != nil {
		return err
	}

	if post.CreatedAt.IsZero() {
		post.CreatedAt = now()
	}
	post.UpdatedAt = post.CreatedAt

	var owner sql.NullString
	if post.Owner != "" {
		owner = sql.NullString{String: string(post.Owner), Valid: true}
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO posts (title, content, content_hash, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		post.Title, compressed, post.ContentHash, owner, post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("error saving post: %w", err)
	}

	repoLogger.Debug().Int64("post_id", int64(post.ID)).Msg("Post saved")
	return nil
}

func (r *DBPostRepository) UpdatePost(ctx context.Context, post *model.Post) error {
	compressed, err := r.compress(post)
	if err != nil {
		return err
	}
	post.UpdatedAt = now()

	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, content_hash = ?, updated_at = ? WHERE id = ?`,
		post.Title, compressed, post.ContentHash, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating post %d: %w", post.ID, err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}

	repoLogger.Debug().Int64("post_id", int64(post.ID)).Msg("Post content set")
	return nil
}

func (r *DBPostRepository) DeletePost(ctx context.Context, id model.PostID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting post %d: %w", id, err)
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
