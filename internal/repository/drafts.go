package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/model"
)

type DBDraftRepository struct { // implements DraftRepository
	db db.DB
}

func NewDBDraftRepository(d db.DB) *DBDraftRepository {
	return &DBDraftRepository{db: d}
}

// SaveDraft upserts the draft keyed by its user. The first save sets created_at.
func (r *DBDraftRepository) SaveDraft(ctx context.Context, draft *model.Draft) error {
	ts := now()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = ts
	}
	draft.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, `
INSERT INTO drafts (user_id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET title = excluded.title, content = excluded.content, updated_at = excluded.updated_at`,
		draft.UserID, draft.Title, draft.Content, draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving draft for %s: %w", draft.UserID, err)
	}
	return nil
}

func (r *DBDraftRepository) GetDraft(ctx context.Context, userID model.UserID) (*model.Draft, error) {
	var d model.Draft
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, title, content, created_at, updated_at FROM drafts WHERE user_id = ?`, userID,
	).Scan(&d.UserID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading draft for %s: %w", userID, err)
	}
	return &d, nil
}

// DeleteDraft removes the user's draft. Deleting a missing draft is not an error.
func (r *DBDraftRepository) DeleteDraft(ctx context.Context, userID model.UserID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting draft for %s: %w", userID, err)
	}
	return nil
}

func (r *DBDraftRepository) ListDrafts(ctx context.Context, userID model.UserID) ([]model.Draft, error) {
	d, err := r.GetDraft(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return []model.Draft{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []model.Draft{*d}, nil
}

// PurgeDrafts deletes drafts not touched since olderThan.
func (r *DBDraftRepository) PurgeDrafts(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("error purging drafts: %w", err)
	}
	return res.RowsAffected()
}
