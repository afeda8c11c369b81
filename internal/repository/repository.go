// Package repository implements storage of posts, drafts and users on top of the SQL client.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type PostRepository interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	// ListPostIDs returns every post id, newest first.
	ListPostIDs(ctx context.Context) ([]model.PostID, error)
	// PagePosts returns limit posts starting at offset, newest first, and the total count.
	PagePosts(ctx context.Context, offset, limit int) ([]model.Post, int, error)
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)
	CreatePost(ctx context.Context, post *model.Post) error
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id model.PostID) error
}

// DraftRepository stores at most one draft per user.
type DraftRepository interface {
	SaveDraft(ctx context.Context, draft *model.Draft) error
	GetDraft(ctx context.Context, userID model.UserID) (*model.Draft, error)
	DeleteDraft(ctx context.Context, userID model.UserID) error
	ListDrafts(ctx context.Context, userID model.UserID) ([]model.Draft, error)
	PurgeDrafts(ctx context.Context, olderThan time.Time) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	IsAdmin(ctx context.Context, id model.UserID) (bool, error)
	SetAdmin(ctx context.Context, id model.UserID, admin bool) error
}

// now is the store clock. Postgres keeps microseconds, so SQLite is given the same precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
