package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kumagoya/kumagoya/internal/cache"
	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/rs/zerolog"
)

func setupTestDb(t *testing.T) db.DB {
	t.Helper()
	quiet := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
	db.SetLogger(quiet)
	SetLogger(quiet)

	ctx := context.Background()
	d := db.NewSQLite(filepath.Join(t.TempDir(), "repo.db"))
	if err := d.Init(ctx); err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := db.Migrate(ctx, d); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return d
}

func createPosts(t *testing.T, repo PostRepository, n int) []model.Post {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]model.Post, 0, n)
	for i := 0; i < n; i++ {
		p := &model.Post{
			Title:     fmt.Sprintf("Post %d", i+1),
			Content:   fmt.Sprintf("<p>body %d</p>", i+1),
			Owner:     "author",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.CreatePost(context.Background(), p); err != nil {
			t.Fatalf("Failed to create post: %v", err)
		}
		posts = append(posts, *p)
	}
	return posts
}

func TestPostRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewDBPostRepository(setupTestDb(t))

	post := &model.Post{Title: "Hello", Content: "<p>熊</p>", Owner: "u1"}
	if err := repo.CreatePost(ctx, post); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.ID == 0 {
		t.Fatal("Expected store-assigned id")
	}
	if post.ContentHash == "" {
		t.Error("Expected content hash to be set")
	}

	t.Run("Get", func(t *testing.T) {
		got, err := repo.GetPost(ctx, post.ID)
		if err != nil {
			t.Fatalf("GetPost failed: %v", err)
		}
		if got.Title != "Hello" || got.Content != "<p>熊</p>" || got.Owner != "u1" {
			t.Errorf("Unexpected post: %+v", got)
		}
		if !got.CreatedAt.Equal(post.CreatedAt) {
			t.Errorf("Expected created_at %v, got %v", post.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("Update", func(t *testing.T) {
		oldHash := post.ContentHash
		post.Title = "Hello again"
		post.Content = "<p>changed</p>"
		if err := repo.UpdatePost(ctx, post); err != nil {
			t.Fatalf("UpdatePost failed: %v", err)
		}
		if post.ContentHash == oldHash {
			t.Error("Expected content hash to change")
		}
		got, _ := repo.GetPost(ctx, post.ID)
		if got.Title != "Hello again" || got.Content != "<p>changed</p>" {
			t.Errorf("Update not persisted: %+v", got)
		}
	})

	t.Run("Update missing", func(t *testing.T) {
		err := repo.UpdatePost(ctx, &model.Post{ID: 9999, Title: "x", Content: "y"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.DeletePost(ctx, post.ID); err != nil {
			t.Fatalf("DeletePost failed: %v", err)
		}
		if _, err := repo.GetPost(ctx, post.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeletePost(ctx, post.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestPostRepositoryOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewDBPostRepository(setupTestDb(t))
	created := createPosts(t, repo, 7)

	t.Run("ListPosts newest first", func(t *testing.T) {
		posts, err := repo.ListPosts(ctx)
		if err != nil {
			t.Fatalf("ListPosts failed: %v", err)
		}
		if len(posts) != 7 {
			t.Fatalf("Expected 7 posts, got %d", len(posts))
		}
		if posts[0].ID != created[6].ID || posts[6].ID != created[0].ID {
			t.Errorf("Expected newest first, got first=%d last=%d", posts[0].ID, posts[6].ID)
		}
	})

	t.Run("ListPostIDs newest first", func(t *testing.T) {
		ids, err := repo.ListPostIDs(ctx)
		if err != nil {
			t.Fatalf("ListPostIDs failed: %v", err)
		}
		for i, id := range ids {
			if id != created[6-i].ID {
				t.Errorf("Position %d: expected %d, got %d", i, created[6-i].ID, id)
			}
		}
	})

	tests := []struct {
		offset, limit int
		wantLen       int
		wantFirst     string
	}{
		{0, 3, 3, "Post 7"},
		{3, 3, 3, "Post 4"},
		{6, 3, 1, "Post 1"},
		{9, 3, 0, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("Page offset %d", tt.offset), func(t *testing.T) {
			posts, total, err := repo.PagePosts(ctx, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("PagePosts failed: %v", err)
			}
			if total != 7 {
				t.Errorf("Expected total 7, got %d", total)
			}
			if len(posts) != tt.wantLen {
				t.Fatalf("Expected %d posts, got %d", tt.wantLen, len(posts))
			}
			if tt.wantLen > 0 && posts[0].Title != tt.wantFirst {
				t.Errorf("Expected first %q, got %q", tt.wantFirst, posts[0].Title)
			}
		})
	}
}

func TestDraftRepository(t *testing.T) {
	ctx := context.Background()
	d := setupTestDb(t)
	repo := NewDBDraftRepository(d)

	t.Run("Missing draft", func(t *testing.T) {
		if _, err := repo.GetDraft(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		drafts, err := repo.ListDrafts(ctx, "nobody")
		if err != nil || len(drafts) != 0 {
			t.Errorf("Expected no drafts, got %v (err=%v)", drafts, err)
		}
	})

	t.Run("Saving twice overwrites", func(t *testing.T) {
		if err := repo.SaveDraft(ctx, &model.Draft{UserID: "u1", Title: "first", Content: "a"}); err != nil {
			t.Fatalf("SaveDraft failed: %v", err)
		}
		if err := repo.SaveDraft(ctx, &model.Draft{UserID: "u1", Title: "second", Content: "b"}); err != nil {
			t.Fatalf("SaveDraft failed: %v", err)
		}

		var n int
		if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM drafts WHERE user_id = ?`, "u1").Scan(&n); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected one row per user, got %d", n)
		}

		got, err := repo.GetDraft(ctx, "u1")
		if err != nil {
			t.Fatalf("GetDraft failed: %v", err)
		}
		if got.Title != "second" || got.Content != "b" {
			t.Errorf("Expected latest draft, got %+v", got)
		}

		drafts, _ := repo.ListDrafts(ctx, "u1")
		if len(drafts) != 1 {
			t.Errorf("Expected one listed draft, got %d", len(drafts))
		}
	})

	t.Run("Users are isolated", func(t *testing.T) {
		repo.SaveDraft(ctx, &model.Draft{UserID: "u2", Title: "other"})
		got, _ := repo.GetDraft(ctx, "u1")
		if got.Title != "second" {
			t.Errorf("Expected u1 draft untouched, got %q", got.Title)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.DeleteDraft(ctx, "u1"); err != nil {
			t.Fatalf("DeleteDraft failed: %v", err)
		}
		if _, err := repo.GetDraft(ctx, "u1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteDraft(ctx, "u1"); err != nil {
			t.Errorf("Deleting a missing draft should succeed, got %v", err)
		}
	})

	t.Run("Purge", func(t *testing.T) {
		n, err := repo.PurgeDrafts(ctx, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("PurgeDrafts failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected one purged draft, got %d", n)
		}
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDBUserRepository(setupTestDb(t))

	u := &model.User{Email: "  Kuma@Example.com ", PasswordHash: []byte("hash")}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == "" {
		t.Fatal("Expected generated id")
	}
	if u.Email != "kuma@example.com" {
		t.Errorf("Expected normalized email, got %q", u.Email)
	}

	t.Run("Duplicate email", func(t *testing.T) {
		err := repo.CreateUser(ctx, &model.User{Email: "KUMA@example.com", PasswordHash: []byte("x")})
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("Expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		byEmail, err := repo.GetUserByEmail(ctx, "kuma@EXAMPLE.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		byID, err := repo.GetUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if byEmail.ID != byID.ID || string(byID.PasswordHash) != "hash" {
			t.Errorf("Lookups disagree: %+v vs %+v", byEmail, byID)
		}
		if _, err := repo.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Admin flag", func(t *testing.T) {
		admin, err := repo.IsAdmin(ctx, u.ID)
		if err != nil || admin {
			t.Fatalf("Expected non-admin, got %v (err=%v)", admin, err)
		}
		if err := repo.SetAdmin(ctx, u.ID, true); err != nil {
			t.Fatalf("SetAdmin failed: %v", err)
		}
		admin, _ = repo.IsAdmin(ctx, u.ID)
		if !admin {
			t.Error("Expected admin after SetAdmin")
		}
		if admin, err := repo.IsAdmin(ctx, "missing"); err != nil || admin {
			t.Errorf("Expected unknown user to be non-admin, got %v (err=%v)", admin, err)
		}
		if err := repo.SetAdmin(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

type countingRepo struct {
	PostRepository
	gets  int
	pages int
}

func (c *countingRepo) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	c.gets++
	return c.PostRepository.GetPost(ctx, id)
}

func (c *countingRepo) PagePosts(ctx context.Context, offset, limit int) ([]model.Post, int, error) {
	c.pages++
	return c.PostRepository.PagePosts(ctx, offset, limit)
}

func TestCachedPostRepository(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{PostRepository: NewDBPostRepository(setupTestDb(t))}
	repo := NewCachedPostRepository(inner, cache.NewMemoryStore(time.Minute, time.Minute))
	created := createPosts(t, repo, 3)

	t.Run("GetPost reads through once", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			p, err := repo.GetPost(ctx, created[0].ID)
			if err != nil {
				t.Fatalf("GetPost failed: %v", err)
			}
			if p.Title != "Post 1" {
				t.Errorf("Expected Post 1, got %q", p.Title)
			}
		}
		if inner.gets != 1 {
			t.Errorf("Expected one backend read, got %d", inner.gets)
		}
	})

	t.Run("Writes invalidate pages", func(t *testing.T) {
		repo.PagePosts(ctx, 0, 5)
		repo.PagePosts(ctx, 0, 5)
		if inner.pages != 1 {
			t.Fatalf("Expected one backend page read, got %d", inner.pages)
		}

		p := created[0]
		p.Title = "Renamed"
		if err := repo.UpdatePost(ctx, &p); err != nil {
			t.Fatalf("UpdatePost failed: %v", err)
		}

		posts, total, _ := repo.PagePosts(ctx, 0, 5)
		if inner.pages != 2 {
			t.Errorf("Expected page reload after write, got %d reads", inner.pages)
		}
		if total != 3 || posts[2].Title != "Renamed" {
			t.Errorf("Expected fresh data, got total=%d last=%q", total, posts[2].Title)
		}
	})

	t.Run("Missing posts are not cached", func(t *testing.T) {
		before := inner.gets
		repo.GetPost(ctx, 4242)
		repo.GetPost(ctx, 4242)
		if inner.gets != before+2 {
			t.Errorf("Expected misses to hit the backend each time")
		}
	})
}
