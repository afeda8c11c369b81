package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/events"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []events.PostEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.PostEvent) error {
	p.events = append(p.events, e)
	return nil
}

type testEnv struct {
	svc    *PostService
	posts  *repository.DBPostRepository
	drafts *repository.DBDraftRepository
	pub    *recordingPublisher
}

func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()
	db.SetLogger(zerolog.Nop())
	repository.SetLogger(zerolog.Nop())

	ctx := context.Background()
	d := db.NewSQLite(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, d.Init(ctx))
	t.Cleanup(func() { d.Close() })
	require.NoError(t, db.Migrate(ctx, d))

	env := &testEnv{
		posts:  repository.NewDBPostRepository(d),
		drafts: repository.NewDBDraftRepository(d),
		pub:    &recordingPublisher{},
	}
	env.svc = NewPostService(env.posts, env.drafts, env.pub)
	return env
}

// seed inserts n posts directly, one hour apart, oldest first.
func (e *testEnv) seed(t *testing.T, n int) []model.Post {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]model.Post, 0, n)
	for i := 0; i < n; i++ {
		p := &model.Post{
			Title:     fmt.Sprintf("Post %d", i+1),
			Content:   "<p>body</p>",
			Owner:     "author",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, e.posts.CreatePost(context.Background(), p))
		out = append(out, *p)
	}
	return out
}

func TestCreatePost(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	t.Run("Sanitizes and publishes", func(t *testing.T) {
		post, err := env.svc.CreatePost(ctx, "u1", model.PostInput{
			Title:   "  熊の話  ",
			Content: `<p onclick="x()">hello</p><script>alert(1)</script>`,
		})
		require.NoError(t, err)
		assert.Equal(t, "熊の話", post.Title)
		assert.Equal(t, "<p>hello</p>", post.Content)
		assert.Equal(t, model.UserID("u1"), post.Owner)

		stored, err := env.svc.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Content, stored.Content)

		require.Len(t, env.pub.events, 1)
		assert.Equal(t, events.PostCreated, env.pub.events[0].Type)
		assert.Equal(t, post.ID, env.pub.events[0].PostID)
	})

	t.Run("Markdown input", func(t *testing.T) {
		post, err := env.svc.CreatePost(ctx, "u1", model.PostInput{
			Title:    "md",
			Content:  "**bold**\n\n```go\nx := 1\n```",
			Markdown: true,
		})
		require.NoError(t, err)
		assert.Contains(t, post.Content, "<strong>bold</strong>")
		assert.Contains(t, post.Content, `<code class="language-go">`)
	})

	tests := []struct {
		name   string
		input  model.PostInput
		fields []string
	}{
		{"empty title", model.PostInput{Title: " ", Content: "<p>x</p>"}, []string{"title"}},
		{"empty content", model.PostInput{Title: "t", Content: ""}, []string{"content"}},
		{"both empty", model.PostInput{}, []string{"title", "content"}},
		{"long title", model.PostInput{Title: strings.Repeat("熊", 201), Content: "<p>x</p>"}, []string{"title"}},
		{"only markup", model.PostInput{Title: "t", Content: "<script>x</script>"}, []string{"content"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreatePost(ctx, "u1", tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			for _, f := range tt.fields {
				assert.Contains(t, verr.Errors, f)
			}
		})
	}
}

func TestUpdateAndDeletePost(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()
	seeded := env.seed(t, 1)

	post, err := env.svc.UpdatePost(ctx, seeded[0].ID, model.PostInput{Title: "new", Content: "<p>new</p>"})
	require.NoError(t, err)
	assert.Equal(t, "new", post.Title)
	assert.True(t, post.CreatedAt.Equal(seeded[0].CreatedAt), "update must keep the creation date")

	_, err = env.svc.UpdatePost(ctx, 999, model.PostInput{Title: "x", Content: "<p>x</p>"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, env.svc.DeletePost(ctx, seeded[0].ID))
	_, err = env.svc.GetPost(ctx, seeded[0].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, env.svc.DeletePost(ctx, seeded[0].ID), repository.ErrNotFound)

	require.Len(t, env.pub.events, 2)
	assert.Equal(t, events.PostUpdated, env.pub.events[0].Type)
	assert.Equal(t, events.PostDeleted, env.pub.events[1].Type)
}

func TestPaginate(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()
	env.seed(t, 12)

	tests := []struct {
		page      int
		wantPage  int
		wantLen   int
		wantFirst string
	}{
		{1, 1, 5, "Post 12"},
		{2, 2, 5, "Post 7"},
		{3, 3, 2, "Post 2"},
		{0, 1, 5, "Post 12"},
		{-4, 1, 5, "Post 12"},
		{4, 4, 0, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			p := env.svc.Paginate(ctx, tt.page, 5)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, 12, p.Total)
			assert.Equal(t, 3, p.TotalPages)
			require.Len(t, p.Posts, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, p.Posts[0].Title)
			}
			for i := 1; i < len(p.Posts); i++ {
				assert.False(t, p.Posts[i].CreatedAt.After(p.Posts[i-1].CreatedAt), "posts must be newest first")
			}
		})
	}
}

func TestListPosts(t *testing.T) {
	env := setupTestEnvironment(t)
	env.seed(t, 3)

	posts, err := env.svc.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "Post 3", posts[0].Title)
	assert.Equal(t, "Post 1", posts[2].Title)
}

type failingPosts struct {
	repository.PostRepository
}

func (failingPosts) PagePosts(context.Context, int, int) ([]model.Post, int, error) {
	return nil, 0, errors.New("database is gone")
}

func (failingPosts) ListPostIDs(context.Context) ([]model.PostID, error) {
	return nil, errors.New("database is gone")
}

func TestPaginate_BackendFailure(t *testing.T) {
	svc := NewPostService(failingPosts{}, nil, nil)
	p := svc.Paginate(context.Background(), 2, 5)
	assert.Empty(t, p.Posts)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 2, p.Page)

	adj := svc.GetAdjacent(context.Background(), 1)
	assert.Nil(t, adj.Previous)
	assert.Nil(t, adj.Next)
}

func TestGetAdjacent(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()
	seeded := env.seed(t, 3)
	oldest, middle, newest := seeded[0], seeded[1], seeded[2]

	adj := env.svc.GetAdjacent(ctx, middle.ID)
	require.NotNil(t, adj.Previous)
	require.NotNil(t, adj.Next)
	assert.Equal(t, oldest.ID, adj.Previous.ID)
	assert.Equal(t, newest.ID, adj.Next.ID)

	adj = env.svc.GetAdjacent(ctx, newest.ID)
	assert.Nil(t, adj.Next)
	require.NotNil(t, adj.Previous)
	assert.Equal(t, middle.ID, adj.Previous.ID)

	adj = env.svc.GetAdjacent(ctx, oldest.ID)
	assert.Nil(t, adj.Previous)
	require.NotNil(t, adj.Next)

	adj = env.svc.GetAdjacent(ctx, 4242)
	assert.Nil(t, adj.Previous)
	assert.Nil(t, adj.Next)
}

func TestDrafts(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	d, err := env.svc.GetDraft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = env.svc.SaveDraft(ctx, "u1", "a", "first")
	require.NoError(t, err)
	_, err = env.svc.SaveDraft(ctx, "u1", "b", "second")
	require.NoError(t, err)

	drafts, err := env.svc.ListDrafts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "second", drafts[0].Content)

	require.NoError(t, env.svc.DeleteDraft(ctx, "u1"))
	d, err = env.svc.GetDraft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSubmitPost(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	t.Run("Create deletes draft", func(t *testing.T) {
		_, err := env.svc.SaveDraft(ctx, "u1", "draft", "<p>draft</p>")
		require.NoError(t, err)

		post, err := env.svc.SubmitPost(ctx, "u1", nil, model.PostInput{Title: "done", Content: "<p>done</p>"})
		require.NoError(t, err)
		assert.NotZero(t, post.ID)

		d, err := env.svc.GetDraft(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("Update existing post", func(t *testing.T) {
		seeded := env.seed(t, 1)
		id := seeded[0].ID
		post, err := env.svc.SubmitPost(ctx, "u1", &id, model.PostInput{Title: "edited", Content: "<p>e</p>"})
		require.NoError(t, err)
		assert.Equal(t, id, post.ID)
		assert.Equal(t, "edited", post.Title)
	})

	t.Run("Invalid input keeps draft", func(t *testing.T) {
		_, err := env.svc.SaveDraft(ctx, "u2", "keep", "me")
		require.NoError(t, err)

		_, err = env.svc.SubmitPost(ctx, "u2", nil, model.PostInput{Title: "", Content: ""})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		d, err := env.svc.GetDraft(ctx, "u2")
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "keep", d.Title)
	})
}

type brokenDrafts struct {
	repository.DraftRepository
}

func (brokenDrafts) DeleteDraft(context.Context, model.UserID) error {
	return errors.New("draft table locked")
}

func TestSubmitPost_DraftDeleteFailureIsNotFatal(t *testing.T) {
	env := setupTestEnvironment(t)
	svc := NewPostService(env.posts, brokenDrafts{env.drafts}, nil)

	post, err := svc.SubmitPost(context.Background(), "u1", nil, model.PostInput{Title: "t", Content: "<p>c</p>"})
	require.NoError(t, err)

	stored, err := svc.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", stored.Title)
}
