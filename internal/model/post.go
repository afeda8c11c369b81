// Package model defines core data structures and types for the blog application.
package model

import (
	"strconv"
	"time"
)

type PostID int64

func (id PostID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParsePostID parses a decimal post identifier from a URL segment.
func ParsePostID(s string) (PostID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidPostID
	}
	return PostID(n), nil
}

type Post struct {
	ID PostID

	Title string
	// Sanitized HTML as stored.
	Content string

	// Hash of the stored (compressed) content, used as the render cache key.
	ContentHash string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Optional data: owner of the post (for example, the user who created it).
	Owner UserID
}

// PostInput is what the editor submits for a post.
type PostInput struct {
	Title   string
	Content string
	// Content is markdown rather than HTML.
	Markdown bool
}
