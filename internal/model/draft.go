package model

import "time"

// Draft is the autosaved, unpublished editor content of one user.
type Draft struct {
	UserID UserID

	Title   string
	Content string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Empty reports whether the draft carries nothing worth restoring.
func (d *Draft) Empty() bool {
	return d == nil || (d.Title == "" && d.Content == "")
}
