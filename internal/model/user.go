package model

import (
	"errors"
	"time"
)

var ErrInvalidPostID = errors.New("invalid post id")

type UserID string

type User struct {
	ID           UserID
	Email        string
	PasswordHash []byte
	IsAdmin      bool
	CreatedAt    time.Time
}
