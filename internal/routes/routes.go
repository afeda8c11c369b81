// Package routes defines HTTP route constants for the application.
package routes

import (
	"net/url"
	"strconv"

	"github.com/kumagoya/kumagoya/internal/model"
)

const (
	// Static and assets
	RobotsPath     = "/robots.txt"
	HealthPath     = "/healthz"
	ThemeToggle    = "/theme/toggle"
	SyntaxThemeSet = "/syntax-theme/set"
	SyntaxThemeGet = "/syntax-theme/{theme}"
	OGImage        = "/api/og"

	// Root
	RootPath = "/"

	// Posts
	PostsPath  = "/posts"
	PostPath   = "/posts/{id}"
	NewPost    = "/posts/new"
	EditPost   = "/posts/{id}/edit"
	DeletePost = "/posts/{id}/delete"

	// Drafts
	DraftsPath  = "/drafts"
	DeleteDraft = "/drafts/delete"

	// Editor API
	EditorChanges = "/api/editor/changes"
	EditorDraft   = "/api/editor/draft"
	EditorLeave   = "/api/editor/leave"
	EditorImages  = "/api/editor/images"
	EditorEvents  = "/api/editor/events"

	// Auth routes
	Login  = "/login"
	Signup = "/signup"
	Logout = "/logout"
)

func PostURL(id model.PostID) string {
	return PostsPath + "/" + id.String()
}

func EditURL(id model.PostID) string {
	return PostURL(id) + "/edit"
}

func DeleteURL(id model.PostID) string {
	return PostURL(id) + "/delete"
}

// PageURL links to page n of the post list.
func PageURL(n int) string {
	if n <= 1 {
		return RootPath
	}
	return RootPath + "?" + url.Values{"page": {strconv.Itoa(n)}}.Encode()
}

// OGImageURL is the preview image URL for title, relative to the site root.
func OGImageURL(title string) string {
	return OGImage + "?" + url.Values{"title": {title}}.Encode()
}
