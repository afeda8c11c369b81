package model

import (
	"html/template"
	"net/http"

	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/theme"
)

type PageData struct {
	SiteName    string
	SiteHeading string
	PageURL     string
	Title       string
	Description string
	OGImage     string

	Theme        string
	ThemeIcon    string
	SyntaxCSS    template.CSS
	SyntaxTheme  string
	SyntaxThemes []string

	User  *User
	Flash string
}

func NewPageData(r *http.Request, user *User) *PageData {
	cfg := config.AppConfig
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)
	currentTheme := theme.GetThemeFromRequest(r)
	return &PageData{
		SiteName:     cfg.Site.Name,
		SiteHeading:  cfg.Site.Heading,
		PageURL:      r.URL.Path,
		Description:  cfg.Site.Description,
		Theme:        currentTheme,
		ThemeIcon:    theme.GetThemeIcon(currentTheme),
		SyntaxTheme:  syntaxTheme,
		SyntaxThemes: theme.GetSyntaxThemes(),
		SyntaxCSS:    theme.GenerateSyntaxCSS(syntaxTheme),
		User:         user,
	}
}

func (pd *PageData) SignedIn() bool {
	return pd.User != nil
}

func (pd *PageData) IsAdmin() bool {
	return pd.User != nil && pd.User.IsAdmin
}
