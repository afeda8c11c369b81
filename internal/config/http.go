package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"
	HLocation     = "Location"

	CTypeCSS   = "text/css"
	CTypeHTML  = "text/html; charset=utf-8"
	CTypePNG   = "image/png"
	CTypePlain = "text/plain; charset=utf-8"
	CTypeSSE   = "text/event-stream"
	CTypeJSON  = "application/json"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)

const (
	CookieTheme       = "theme"
	CookieSyntaxTheme = "syntax-theme"
	CookieSession     = "kumagoya_session"
)

const (
	SessionKeyUserID = "user_id"
	SessionKeyFlash  = "flash"
)
