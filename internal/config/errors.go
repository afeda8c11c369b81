package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrMigrateDatabaseFmt    = "Failed to migrate database: %v"

	// Page errors shown to readers
	ErrPostNotFound   = "記事が見つかりません"
	ErrPageNotFound   = "ページが見つかりません"
	ErrPageFailed     = "ページを表示できませんでした"
	ErrDeleteFailed   = "記事の削除に失敗しました。"
	ErrUploadFailed   = "画像のアップロードに失敗しました。"
	ErrSaveFailed     = "保存に失敗しました。"
	ErrTooManyRequest = "too many requests"

	ErrInternalServerError = "Internal server error"
)
