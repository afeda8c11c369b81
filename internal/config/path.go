package config

const (
	//? These paths must match the paths in the embed directive

	StaticLocalDir = "static"
	StaticUrlPath  = "/" + StaticLocalDir + "/"

	UploadsUrlPath = "/uploads/"

	PostsUrlPath = "/posts/"

	TemplatesLocalDir = "templates"

	TemplateLayout  = "layout.html"
	TemplateIndex   = "index.html"
	TemplatePost    = "post.html"
	TemplateEditor  = "editor.html"
	TemplateDelete  = "delete.html"
	TemplateDrafts  = "drafts.html"
	TemplateLogin   = "login.html"
	TemplateSignup  = "signup.html"
	TemplateError   = "error.html"
)
