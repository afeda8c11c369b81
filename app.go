package main

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"

	"github.com/alexedwards/scs/v2"
	"github.com/kumagoya/kumagoya/internal/auth"
	"github.com/kumagoya/kumagoya/internal/cache"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/editor"
	"github.com/kumagoya/kumagoya/internal/events"
	"github.com/kumagoya/kumagoya/internal/jobs"
	"github.com/kumagoya/kumagoya/internal/logger"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/og"
	"github.com/kumagoya/kumagoya/internal/render"
	"github.com/kumagoya/kumagoya/internal/repository"
	"github.com/kumagoya/kumagoya/internal/service"
	"github.com/kumagoya/kumagoya/internal/sse"
	"github.com/kumagoya/kumagoya/internal/storage"
	"github.com/rs/zerolog"
)

type application struct {
	cfg     *config.Config
	logger  zerolog.Logger
	content fs.FS

	templates map[string]*template.Template

	db       db.DB
	store    cache.Store
	bus      events.Bus
	sessions *scs.SessionManager
	auth     *auth.Service
	posts    *service.PostService
	editors  *editor.Manager
	images   storage.ImageStore
	// uploads serves locally stored images; nil when images live in object storage.
	uploads   http.Handler
	clients   *sse.SSEClients
	scheduler *jobs.Scheduler

	closeOnce sync.Once
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(logger.Component(l, "config"))
	db.SetLogger(logger.Component(l, "db"))
	cache.SetLogger(logger.Component(l, "cache"))
	repository.SetLogger(logger.Component(l, "repository"))
	render.SetLogger(logger.Component(l, "render"))
	service.SetLogger(logger.Component(l, "service"))
	editor.SetLogger(logger.Component(l, "editor"))
	events.SetLogger(logger.Component(l, "events"))
	storage.SetLogger(logger.Component(l, "storage"))
	auth.SetLogger(logger.Component(l, "auth"))
	jobs.SetLogger(logger.Component(l, "jobs"))
	og.SetLogger(logger.Component(l, "og"))
}

// newApplication connects every backend named in cfg and wires the services. content holds
// the templates and static files.
func newApplication(ctx context.Context, cfg *config.Config, l zerolog.Logger, content fs.FS) (*application, error) {
	setLoggers(l)

	app := &application{
		cfg:     cfg,
		logger:  l,
		content: content,
		clients: sse.NewSSEClients(),
	}

	templates, err := newTemplateCache(content, cfg)
	if err != nil {
		return nil, err
	}
	app.templates = templates

	if err := app.openDatabase(ctx); err != nil {
		return nil, err
	}

	app.store, err = cache.NewStore(ctx, cache.StoreOptions{
		Driver:          cfg.Cache.Driver,
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
	})
	if err != nil {
		app.close()
		return nil, fmt.Errorf("error creating cache store: %w", err)
	}

	drafts := repository.NewDBDraftRepository(app.db)
	posts := repository.NewCachedPostRepository(repository.NewDBPostRepository(app.db), app.store)

	app.bus, err = events.New(cfg.Events.NatsURL, cfg.Events.Subject)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("error connecting to event bus: %w", err)
	}
	if err := app.bus.Subscribe(posts); err != nil {
		app.close()
		return nil, fmt.Errorf("error subscribing to post events: %w", err)
	}

	app.images, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("error creating image storage: %w", err)
	}
	if cfg.Storage.Driver == "fs" || cfg.Storage.Driver == "" {
		app.uploads = storage.NewFSStore(cfg.Storage.LocalDir, config.UploadsUrlPath).Handler()
	}

	app.posts = service.NewPostService(posts, drafts, app.bus)
	app.editors = editor.NewManager(editor.Options{
		AutosaveDelay: cfg.Editor.AutosaveDelay,
		SessionIdle:   cfg.Editor.SessionIdle,
		Backend:       app.posts,
		Images:        app.images,
		Observer: func(userID model.UserID, state string) {
			app.clients.Broadcast(userID, state)
		},
	})

	app.sessions = auth.NewSessionManager(app.db, cfg.Auth.SessionLifetime, cfg.Server.Dev)
	app.auth = auth.NewService(repository.NewDBUserRepository(app.db), app.sessions, auth.Options{
		MinPassword: cfg.Auth.MinPassword,
		RateLimit:   cfg.Auth.RateLimit,
		RateBurst:   cfg.Auth.RateBurst,
	})

	app.scheduler = jobs.New()
	if err := app.scheduler.AddDraftPurge(cfg.Drafts.PurgeSchedule, cfg.Drafts.Retention, drafts); err != nil {
		app.close()
		return nil, err
	}
	app.scheduler.Start()

	return app, nil
}

func (app *application) openDatabase(ctx context.Context) error {
	d, err := db.Open(app.cfg.Database.Driver, app.cfg.Database.DSN, db.Pool{
		MaxOpenConns: app.cfg.Database.MaxOpenConns,
		MaxIdleConns: app.cfg.Database.MaxIdleConns,
		MaxIdleTime:  app.cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return err
	}
	if err := d.Init(ctx); err != nil {
		return err
	}
	app.db = d

	if err := db.Migrate(ctx, d); err != nil {
		app.close()
		return err
	}
	return nil
}

// close releases the backends in reverse order of creation. It is safe to call more than once.
func (app *application) close() {
	app.closeOnce.Do(func() {
		if app.scheduler != nil {
			app.scheduler.Stop()
		}
		if app.sessions != nil {
			if s, ok := app.sessions.Store.(interface{ StopCleanup() }); ok {
				s.StopCleanup()
			}
		}
		if app.bus != nil {
			app.bus.Close()
		}
		if c, ok := app.store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				app.logger.Warn().Err(err).Msg("Error closing cache store")
			}
		}
		if app.db != nil {
			if err := app.db.Close(); err != nil {
				app.logger.Warn().Err(err).Msg("Error closing database")
			}
		}
	})
}
