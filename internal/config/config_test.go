package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSetLogger(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	SetLogger(logger)

	// This test mainly ensures the function doesn't panic
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Site.Name != "熊小屋" {
			t.Errorf("Expected site name '熊小屋', got %q", config.Site.Name)
		}
		if config.Server.Port != "12600" {
			t.Errorf("Expected port '12600', got %q", config.Server.Port)
		}
		if config.Server.ShutdownTimeout != 30*time.Second {
			t.Errorf("Expected shutdown timeout 30s, got %v", config.Server.ShutdownTimeout)
		}
		if config.Server.MaxUploadBytes != 10<<20 {
			t.Errorf("Expected max upload 10MiB, got %d", config.Server.MaxUploadBytes)
		}
		if config.Database.Driver != "sqlite3" {
			t.Errorf("Expected sqlite3 driver, got %q", config.Database.Driver)
		}
		if config.Content.PostsPerPage != 5 {
			t.Errorf("Expected posts per page 5, got %d", config.Content.PostsPerPage)
		}
		if config.Editor.AutosaveDelay != time.Second {
			t.Errorf("Expected autosave delay 1s, got %v", config.Editor.AutosaveDelay)
		}
		if config.Storage.Bucket != "blog-images" {
			t.Errorf("Expected bucket 'blog-images', got %q", config.Storage.Bucket)
		}
		if config.Auth.RateLimit != 0.2 {
			t.Errorf("Expected rate limit 0.2, got %v", config.Auth.RateLimit)
		}
		if config.Drafts.Retention != 0 {
			t.Errorf("Expected retention disabled, got %v", config.Drafts.Retention)
		}
		if config.Storage.Endpoint != "" {
			t.Errorf("Expected empty endpoint, got %q", config.Storage.Endpoint)
		}
	})

	t.Run("Non-struct input is ignored", func(t *testing.T) {
		s := "unchanged"
		applyDefaults(&s)
		if s != "unchanged" {
			t.Errorf("Expected string to be untouched, got %q", s)
		}
	})

	t.Run("Slices and floats", func(t *testing.T) {
		type sample struct {
			Tags  []string `default:"a, b,c"`
			Ratio float64  `default:"1.5"`
		}
		s := &sample{}
		ApplyDefaults(s)
		if len(s.Tags) != 3 || s.Tags[1] != "b" {
			t.Errorf("Expected [a b c], got %v", s.Tags)
		}
		if s.Ratio != 1.5 {
			t.Errorf("Expected 1.5, got %v", s.Ratio)
		}
	})
}

func TestLoad(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Content.PostsPerPage != 5 {
			t.Errorf("Expected default posts per page, got %d", cfg.Content.PostsPerPage)
		}
		if AppConfig != cfg {
			t.Error("Expected AppConfig to be replaced")
		}
	})

	t.Run("File overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "site:\n  name: Test Cabin\ncontent:\n  posts_per_page: 10\neditor:\n  autosave_delay: 250ms\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Site.Name != "Test Cabin" {
			t.Errorf("Expected 'Test Cabin', got %q", cfg.Site.Name)
		}
		if cfg.Content.PostsPerPage != 10 {
			t.Errorf("Expected 10 posts per page, got %d", cfg.Content.PostsPerPage)
		}
		if cfg.Editor.AutosaveDelay != 250*time.Millisecond {
			t.Errorf("Expected 250ms, got %v", cfg.Editor.AutosaveDelay)
		}
		if cfg.Server.Port != "12600" {
			t.Errorf("Expected untouched default port, got %q", cfg.Server.Port)
		}
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		t.Setenv("KUMAGOYA_PORT", "9999")
		t.Setenv("S3_BUCKET", "other-bucket")

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Server.Port != "9999" {
			t.Errorf("Expected port from env, got %q", cfg.Server.Port)
		}
		if cfg.Storage.Bucket != "other-bucket" {
			t.Errorf("Expected bucket from env, got %q", cfg.Storage.Bucket)
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("site: [unclosed"), 0o644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Expected parse error")
		}
	})
}

func TestAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.Addr(); got != "0.0.0.0:12600" {
		t.Errorf("Expected 0.0.0.0:12600, got %q", got)
	}
}
