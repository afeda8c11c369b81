// Package config loads the application configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Editor   EditorConfig   `yaml:"editor"`
	Content  ContentConfig  `yaml:"content"`
	Drafts   DraftsConfig   `yaml:"drafts"`
	Events   EventsConfig   `yaml:"events"`
	Theme    ThemeConfig    `yaml:"theme"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"KUMAGOYA_LOG_LEVEL" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"熊小屋"`
	Heading     string `yaml:"heading" default:"山蔭の熊小屋"`
	Description string `yaml:"description" default:"A small cabin in the mountain shade"`
	BaseURL     string `yaml:"base_url" env:"KUMAGOYA_BASE_URL" default:"http://localhost:12600"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"KUMAGOYA_HOST" default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"KUMAGOYA_PORT" default:"12600"`
	Dev             bool          `yaml:"dev" env:"KUMAGOYA_DEV" default:"false"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"1m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" default:"10485760"`
}

type DatabaseConfig struct {
	Driver       string        `yaml:"driver" env:"KUMAGOYA_DATABASE_DRIVER" default:"sqlite3"`
	DSN          string        `yaml:"dsn" env:"KUMAGOYA_DATABASE_DSN" default:"./database.db"`
	MaxOpenConns int           `yaml:"max_open_conns" default:"25"`
	MaxIdleConns int           `yaml:"max_idle_conns" default:"25"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time" default:"15m"`
}

type CacheConfig struct {
	Driver          string        `yaml:"driver" env:"KUMAGOYA_CACHE_DRIVER" default:"memory"`
	TTL             time.Duration `yaml:"ttl" default:"5m"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"10m"`
	RedisAddr       string        `yaml:"redis_addr" env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string        `yaml:"redis_password" env:"REDIS_PASSWORD" default:""`
	RedisDB         int           `yaml:"redis_db" env:"REDIS_DB" default:"0"`
}

type StorageConfig struct {
	Driver          string `yaml:"driver" env:"KUMAGOYA_STORAGE_DRIVER" default:"fs"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" default:"blog-images"`
	Region          string `yaml:"region" env:"S3_REGION" default:"auto"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" default:""`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" default:""`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" default:""`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" default:""`
	UsePathStyle    bool   `yaml:"use_path_style" default:"false"`
	LocalDir        string `yaml:"local_dir" default:"./uploads"`
	MaxWidth        int    `yaml:"max_width" default:"1600"`
	CacheControl    string `yaml:"cache_control" default:"max-age=3600"`
}

type AuthConfig struct {
	SessionLifetime time.Duration `yaml:"session_lifetime" default:"168h"`
	CSRFKey         string        `yaml:"csrf_key" env:"KUMAGOYA_CSRF_KEY" default:""`
	MinPassword     int           `yaml:"min_password" default:"6"`
	RateLimit       float64       `yaml:"rate_limit" default:"0.2"`
	RateBurst       int           `yaml:"rate_burst" default:"5"`
}

type EditorConfig struct {
	AutosaveDelay time.Duration `yaml:"autosave_delay" default:"1s"`
	SessionIdle   time.Duration `yaml:"session_idle" default:"30m"`
}

type ContentConfig struct {
	PostsPerPage int    `yaml:"posts_per_page" default:"5"`
	ExcerptRunes int    `yaml:"excerpt_runes" default:"140"`
	DateFormat   string `yaml:"date_format" default:"2006年1月2日"`
}

type DraftsConfig struct {
	Retention     time.Duration `yaml:"retention" default:"0s"`
	PurgeSchedule string        `yaml:"purge_schedule" default:"@daily"`
}

type EventsConfig struct {
	NatsURL string `yaml:"nats_url" env:"NATS_URL" default:""`
	Subject string `yaml:"subject" default:"kumagoya.posts"`
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"dark-theme"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"monokai"`
	DefaultLight string `yaml:"default_light" default:"github"`
}

var AppConfig *Config

func init() {
	AppConfig = Default()
}

// Default returns a Config with every default tag applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path on top of the defaults, then the .env file and the
// process environment. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		configLogger.Warn().Err(err).Msg("Error loading .env file")
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	AppConfig = cfg
	return cfg, nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue, ok := fieldType.Tag.Lookup("default")
		if !ok || defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if field.Type() == durationType {
				if d, err := time.ParseDuration(defaultValue); err == nil {
					field.SetInt(int64(d))
				}
				continue
			}
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
