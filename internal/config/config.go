package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies STORYHUB_* environment
// overrides and validates the result. A missing file is not an error when
// the path is the default one, so the server can run from the environment alone.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := defaultAppConfig()
	loaded := false
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		loaded = true
		if err := decode(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	applyEnv(&cfg, os.LookupEnv)
	normalize(&cfg, baseDir(path, loaded))
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

func decode(content []byte, cfg *AppConfig) error {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:    defaultPort,
		Env:     defaultEnv,
		SiteURL: defaultSiteURL,
		Mongo: MongoConfig{
			URI:      defaultMongoURI,
			Database: defaultMongoDatabase,
			Timeout:  defaultMongoTimeout,
		},
		Redis: RedisConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Auth: AuthConfig{
			JWTExpire:           defaultJWTExpire,
			ResetPasswordExpire: defaultResetPasswordExpire,
			VerificationExpire:  defaultVerificationExpire,
			EmailCooldown:       defaultEmailCooldown,
		},
		Media: MediaConfig{
			Driver:        defaultMediaDriver,
			DefaultImage:  DefaultStoryImage,
			DefaultAvatar: DefaultUserPhoto,
			MaxImageMB:    defaultMaxImageMB,
			MaxVideoMB:    defaultMaxVideoMB,
			UploadTimeout: defaultUploadTimeout,
			Local: LocalConfig{
				Dir:     defaultLocalMediaDir,
				BaseURL: defaultLocalMediaURL,
			},
		},
		HTTP: HTTPConfig{
			RequestTimeout: defaultRequestTimeout,
			RateLimit:      defaultRateLimit,
			RateWindow:     defaultRateWindow,
		},
	}
}

// applyEnv overrides secrets and endpoints from the environment.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	num("PORT", &cfg.Port)
	str("ENV", &cfg.Env)
	str("SITE_URL", &cfg.SiteURL)
	str("LOG_DIR", &cfg.LogDir)
	str("MONGO_URI", &cfg.Mongo.URI)
	str("MONGO_DATABASE", &cfg.Mongo.Database)
	str("REDIS_URL", &cfg.Redis.URL)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("MEDIA_DRIVER", &cfg.Media.Driver)
	str("S3_ENDPOINT", &cfg.Media.S3.Endpoint)
	str("S3_BUCKET", &cfg.Media.S3.Bucket)
	str("S3_REGION", &cfg.Media.S3.Region)
	str("S3_ACCESS_KEY_ID", &cfg.Media.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &cfg.Media.S3.SecretAccessKey)
	str("S3_CUSTOM_DOMAIN", &cfg.Media.S3.CustomDomain)
	flag("MAIL_ENABLE", &cfg.Mail.Enable)
	str("SMTP_HOST", &cfg.Mail.Host)
	num("SMTP_PORT", &cfg.Mail.Port)
	str("SMTP_USER", &cfg.Mail.User)
	str("SMTP_PASS", &cfg.Mail.Pass)
	str("MAIL_FROM", &cfg.Mail.From)
	str("RESEND_KEY", &cfg.Mail.ResendKey)
	str("ADMIN_USERNAME", &cfg.Admin.Username)
	str("ADMIN_EMAIL", &cfg.Admin.Email)
	str("ADMIN_PASSWORD", &cfg.Admin.Password)
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		return errors.New("mongo.uri and mongo.database are required")
	}
	if c.Redis.URL == "" && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if err := checkRedisURL(c.RedisURL); err != nil {
		return err
	}
	if c.Media.MaxImageMB <= 0 || c.Media.MaxVideoMB <= 0 {
		return errors.New("media size limits must be positive")
	}
	switch c.Media.Driver {
	case "local":
	case "s3":
		s3 := c.Media.S3
		if s3.Bucket == "" || s3.Region == "" || s3.AccessKeyID == "" || s3.SecretAccessKey == "" {
			return errors.New("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
		}
	default:
		return fmt.Errorf("unknown media.driver %q, expected s3 or local", c.Media.Driver)
	}
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		c.location = loc
	}
	if !c.IsDev() && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required outside development")
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Location is the zone used for date-only values such as announcement expiry.
func (c *AppConfig) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.Local
}

// MaxImageBytes is the upload ceiling for images.
func (c *AppConfig) MaxImageBytes() int64 { return c.Media.MaxImageMB << 20 }

// MaxVideoBytes is the upload ceiling for videos.
func (c *AppConfig) MaxVideoBytes() int64 { return c.Media.MaxVideoMB << 20 }
