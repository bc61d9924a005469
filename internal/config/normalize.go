package config

import "strings"

func normalize(cfg *AppConfig, base string) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.SiteURL = strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/")
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.LogDir = resolvePath(cfg.LogDir, "", base)
	cfg.Mongo.URI = strings.TrimSpace(cfg.Mongo.URI)
	cfg.Mongo.Database = strings.TrimSpace(cfg.Mongo.Database)
	if cfg.Mongo.Timeout <= 0 {
		cfg.Mongo.Timeout = defaultMongoTimeout
	}
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.RedisURL = cfg.Redis.URLValue()

	a := &cfg.Auth
	a.JWTSecret = strings.TrimSpace(a.JWTSecret)
	if a.JWTExpire <= 0 {
		a.JWTExpire = defaultJWTExpire
	}
	if a.ResetPasswordExpire <= 0 {
		a.ResetPasswordExpire = defaultResetPasswordExpire
	}
	if a.VerificationExpire <= 0 {
		a.VerificationExpire = defaultVerificationExpire
	}
	if a.EmailCooldown < 0 {
		a.EmailCooldown = defaultEmailCooldown
	}

	m := &cfg.Media
	m.Driver = strings.ToLower(strings.TrimSpace(m.Driver))
	if m.Driver == "" {
		m.Driver = defaultMediaDriver
	}
	if strings.TrimSpace(m.DefaultImage) == "" {
		m.DefaultImage = DefaultStoryImage
	}
	if strings.TrimSpace(m.DefaultAvatar) == "" {
		m.DefaultAvatar = DefaultUserPhoto
	}
	if m.UploadTimeout <= 0 {
		m.UploadTimeout = defaultUploadTimeout
	}
	m.S3.Endpoint = strings.TrimSpace(m.S3.Endpoint)
	m.S3.Bucket = strings.TrimSpace(m.S3.Bucket)
	m.S3.Region = strings.TrimSpace(m.S3.Region)
	m.S3.AccessKeyID = strings.TrimSpace(m.S3.AccessKeyID)
	m.S3.SecretAccessKey = strings.TrimSpace(m.S3.SecretAccessKey)
	m.S3.CustomDomain = strings.TrimRight(strings.TrimSpace(m.S3.CustomDomain), "/")
	m.Local.Dir = resolvePath(m.Local.Dir, defaultLocalMediaDir, base)
	m.Local.BaseURL = strings.TrimRight(strings.TrimSpace(m.Local.BaseURL), "/")
	if m.Local.BaseURL == "" {
		m.Local.BaseURL = defaultLocalMediaURL
	}

	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = defaultRequestTimeout
	}
	if cfg.HTTP.RateLimit <= 0 {
		cfg.HTTP.RateLimit = defaultRateLimit
	}
	if cfg.HTTP.RateWindow <= 0 {
		cfg.HTTP.RateWindow = defaultRateWindow
	}
}

func normalizeRedisConfig(cfg RedisConfig) RedisConfig {
	cfg.URL = normalizeRedisRawURL(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)
	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))

	if cfg.Host == "" && cfg.URL == "" {
		cfg.Host = defaultRedisHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultRedisPort
	}
	if cfg.Scheme == "" {
		if cfg.TLS {
			cfg.Scheme = "rediss"
		} else {
			cfg.Scheme = "redis"
		}
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

func normalizeRedisRawURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "redis://") || strings.HasPrefix(trimmed, "rediss://") {
		return trimmed
	}
	return "redis://" + trimmed
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	if trimmed == "" {
		return defaultEnv
	}
	return trimmed
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
