package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "STORYHUB_"

	defaultPort          = 5000
	defaultEnv           = "development"
	defaultSiteURL       = "http://localhost:3000"
	defaultMongoURI      = "mongodb://127.0.0.1:27017"
	defaultMongoDatabase = "storyhub"
	defaultMongoTimeout  = 10 * time.Second
	defaultRedisHost     = "localhost"
	defaultRedisPort     = 6379
	defaultRedisDB       = 0

	defaultJWTExpire           = 7 * 24 * time.Hour
	defaultResetPasswordExpire = time.Hour
	defaultVerificationExpire  = 24 * time.Hour
	defaultEmailCooldown       = 5 * time.Minute

	defaultMediaDriver    = "local"
	defaultLocalMediaDir  = "uploads"
	defaultLocalMediaURL  = "/uploads"
	defaultMaxImageMB     = 10
	defaultMaxVideoMB     = 200
	defaultUploadTimeout  = 5 * time.Minute
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 50
	defaultRateWindow     = time.Second

	DefaultStoryImage = "https://res.cloudinary.com/dmrwcy4v1/image/upload/v1751222753/himlearning/stories/default.jpg"
	DefaultUserPhoto  = "https://res.cloudinary.com/dmrwcy4v1/image/upload/v1751222751/himlearning/users/user.jpg"
)
