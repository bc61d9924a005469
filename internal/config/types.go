package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int         `yaml:"port"`
	Env            string      `yaml:"env"` // "development" | "production"
	SiteURL        string      `yaml:"site_url"`
	AllowedOrigins []string    `yaml:"allowed_origins"`
	Timezone       string      `yaml:"timezone"`
	LogDir         string      `yaml:"log_dir"`
	Mongo          MongoConfig `yaml:"mongo"`
	Redis          RedisConfig `yaml:"redis"`
	Auth           AuthConfig  `yaml:"auth"`
	Media          MediaConfig `yaml:"media"`
	Mail           MailConfig  `yaml:"mail"`
	HTTP           HTTPConfig  `yaml:"http"`
	Admin          AdminSeed   `yaml:"admin"`
	RedisURL       string      `yaml:"-"`
	location       *time.Location
}

type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret"`
	JWTExpire           time.Duration `yaml:"jwt_expire"`
	ResetPasswordExpire time.Duration `yaml:"reset_password_expire"`
	VerificationExpire  time.Duration `yaml:"verification_expire"`
	EmailCooldown       time.Duration `yaml:"email_cooldown"`
}

type MediaConfig struct {
	Driver                 string        `yaml:"driver"` // "s3" | "local"
	DefaultImage           string        `yaml:"default_image"`
	DefaultAvatar          string        `yaml:"default_avatar"`
	MaxImageMB             int64         `yaml:"max_image_mb"`
	MaxVideoMB             int64         `yaml:"max_video_mb"`
	UploadTimeout          time.Duration `yaml:"upload_timeout"`
	VideoThumbnailTemplate string        `yaml:"video_thumbnail_template"`
	S3                     S3Config      `yaml:"s3"`
	Local                  LocalConfig   `yaml:"local"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CustomDomain    string `yaml:"custom_domain"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
}

type LocalConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

type MailConfig struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

type HTTPConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
}

// AdminSeed is the account created by cmd/createadmin.
type AdminSeed struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}
