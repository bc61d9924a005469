package app

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/config"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	jwtpkg "github.com/himlearning/storyhub/internal/pkg/jwt"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.uber.org/zap"
)

func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) {
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	response.SetDebug(cfg.IsDev())

	if secret := strings.TrimSpace(cfg.Auth.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("auth.jwt_secret is empty, using built-in development secret")
	}
}

func newMediaProvider(cfg *config.AppConfig) (media.Provider, error) {
	tpl := cfg.Media.VideoThumbnailTemplate
	if cfg.Media.Driver == "s3" {
		p, err := media.NewS3Provider(cfg.Media.S3, tpl)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	p, err := media.NewLocalProvider(cfg.Media.Local.Dir, cfg.Media.Local.BaseURL, tpl)
	if err != nil {
		return nil, err
	}
	return p, nil
}
