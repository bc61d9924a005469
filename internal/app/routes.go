package app

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/modules/auth/auth"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"github.com/himlearning/storyhub/internal/modules/content/announcement"
	"github.com/himlearning/storyhub/internal/modules/content/comment"
	"github.com/himlearning/storyhub/internal/modules/content/story"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/modules/system/admin"
	"github.com/himlearning/storyhub/internal/modules/system/core/health"
	"github.com/himlearning/storyhub/internal/modules/system/maintenance"
	"github.com/himlearning/storyhub/internal/modules/system/util/slugtracker"
	pkgmail "github.com/himlearning/storyhub/internal/pkg/mail"
	"github.com/himlearning/storyhub/internal/pkg/response"
)

const apiPrefix = "/api/v1"

// idempotenceExempt lists POST routes that are reads or toggles.
var idempotenceExempt = []string{
	apiPrefix + "/auth/login",
	apiPrefix + "/story/:slug",
	apiPrefix + "/story/:slug/like",
	apiPrefix + "/user/:slug/addStoryToReadList",
}

func (a *App) registerRoutes() {
	r := a.router
	cfg := a.cfg
	db := a.db.Database
	log := a.logger

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	if local, ok := a.media.(*media.LocalProvider); ok && strings.HasPrefix(local.BaseURL(), "/") {
		r.Static(local.BaseURL(), local.Dir())
	}

	// Stores and services
	limits := media.Limits{MaxImageBytes: cfg.MaxImageBytes(), MaxVideoBytes: cfg.MaxVideoBytes()}
	mailer := pkgmail.New(pkgmail.BuildMailConfig(cfg.Mail))
	if !mailer.Enabled() {
		log.Warn("mail is disabled, verification and reset emails will not be delivered")
	}

	userStore := user.NewMongoStore(db)
	storySvc := story.NewService(story.NewMongoStore(db), slugtracker.NewService(db), a.media, limits, story.Options{
		DefaultImage:  cfg.Media.DefaultImage,
		UploadTimeout: cfg.Media.UploadTimeout,
	}, log)
	userSvc := user.NewService(userStore, storySvc, a.media, limits, log)
	authSvc := auth.NewService(userStore, mailer, a.redis, auth.Options{
		SiteURL:             cfg.SiteURL,
		DefaultAvatar:       cfg.Media.DefaultAvatar,
		JWTExpire:           cfg.Auth.JWTExpire,
		VerificationExpire:  cfg.Auth.VerificationExpire,
		ResetPasswordExpire: cfg.Auth.ResetPasswordExpire,
		ForgotCooldown:      cfg.Auth.EmailCooldown,
	}, log)
	commentSvc := comment.NewService(comment.NewMongoStore(db), storySvc, log)
	announcementSvc := announcement.NewService(announcement.NewMongoStore(db), cfg.Location(), log)
	adminSvc := admin.NewService(admin.NewMongoStore(db), userStore, storySvc, commentSvc, cfg.Media.DefaultAvatar, log)

	maintenance.Register(a.sched, maintenance.NewMongoStore(db), log)

	authMW := middleware.Auth(userSvc)
	optionalMW := middleware.OptionalAuth(userSvc)

	healthHandler := health.NewHandler(map[string]health.Check{
		"mongo": func(ctx context.Context) error { return a.db.Client.Ping(ctx, nil) },
		"redis": func(ctx context.Context) error { return a.redis.Ping(ctx) },
	}, mailer, userStore)
	healthHandler.RegisterRoutes(r.Group(""))

	api := r.Group(apiPrefix)
	api.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))
	api.Use(middleware.RateLimit(a.redis, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow, log))
	api.Use(middleware.Idempotence(a.redis, idempotenceExempt...))

	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"message": "pong"})
	})

	auth.NewHandler(authSvc).RegisterRoutes(api, authMW)
	user.NewHandler(userSvc).RegisterRoutes(api, authMW)
	story.NewHandler(storySvc).RegisterRoutes(api, authMW, optionalMW)
	comment.NewHandler(commentSvc).RegisterRoutes(api, authMW, optionalMW)

	announcementHandler := announcement.NewHandler(announcementSvc)
	announcementHandler.RegisterRoutes(api, optionalMW)

	admin.NewHandler(adminSvc).RegisterRoutes(api, authMW,
		announcementHandler.RegisterAdminRoutes,
		maintenance.NewHandler(a.sched).RegisterAdminRoutes,
		healthHandler.RegisterAdminRoutes,
	)
}
