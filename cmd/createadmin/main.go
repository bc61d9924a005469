// Command createadmin creates the administrator account named in the
// config file or the STORYHUB_ADMIN_* environment variables.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/himlearning/storyhub/internal/config"
	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"github.com/himlearning/storyhub/internal/modules/system/admin"
	"github.com/himlearning/storyhub/internal/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	log, err := logger.New(logger.Options{Dev: true})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer db.Close(context.Background())

	u, created, err := admin.Seed(ctx, user.NewMongoStore(db.Database), cfg.Admin, cfg.Media.DefaultAvatar, log)
	if err != nil {
		log.Fatal("failed to create admin", zap.Error(err))
	}
	if created {
		log.Info("admin user created", zap.String("id", u.ID.Hex()))
	}
}
