package main

import (
	"time"

	"github.com/cppla/pans/config"
	"github.com/cppla/pans/models"
	"github.com/cppla/pans/routes"
	"github.com/cppla/pans/services"
	"github.com/cppla/pans/store"
	"github.com/cppla/pans/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.Pan{}, &models.User{})
	sqlDB, err := db.DB()
	if err != nil {
		utils.Sugar.Fatalf("database handle: %v", err)
	}

	var cache store.PanCache = store.NopCache{}
	rc := utils.NewRedisClient(cfg)
	if rc != nil {
		cache = store.NewRedisCache(rc, time.Duration(cfg.CacheTTLSeconds)*time.Second, utils.Logger)
	}

	svc := services.NewPanService(
		store.NewGormStore(db),
		store.NewGormUserDirectory(db),
		cache,
		utils.Logger,
		services.WithMaxAttempts(cfg.CASMaxAttempts),
	)

	r := routes.SetupRouter(cfg, svc, utils.NewTokenBlacklist(rc))

	utils.Sugar.Infof("Starting server on port %s (graceful, store=%s, cache=%t)", cfg.AppPort, cfg.StoreDriver, rc != nil)
	err = utils.GraceServer(":"+cfg.AppPort, r, func() {
		if rc != nil {
			_ = rc.Close()
		}
		_ = sqlDB.Close()
		_ = utils.Logger.Sync()
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
