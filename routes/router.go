package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"

	"github.com/cppla/pans/config"
	"github.com/cppla/pans/controllers"
	"github.com/cppla/pans/middleware"
	"github.com/cppla/pans/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
// blacklist may be nil when Redis is not configured.
func SetupRouter(cfg config.AppConfig, svc controllers.PanService, blacklist *utils.TokenBlacklist) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false)...)
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "x-auth-token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	panController := controllers.NewPanController(svc, utils.Logger)
	statsController := controllers.NewStatsController(panController)

	pans := r.Group("/api/pans")
	pans.Use(middleware.AuthRequired(cfg.JWTSecret, blacklist))

	pans.POST("", panController.CreatePan)
	pans.GET("", panController.ListPans)
	pans.GET("/:id", panController.GetPan)
	pans.DELETE("/:id", panController.DeletePan)
	pans.GET("/:id/stats", statsController.GetPanStats)
	pans.PUT("/:id/like", panController.Like)
	pans.PUT("/:id/unlike", panController.Unlike)
	pans.POST("/:id/comments", panController.AddComment)
	pans.DELETE("/:id/comments/:commentId", panController.DeleteComment)

	// Paths used by existing clients
	pans.PUT("/like/:id", panController.Like)
	pans.PUT("/unlike/:id", panController.Unlike)
	pans.POST("/comment/:id", panController.AddComment)
	pans.DELETE("/comment/:id/:comment_id", panController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "Route not found")
	})

	return r
}
