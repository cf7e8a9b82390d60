package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/controllers"
	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

// SetupRouter wires routes, middlewares, and controllers using the loaded configuration.
func SetupRouter(db *gorm.DB) *gin.Engine {
	r, _ := Build(db, config.Get())
	return r
}

// Build creates the engine and the named route table it registered.
func Build(db *gorm.DB, cfg config.AppConfig) (*gin.Engine, *URLs) {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.GinzapWithConfig(gl, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			Context:    utils.RequestIDFields,
		}))
		r.Use(ginzap.CustomRecoveryWithZap(gl, true, func(ctx *gin.Context, _ any) {
			utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
			ctx.Abort()
		}))
	} else {
		utils.Sugar.Warnf("gin logger unavailable, using default recovery: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Location", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	urls := NewURLs()

	posts := repository.NewPostRepository(db)
	users := repository.NewUserRepository(db)
	admins := controllers.NewAdmins(cfg.AdminUsernames)
	postController := controllers.NewPostController(posts, users, urls, cfg.PostsPerPage, admins)
	authController := controllers.NewAuthController(users, time.Duration(cfg.TokenTTLHours)*time.Hour, admins)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	urls.Handle(r, http.MethodGet, controllers.HomeRoute, "/", postController.ListPosts)
	urls.Handle(r, http.MethodGet, "blog-about", "/about/", postController.About)
	urls.Handle(r, http.MethodGet, "user-posts", "/user/:username", postController.ListUserPosts)
	urls.Handle(r, http.MethodGet, "post-detail", "/post/:pk/", postController.GetPost)

	limited := r.Group("")
	limited.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	urls.Handle(limited, http.MethodPost, "register", "/register/", authController.Register)
	urls.Handle(limited, http.MethodPost, "login", "/login/", authController.Login)

	protected := r.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	urls.Handle(protected, http.MethodPost, "logout", "/logout/", authController.Logout)
	urls.Handle(protected, http.MethodGet, "profile", "/profile/", authController.Profile)
	urls.Handle(protected, http.MethodDelete, "profile-delete", "/profile/", authController.DeleteProfile)
	urls.Handle(protected, http.MethodPost, "post-create", "/post/new/", postController.CreatePost)
	urls.Handle(protected, http.MethodPut, "post-update", "/post/:pk/", postController.UpdatePost)
	urls.Handle(protected, http.MethodDelete, "post-delete", "/post/:pk/", postController.DeletePost)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r, urls
}
