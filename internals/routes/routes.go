package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/efeozell/SocialMedia-API/internals/cache"
	"github.com/efeozell/SocialMedia-API/internals/config"
	"github.com/efeozell/SocialMedia-API/internals/controllers"
	"github.com/efeozell/SocialMedia-API/internals/middleware"
	"github.com/efeozell/SocialMedia-API/internals/models"
	"github.com/efeozell/SocialMedia-API/internals/stores"
	"github.com/efeozell/SocialMedia-API/internals/utils"
)

// Dependencies carries the process-wide handles SetupRouter wires the
// application from.
type Dependencies struct {
	DB     *mongo.Database
	Redis  *redis.Client
	Logger *zap.Logger
}

// SetupRouter builds the full HTTP surface: stores, token and email
// managers, controllers, middleware and route groups.
func SetupRouter(deps Dependencies) *gin.Engine {
	cookieConfig := &config.CookieConfig{
		Domain:   config.GetEnvAsStr("COOKIE_DOMAIN", ""),
		IsSecure: config.GetEnvAsStr("SECURE_COOKIE", "false") == "true",
		HttpOnly: true,
	}

	tokenCache := cache.NewRedisTokenCache(deps.Redis, config.GetEnvAsStr("PROJECT_PREFIX", "socialmedia"))

	accessTTL := time.Duration(config.GetEnvAsInt("ACCESS_TOKEN_TTL_SECONDS", 900)) * time.Second
	refreshTTL := time.Duration(config.GetEnvAsInt("REFRESH_TOKEN_TTL_SECONDS", 604800)) * time.Second
	verificationTTL := time.Duration(config.GetEnvAsInt("EMAIL_TOKEN_TTL_MINUTES", 15)) * time.Minute
	twoFactorTTL := time.Duration(config.GetEnvAsInt("TWO_FACTOR_TTL_MINUTES", 10)) * time.Minute

	tokenManager := utils.NewTokenManager(
		tokenCache,
		cookieConfig,
		config.GetEnv("JWT_ACCESS_SECRET"),
		config.GetEnv("JWT_REFRESH_SECRET"),
		accessTTL,
		refreshTTL,
		deps.Logger,
	)

	emailManager := utils.NewEmailManager(&utils.SMTPConfig{
		Host:            config.GetEnv("SMTP_HOST"),
		Port:            config.GetEnvAsInt("SMTP_PORT", 587),
		User:            config.GetEnv("SMTP_USER"),
		Password:        config.GetEnv("SMTP_PASSWORD"),
		AppName:         config.GetEnvAsStr("APP_NAME", "SocialMedia API"),
		BaseURL:         config.GetEnvAsStr("APP_BASE_URL", "http://localhost:3000"),
		TokenExpMinutes: int(verificationTTL.Minutes()),
		CodeExpMinutes:  int(twoFactorTTL.Minutes()),
	})

	userStore := stores.NewMongoUserStore(deps.DB)
	postStore := stores.NewMongoPostStore(deps.DB)
	commentStore := stores.NewMongoCommentStore(deps.DB)
	storyStore := stores.NewMongoStoryStore(deps.DB)

	authController := controllers.NewAuthController(userStore, tokenManager, emailManager, deps.Logger, verificationTTL, twoFactorTTL)
	userController := controllers.NewUserController(userStore, deps.Logger)
	postController := controllers.NewPostController(postStore, userStore, deps.Logger)
	commentController := controllers.NewCommentController(commentStore, postStore, userStore, deps.Logger)
	storyController := controllers.NewStoryController(storyStore, userStore, deps.Logger)

	authMiddleware := middleware.NewRequireAuthMiddleware(userStore, tokenManager, deps.Logger)

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/signup", authController.Signup)
		auth.POST("/login", authController.Login)
		auth.POST("/verify-2fa", authController.VerifyTwoFactor)
		auth.POST("/refresh-token", authController.RefreshToken)
		auth.GET("/verify-email/:token", authController.VerifyEmail)

		auth.POST("/logout", authMiddleware.RequireAuth, authController.Logout)
		auth.POST("/enable-2fa", authMiddleware.RequireAuth, authController.EnableTwoFactor)
		auth.POST("/resend-verification", authMiddleware.RequireAuth, authController.ResendVerification)
		auth.POST("/reset-password", authMiddleware.RequireAuth, middleware.RequireEmailVerified, authController.ResetPassword)
	}

	users := r.Group("/users", authMiddleware.RequireAuth)
	{
		users.GET("/me", userController.GetMe)
		users.PUT("/me", userController.UpdateProfile)
		users.GET("/search", userController.SearchUsers)
		users.GET("/blocked-users", userController.GetBlockedUsers)
		users.GET("/:userId", userController.GetUserByID)
		users.POST("/follow/:userId", userController.Follow)
		users.POST("/unfollow/:userId", userController.Unfollow)
		users.POST("/block/:userId", userController.Block)
		users.POST("/unblock/:userId", userController.Unblock)
	}

	posts := r.Group("/posts", authMiddleware.RequireAuth, middleware.RequireEmailVerified)
	{
		posts.POST("", postController.Create)
		posts.GET("/all", postController.GetFeed)
		posts.GET("/user/:userId", postController.GetUserPosts)
		posts.GET("/:postId", postController.GetByID)
		posts.PUT("/update/:postId", postController.Update)
		posts.DELETE("/:postId", postController.Delete)
		posts.POST("/like/:postId", postController.Like)
		posts.POST("/dislike/:postId", postController.Dislike)
	}

	comments := r.Group("/comments", authMiddleware.RequireAuth, middleware.RequireEmailVerified)
	{
		comments.POST("", commentController.Create)
		comments.GET("/post/:postId", commentController.GetForPost)
		comments.POST("/reply/:commentId", commentController.Reply)
		comments.PUT("/:commentId", commentController.Update)
		comments.DELETE("/:commentId", commentController.Delete)
		comments.POST("/like/:commentId", commentController.Like)
		comments.POST("/unlike/:commentId", commentController.Unlike)
	}

	stories := r.Group("/stories", authMiddleware.RequireAuth, middleware.RequireEmailVerified)
	{
		stories.POST("", storyController.Create)
		stories.GET("/feed", storyController.GetFeed)
		stories.GET("/user/:userId", storyController.GetUserStories)
		stories.DELETE("/:storyId", storyController.Delete)
	}

	admin := r.Group("/admin", authMiddleware.RequireAuth, middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", userController.ListUsers)
	}

	return r
}
