package main

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/efeozell/SocialMedia-API/internals/config"
	"github.com/efeozell/SocialMedia-API/internals/initializers"
	"github.com/efeozell/SocialMedia-API/internals/routes"
	"github.com/efeozell/SocialMedia-API/internals/stores"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded, falling back to process environment")
	}

	ctx := context.Background()

	db, err := initializers.ConnectDB(ctx)
	if err != nil {
		logger.Fatal("mongodb connection failed", zap.Error(err))
	}
	if err := stores.NewMongoUserStore(db).EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongodb index setup failed", zap.Error(err))
	}

	rdb, err := initializers.ConnectRedis(ctx)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	r := routes.SetupRouter(routes.Dependencies{DB: db, Redis: rdb, Logger: logger})

	port := config.GetEnvAsStr("PORT", "3000")
	logger.Info("server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
