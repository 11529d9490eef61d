package initializers

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/efeozell/SocialMedia-API/internals/config"
)

// ConnectDB connects to MongoDB using MONGO_URI and MONGO_DB and verifies
// the connection with a ping.
func ConnectDB(ctx context.Context) (*mongo.Database, error) {
	uri := config.GetEnv("MONGO_URI")
	dbName := config.GetEnvAsStr("MONGO_DB", "socialmedia")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client.Database(dbName), nil
}
