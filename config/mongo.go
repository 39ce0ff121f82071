package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDatabaseName reads MONGO_DATABASE, defaulting to "autoservice".
func MongoDatabaseName() string {
	if name := strings.TrimSpace(os.Getenv("MONGO_DATABASE")); name != "" {
		return name
	}
	return "autoservice"
}

// ConnectMongoWithRetry blocks until Mongo answers a ping.
// It returns nil only when ctx is cancelled before a connection succeeds.
func ConnectMongoWithRetry(ctx context.Context) *mongo.Client {
	godotenv.Load()
	uri := strings.TrimSpace(os.Getenv("MONGO_URI"))
	if uri == "" {
		uri = "mongodb://localhost:27017"
		log.Printf("MONGO_URI not set; defaulting to %s", uri)
	}

	var attempt int
	for {
		attempt++
		client, err := mongo.Connect(options.Client().ApplyURI(uri))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, nil)
			cancel()
			if err == nil {
				log.Printf("connected to mongo (attempt=%d)", attempt)
				return client
			}
			_ = client.Disconnect(context.Background())
		}

		sleep := retryDelay(attempt)
		log.Printf("failed to connect mongo (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}
