package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// GetRedisLock is nil when Redis is not configured; callers treat locking as best-effort.
func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedis connects when REDIS_ADDRESS is set. Redis only backs optional locking,
// so a few attempts are made and startup continues without it on failure.
func ConnectRedis(ctx context.Context) {
	godotenv.Load()
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if redisAddr == "" {
		log.Printf("REDIS_ADDRESS not set; invoice number locking disabled")
		return
	}

	for attempt := 1; attempt <= 3; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0, // use default DB
			PoolSize: 20,
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(rdb)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return
		}
		_ = client.Close()
		sleep := retryDelay(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
	log.Printf("redis unavailable at %s; continuing without invoice number locking", redisAddr)
}

func CloseRedis() {
	if rdb != nil {
		_ = rdb.Close()
	}
}
