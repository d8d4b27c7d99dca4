package cache

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"qrtrace-backend/internal/models"
)

const (
	batchMetaKeyPrefix = "batch:meta:"
	batchMetaTTL       = 1 * time.Hour
)

var client *redis.Client

// Init initializes the Redis connection. The cache is optional: if Redis is
// unreachable every helper degrades to a miss and callers hit the database.
func Init() error {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client (nil when the cache is disabled)
func GetClient() *redis.Client {
	return client
}

// GetBatchMeta returns a cached batch header, or a miss when absent/disabled
func GetBatchMeta(ctx context.Context, batchID string) (*models.Batch, bool) {
	if client == nil {
		return nil, false
	}

	data, err := client.Get(ctx, batchMetaKeyPrefix+batchID).Bytes()
	if err != nil {
		return nil, false
	}

	var batch models.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, false
	}
	return &batch, true
}

// SetBatchMeta caches a batch header; the row is immutable after generation
func SetBatchMeta(ctx context.Context, batch *models.Batch) {
	if client == nil || batch == nil {
		return
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return
	}
	client.Set(ctx, batchMetaKeyPrefix+batch.ID, data, batchMetaTTL)
}
