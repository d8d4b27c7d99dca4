package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"qrtrace-backend/internal/cache"
	"qrtrace-backend/pkg/utils"
)

type Checker struct {
	db *pgxpool.Pool
}

func NewChecker(db *pgxpool.Pool) *Checker {
	return &Checker{db: db}
}

// Handler reports database and cache health. The cache being down degrades
// the response body but not the status: Redis is optional.
func (c *Checker) Handler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "up"
	if err := c.db.Ping(ctx); err != nil {
		dbStatus = "down"
		status = http.StatusServiceUnavailable
	}

	cacheStatus := "disabled"
	if client := cache.GetClient(); client != nil {
		cacheStatus = "up"
		if err := client.Ping(ctx).Err(); err != nil {
			cacheStatus = "down"
		}
	}

	utils.JSON(w, status, map[string]string{
		"status":   dbStatus,
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
