package handler

import (
	"context"
	"net/http"
	"time"

	"invoicetool/internal/infra"
	"invoicetool/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity, reports the VIES circuit breaker and the
// dead-letter queue depth; never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, viesCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		deadLetters := gin.H{}
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			for _, q := range []string{worker.QueueArchive, worker.QueueEmail} {
				if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
					deadLetters[q] = n
				}
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":           status == http.StatusOK,
			"db":           dbStatus,
			"redis":        redisStatus,
			"dead_letters": deadLetters,
		}
		if viesCB != nil {
			state, failures := viesCB.Snapshot()
			body["vies"] = gin.H{"circuit": state.String(), "failures": failures}
		}
		c.JSON(status, body)
	}
}
