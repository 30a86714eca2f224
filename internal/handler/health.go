package handler

import (
	"context"
	"net/http"
	"time"

	"posadmin/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports database and Redis connectivity plus the email DLQ depth.
// It never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, appName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var parked int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else {
			parked, _ = worker.DLQLength(ctx, rdb, worker.QueueEmail)
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":        status == http.StatusOK,
			"app":       appName,
			"db":        dbStatus,
			"redis":     redisStatus,
			"email_dlq": parked,
		})
	}
}
