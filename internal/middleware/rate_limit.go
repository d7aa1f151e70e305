package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"survey-service/internal/metrics"
	"survey-service/internal/models"
	"survey-service/internal/repository"
)

// RateLimiter enforces a per-IP fixed window over Redis. A down Redis fails
// open: the public activation endpoints must stay reachable even when the
// limiter store is not.
type RateLimiter struct {
	client    *redis.Client
	auditRepo *repository.AuditRepository
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	limit     int
	window    time.Duration
}

// NewRateLimiter creates a Redis-backed rate limiter
func NewRateLimiter(client *redis.Client, auditRepo *repository.AuditRepository, m *metrics.Metrics, logger *logrus.Logger, perMinute int) *RateLimiter {
	return &RateLimiter{
		client:    client,
		auditRepo: auditRepo,
		metrics:   m,
		logger:    logger,
		limit:     perMinute,
		window:    time.Minute,
	}
}

// Limit returns the middleware for one endpoint class. The scope keeps
// validate and complete counters separate.
func (rl *RateLimiter) Limit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.client == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			rl.logger.WithError(err).Warn("Rate limiter unavailable; allowing request")
			c.Next()
			return
		}
		if count == 1 {
			rl.client.Expire(ctx, key, rl.window)
		}

		if count > int64(rl.limit) {
			rl.metrics.RateLimitHits.Inc()
			rl.auditRateLimit(c, scope)

			requestID, _ := c.Get("request_id")
			rid, _ := requestID.(string)
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.APIResponse{
				Success: false,
				Message: "Too many requests",
				Error: &models.APIError{
					Code:      "RATE_LIMITED",
					Message:   "too many attempts; try again later",
					Retriable: true,
					RequestID: rid,
				},
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) auditRateLimit(c *gin.Context, scope string) {
	entry := &models.ActivationAuditLog{
		EventType:     models.EventRateLimitExceeded,
		IPAddress:     c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
		Success:       false,
		FailureReason: scope,
	}
	if err := rl.auditRepo.RecordActivation(c.Request.Context(), entry); err != nil {
		rl.logger.WithError(err).Error("Failed to audit rate-limit rejection")
	}
}
