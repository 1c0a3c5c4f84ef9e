package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	checks []dependencyCheck
}

type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewHealthHandler checks RabbitMQ only when amqpConn is non-nil; the broker
// is optional.
func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	h := &HealthHandler{}
	h.checks = append(h.checks,
		dependencyCheck{"postgres", dbPool.Ping},
		dependencyCheck{"redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	if amqpConn != nil {
		h.checks = append(h.checks, dependencyCheck{"rabbitmq", func(context.Context) error {
			if amqpConn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}})
	}
	return h
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	body := gin.H{"status": "ok"}
	code := http.StatusOK
	for _, chk := range h.checks {
		if err := chk.ping(ctx); err != nil {
			body[chk.name] = "unavailable"
			body["status"] = "error"
			code = http.StatusServiceUnavailable
			continue
		}
		body[chk.name] = "connected"
	}
	c.JSON(code, body)
}
