package config

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

type storeHealth interface {
	Check(ctx context.Context) domain.HealthStatus
}

type brokerConn interface {
	IsClosed() bool
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type mqttConn interface {
	IsConnected() bool
}

// HealthChecker serves /healthz for operators. Redis and MQTT are reported
// only when attached.
type HealthChecker struct {
	store    storeHealth
	amqpConn brokerConn
	redis    redisPinger
	mqtt     mqttConn
}

func NewHealthChecker(store storeHealth, amqpConn brokerConn) *HealthChecker {
	return &HealthChecker{store: store, amqpConn: amqpConn}
}

func (h *HealthChecker) WithRedis(client redisPinger) *HealthChecker {
	h.redis = client
	return h
}

func (h *HealthChecker) WithMQTT(client mqttConn) *HealthChecker {
	h.mqtt = client
	return h
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	if st := h.store.Check(c.Request.Context()); !st.Healthy {
		deps["postgres"] = gin.H{"status": "down", "error": st.Status}
		status = http.StatusServiceUnavailable
	} else {
		deps["postgres"] = gin.H{"status": "up"}
	}

	if h.amqpConn.IsClosed() {
		deps["rabbitmq"] = gin.H{"status": "down", "error": "connection closed"}
		status = http.StatusServiceUnavailable
	} else {
		deps["rabbitmq"] = gin.H{"status": "up"}
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err := h.redis.Ping(ctx).Err()
		cancel()
		if err != nil {
			deps["redis"] = gin.H{"status": "down", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			deps["redis"] = gin.H{"status": "up"}
		}
	}

	if h.mqtt != nil {
		if !h.mqtt.IsConnected() {
			deps["mqtt"] = gin.H{"status": "down", "error": "not connected"}
			status = http.StatusServiceUnavailable
		} else {
			deps["mqtt"] = gin.H{"status": "up"}
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}
