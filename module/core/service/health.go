package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

const healthPingTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	store pinger
	now   func() time.Time
}

func NewHealthService(store pinger) *HealthService {
	return &HealthService{store: store, now: time.Now}
}

// Check reports SERVING only when the location store answers a ping within
// a short timeout.
func (s *HealthService) Check(ctx context.Context) domain.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	status := domain.HealthStatus{Healthy: true, Status: domain.StatusServing, Timestamp: s.now()}
	if err := s.store.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("health check: location store unreachable")
		status.Healthy = false
		status.Status = domain.StatusNotServing
	}
	return status
}
