package service

import (
	"context"
	"errors"
	"testing"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

func TestHealthCheck_Serving(t *testing.T) {
	svc := NewHealthService(&mockLocationStore{})

	status := svc.Check(context.Background())
	if !status.Healthy || status.Status != domain.StatusServing {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
}

func TestHealthCheck_StoreDown(t *testing.T) {
	store := &mockLocationStore{
		pingFn: func(_ context.Context) error { return errors.New("connection refused") },
	}
	svc := NewHealthService(store)

	status := svc.Check(context.Background())
	if status.Healthy || status.Status != domain.StatusNotServing {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestHealthCheck_PingHasDeadline(t *testing.T) {
	store := &mockLocationStore{
		pingFn: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		},
	}

	if status := NewHealthService(store).Check(context.Background()); !status.Healthy {
		t.Errorf("expected ping to carry a deadline, got %+v", status)
	}
}
