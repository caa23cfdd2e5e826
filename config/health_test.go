package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

type fakeStore struct{ healthy bool }

func (f fakeStore) Check(context.Context) domain.HealthStatus {
	if f.healthy {
		return domain.HealthStatus{Healthy: true, Status: domain.StatusServing}
	}
	return domain.HealthStatus{Status: domain.StatusNotServing}
}

type fakeBroker struct{ closed bool }

func (f fakeBroker) IsClosed() bool { return f.closed }

type fakeMQTT struct{ connected bool }

func (f fakeMQTT) IsConnected() bool { return f.connected }

type healthResponse struct {
	Status       string                       `json:"status"`
	Dependencies map[string]map[string]string `json:"dependencies"`
}

func serveHealth(t *testing.T, h *HealthChecker) (int, healthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	r.ServeHTTP(w, req)

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return w.Code, resp
}

func TestHealthz_AllUp(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	h := NewHealthChecker(fakeStore{healthy: true}, fakeBroker{}).
		WithRedis(client).
		WithMQTT(fakeMQTT{connected: true})

	code, resp := serveHealth(t, h)
	if code != http.StatusOK || resp.Status != "healthy" {
		t.Fatalf("expected healthy 200, got %d %+v", code, resp)
	}
	for _, dep := range []string{"postgres", "rabbitmq", "redis", "mqtt"} {
		if resp.Dependencies[dep]["status"] != "up" {
			t.Errorf("expected %s up, got %v", dep, resp.Dependencies[dep])
		}
	}
}

func TestHealthz_OptionalDependenciesOmitted(t *testing.T) {
	code, resp := serveHealth(t, NewHealthChecker(fakeStore{healthy: true}, fakeBroker{}))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if _, ok := resp.Dependencies["redis"]; ok {
		t.Error("expected redis to be omitted")
	}
	if _, ok := resp.Dependencies["mqtt"]; ok {
		t.Error("expected mqtt to be omitted")
	}
}

func TestHealthz_Down(t *testing.T) {
	tests := []struct {
		name string
		h    *HealthChecker
		dep  string
	}{
		{"postgres", NewHealthChecker(fakeStore{}, fakeBroker{}), "postgres"},
		{"rabbitmq", NewHealthChecker(fakeStore{healthy: true}, fakeBroker{closed: true}), "rabbitmq"},
		{"mqtt", NewHealthChecker(fakeStore{healthy: true}, fakeBroker{}).WithMQTT(fakeMQTT{}), "mqtt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := serveHealth(t, tt.h)
			if code != http.StatusServiceUnavailable || resp.Status != "unhealthy" {
				t.Errorf("expected unhealthy 503, got %d %+v", code, resp)
			}
			if resp.Dependencies[tt.dep]["status"] != "down" {
				t.Errorf("expected %s down, got %v", tt.dep, resp.Dependencies[tt.dep])
			}
		})
	}
}

func TestHealthz_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	code, resp := serveHealth(t, NewHealthChecker(fakeStore{healthy: true}, fakeBroker{}).WithRedis(client))
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
	if resp.Dependencies["redis"]["status"] != "down" {
		t.Errorf("expected redis down, got %v", resp.Dependencies["redis"])
	}
}
