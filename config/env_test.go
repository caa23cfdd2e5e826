package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GRPCPort != "50051" || cfg.HTTPPort != "8080" {
		t.Errorf("unexpected ports: grpc=%s http=%s", cfg.GRPCPort, cfg.HTTPPort)
	}
	if cfg.ServerID != "default" {
		t.Errorf("expected server id default, got %s", cfg.ServerID)
	}
	if cfg.GeofenceConfirmations != 2 || cfg.BroadcastQueueSize != 64 || cfg.AlertQueueSize != 256 || cfg.PipelineShards != 16 {
		t.Errorf("unexpected tuning defaults: %+v", cfg)
	}
	if cfg.VehicleCacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache ttl, got %v", cfg.VehicleCacheTTL)
	}
	if cfg.MQTTEnabled {
		t.Error("expected mqtt disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ID", "node-7")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("GEOFENCE_CONFIRMATIONS", "3")
	t.Setenv("VEHICLE_CACHE_TTL", "30s")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerID != "node-7" || !cfg.MQTTEnabled || cfg.GeofenceConfirmations != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.VehicleCacheTTL != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.VehicleCacheTTL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric int", "PIPELINE_SHARDS", "many"},
		{"zero confirmations", "GEOFENCE_CONFIRMATIONS", "0"},
		{"zero alert queue", "ALERT_QUEUE_SIZE", "0"},
		{"bad bool", "MQTT_ENABLED", "sometimes"},
		{"bad duration", "VEHICLE_CACHE_TTL", "forever"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"non numeric port", "GRPC_PORT", "grpc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
