package subscriber

import (
	"context"
	"errors"
	"testing"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

type mockIngestion struct {
	submitFn func(ctx context.Context, report *domain.LocationReport) (*domain.Ack, error)
}

func (m *mockIngestion) Submit(ctx context.Context, report *domain.LocationReport) (*domain.Ack, error) {
	return m.submitFn(ctx, report)
}

type fakeMQTTMessage struct {
	topic   string
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 1 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return f.topic }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

func TestHandleMessage_Success(t *testing.T) {
	var submitted *domain.LocationReport
	ing := &mockIngestion{
		submitFn: func(_ context.Context, report *domain.LocationReport) (*domain.Ack, error) {
			submitted = report
			return &domain.Ack{Success: true}, nil
		},
	}

	sub := &LocationSubscriber{ingestion: ing}
	payload := []byte(`{"vehicle_id":"v1","latitude":9.03,"longitude":38.74,"speed":12.5,"timestamp":"2024-01-15T08:00:00Z"}`)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "/fleet/vehicle/v1/location", payload: payload})

	if submitted == nil {
		t.Fatal("expected Submit to be called")
	}
	if submitted.VehicleID != "v1" {
		t.Errorf("expected v1, got %s", submitted.VehicleID)
	}
	if submitted.Latitude == nil || *submitted.Latitude != 9.03 {
		t.Errorf("unexpected latitude: %v", submitted.Latitude)
	}
	if submitted.Speed == nil || *submitted.Speed != 12.5 {
		t.Errorf("unexpected speed: %v", submitted.Speed)
	}
	if submitted.Accuracy != nil {
		t.Errorf("expected absent accuracy, got %v", *submitted.Accuracy)
	}
	if submitted.Timestamp != "2024-01-15T08:00:00Z" {
		t.Errorf("unexpected timestamp: %s", submitted.Timestamp)
	}
}

func TestHandleMessage_VehicleFromTopic(t *testing.T) {
	var submitted *domain.LocationReport
	ing := &mockIngestion{
		submitFn: func(_ context.Context, report *domain.LocationReport) (*domain.Ack, error) {
			submitted = report
			return &domain.Ack{Success: true}, nil
		},
	}

	sub := &LocationSubscriber{ingestion: ing}
	payload := []byte(`{"latitude":9.03,"longitude":38.74,"timestamp":"2024-01-15T08:00:00Z"}`)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "/fleet/vehicle/v7/location", payload: payload})

	if submitted == nil || submitted.VehicleID != "v7" {
		t.Fatalf("expected vehicle v7 from topic, got %+v", submitted)
	}
}

func TestHandleMessage_TopicMismatch(t *testing.T) {
	ing := &mockIngestion{
		submitFn: func(_ context.Context, _ *domain.LocationReport) (*domain.Ack, error) {
			t.Fatal("Submit should not be called")
			return nil, nil
		},
	}

	sub := &LocationSubscriber{ingestion: ing}
	payload := []byte(`{"vehicle_id":"v1","latitude":9.03,"longitude":38.74,"timestamp":"2024-01-15T08:00:00Z"}`)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "/fleet/vehicle/v2/location", payload: payload})
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	ing := &mockIngestion{
		submitFn: func(_ context.Context, _ *domain.LocationReport) (*domain.Ack, error) {
			t.Fatal("Submit should not be called")
			return nil, nil
		},
	}

	sub := &LocationSubscriber{ingestion: ing}
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "/fleet/vehicle/v1/location", payload: []byte("invalid")})
}

func TestHandleMessage_SubmitErrorIsSwallowed(t *testing.T) {
	called := false
	ing := &mockIngestion{
		submitFn: func(_ context.Context, _ *domain.LocationReport) (*domain.Ack, error) {
			called = true
			return nil, domain.NewError(domain.KindPersistence, errors.New("db error"), "Internal server error while updating location")
		},
	}

	sub := &LocationSubscriber{ingestion: ing}
	payload := []byte(`{"vehicle_id":"v1","latitude":9.03,"longitude":38.74,"timestamp":"2024-01-15T08:00:00Z"}`)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "/fleet/vehicle/v1/location", payload: payload})

	if !called {
		t.Error("expected Submit to be called")
	}
}

func TestVehicleIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"/fleet/vehicle/v1/location", "v1"},
		{"fleet/vehicle/v1/location", "v1"},
		{"/fleet/vehicle/v1/status", ""},
		{"/fleet/truck/v1/location", ""},
		{"/fleet/vehicle/location", ""},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if got := vehicleIDFromTopic(tt.topic); got != tt.want {
				t.Errorf("vehicleIDFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}
