package subscriber

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

const (
	TopicPattern = "/fleet/vehicle/+/location"

	submitTimeout = 10 * time.Second
)

type ingestionService interface {
	Submit(ctx context.Context, report *domain.LocationReport) (*domain.Ack, error)
}

// LocationSubscriber feeds MQTT location messages into the ingestion service.
// MQTT has no reply path, so rejected reports are only logged.
type LocationSubscriber struct {
	client    mqtt.Client
	ingestion ingestionService
}

func NewLocationSubscriber(client mqtt.Client, ingestion ingestionService) *LocationSubscriber {
	return &LocationSubscriber{
		client:    client,
		ingestion: ingestion,
	}
}

func (s *LocationSubscriber) Start() error {
	token := s.client.Subscribe(TopicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) Stop() {
	token := s.client.Unsubscribe(TopicPattern)
	token.WaitTimeout(time.Second)
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var report domain.LocationReport
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("invalid location message")
		return
	}

	topicVehicle := vehicleIDFromTopic(msg.Topic())
	if report.VehicleID == "" {
		report.VehicleID = topicVehicle
	}
	if topicVehicle != "" && report.VehicleID != topicVehicle {
		log.Warn().
			Str("topic", msg.Topic()).
			Str("vehicle_id", report.VehicleID).
			Msg("vehicle_id does not match topic")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	ack, err := s.ingestion.Submit(ctx, &report)
	if err != nil {
		log.Warn().Err(err).
			Str("kind", string(domain.KindOf(err))).
			Str("vehicle_id", report.VehicleID).
			Msg("mqtt location rejected")
		return
	}
	log.Debug().
		Str("vehicle_id", report.VehicleID).
		Bool("duplicate", ack.Duplicate).
		Msg("mqtt location accepted")
}

// vehicleIDFromTopic extracts the wildcard segment of /fleet/vehicle/{id}/location.
func vehicleIDFromTopic(topic string) string {
	parts := strings.Split(strings.TrimPrefix(topic, "/"), "/")
	if len(parts) != 4 || parts[0] != "fleet" || parts[1] != "vehicle" || parts[3] != "location" {
		return ""
	}
	return parts[2]
}
