package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/publisher"
)

var _ publisher.GeofencePublisher = (*GeofencePublisher)(nil)

const (
	ExchangeName = "fleet.events"
	QueueName    = "geofence_alerts"
)

type GeofencePublisher struct {
	ch *amqp.Channel
}

func NewGeofencePublisher(conn *amqp.Connection) (*GeofencePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := Declare(ch); err != nil {
		return nil, err
	}

	return &GeofencePublisher{ch: ch}, nil
}

// Declare sets up the fanout exchange and the durable alert queue bound to it.
func Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// AlertMessage is the JSON body published for each confirmed transition.
type AlertMessage struct {
	VehicleID    string            `json:"vehicle_id"`
	GeofenceID   string            `json:"geofence_id"`
	GeofenceName string            `json:"geofence_name"`
	Transition   domain.Transition `json:"transition"`
	Timestamp    string            `json:"timestamp"`
	Location     alertLocation     `json:"location"`
}

type alertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func toAlertMessage(alert *domain.GeofenceAlert) AlertMessage {
	return AlertMessage{
		VehicleID:    alert.VehicleID,
		GeofenceID:   alert.GeofenceID,
		GeofenceName: alert.GeofenceName,
		Transition:   alert.Transition,
		Timestamp:    alert.Timestamp.UTC().Format(time.RFC3339Nano),
		Location: alertLocation{
			Latitude:  alert.Location.Lat,
			Longitude: alert.Location.Lon,
		},
	}
}

func (p *GeofencePublisher) PublishAlert(ctx context.Context, alert *domain.GeofenceAlert) error {
	body, err := json.Marshal(toAlertMessage(alert))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    alert.Timestamp,
		Body:         body,
	})
}

func (p *GeofencePublisher) Close() error {
	return p.ch.Close()
}
