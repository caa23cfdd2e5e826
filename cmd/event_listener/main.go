package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/config"
)

const (
	exchangeName = "fleet.events"
	queueName    = "geofence_alerts"
	prefetch     = 16
)

type alertMessage struct {
	VehicleID    string `json:"vehicle_id"`
	GeofenceID   string `json:"geofence_id"`
	GeofenceName string `json:"geofence_name"`
	Transition   string `json:"transition"`
	Timestamp    string `json:"timestamp"`
	Location     struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

func (a *alertMessage) String() string {
	name := a.GeofenceID
	if a.GeofenceName != "" {
		name = fmt.Sprintf("%s (%s)", a.GeofenceName, a.GeofenceID)
	}
	return fmt.Sprintf("[%s] vehicle %s %s at %s (%.5f, %.5f)",
		a.Transition, a.VehicleID, name, a.Timestamp, a.Location.Latitude, a.Location.Longitude)
}

func bindAlertQueue(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return ch.Qos(prefetch, 0, false)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	cfg.LogFormat = "console"
	config.SetupLogger(cfg)

	conn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("rabbitmq channel")
	}
	defer func() { _ = ch.Close() }()

	if err := bindAlertQueue(ch); err != nil {
		log.Fatal().Err(err).Send()
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("consume")
	}

	log.Info().Str("queue", queueName).Msg("waiting for geofence alerts")

	go func() {
		for msg := range msgs {
			var alert alertMessage
			if err := json.Unmarshal(msg.Body, &alert); err != nil {
				log.Warn().Err(err).Bytes("body", msg.Body).Msg("unreadable alert, dropping")
				_ = msg.Nack(false, false)
				continue
			}
			fmt.Println(alert.String())
			_ = msg.Ack(false)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
}
