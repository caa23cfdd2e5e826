package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/GRAVEYARDOG/ethio-safeguard/config"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/rpc"
)

// vehicle drifts around a center point, occasionally wandering far enough to
// cross a nearby geofence boundary.
type vehicle struct {
	id       string
	lat, lon float64
}

func (v *vehicle) step() {
	v.lat += (rand.Float64() - 0.5) * 0.002
	v.lon += (rand.Float64() - 0.5) * 0.002
}

func (v *vehicle) report(now time.Time) *rpc.LocationRequest {
	lat, lon := v.lat, v.lon
	speed := rand.Float64() * 60
	accuracy := 3 + rand.Float64()*7
	return &rpc.LocationRequest{
		VehicleID: v.id,
		Latitude:  &lat,
		Longitude: &lon,
		Speed:     &speed,
		Accuracy:  &accuracy,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

var commonFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:  "vehicle",
		Usage: "vehicle id to simulate, repeatable",
		Value: cli.NewStringSlice("v1", "v2", "v3"),
	},
	&cli.DurationFlag{
		Name:  "interval",
		Usage: "time between reports of one vehicle",
		Value: 2 * time.Second,
	},
	&cli.IntFlag{
		Name:  "count",
		Usage: "reports per vehicle, 0 for unlimited",
	},
	&cli.Float64Flag{
		Name:  "lat",
		Usage: "latitude the fleet starts around",
		Value: 9.03,
	},
	&cli.Float64Flag{
		Name:  "lon",
		Usage: "longitude the fleet starts around",
		Value: 38.74,
	},
}

func fleet(c *cli.Context) []*vehicle {
	ids := c.StringSlice("vehicle")
	out := make([]*vehicle, len(ids))
	for i, id := range ids {
		out[i] = &vehicle{id: id, lat: c.Float64("lat"), lon: c.Float64("lon")}
	}
	return out
}

// tick calls send for every vehicle each interval until count rounds have
// run or ctx ends.
func tick(ctx context.Context, c *cli.Context, send func(*rpc.LocationRequest) error) error {
	vehicles := fleet(c)
	count := c.Int("count")

	ticker := time.NewTicker(c.Duration("interval"))
	defer ticker.Stop()

	for round := 0; count == 0 || round < count; round++ {
		for _, v := range vehicles {
			v.step()
			if err := send(v.report(time.Now())); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func runGRPC(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := rpc.Dial(c.String("target"))
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	stream, err := rpc.NewLocationServiceClient(conn).StreamLocations(ctx)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				done <- err
				return
			}
			ev := log.Info()
			if !resp.Success {
				ev = log.Warn().Str("kind", resp.ErrorKind)
			}
			ev.Bool("success", resp.Success).Str("server_id", resp.ServerID).Msg(resp.Message)
		}
	}()

	err = tick(ctx, c, func(req *rpc.LocationRequest) error {
		log.Debug().Str("vehicle_id", req.VehicleID).Float64("lat", *req.Latitude).Float64("lon", *req.Longitude).Msg("sending")
		return stream.Send(req)
	})
	if cerr := stream.CloseSend(); err == nil {
		err = cerr
	}
	if rerr := <-done; err == nil && ctx.Err() == nil {
		err = rerr
	}
	return err
}

func runMQTT(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := config.DialMQTT(c.String("broker"), c.String("client-id"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	return tick(ctx, c, func(req *rpc.LocationRequest) error {
		payload, err := json.Marshal(req)
		if err != nil {
			return err
		}
		topic := fmt.Sprintf("/fleet/vehicle/%s/location", req.VehicleID)
		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		log.Info().Str("topic", topic).RawJSON("payload", payload).Msg("published")
		return nil
	})
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	app := &cli.App{
		Name:  "publisher",
		Usage: "simulate vehicles reporting their location",
		Commands: []*cli.Command{
			{
				Name:  "grpc",
				Usage: "stream reports over the gRPC location service",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "target",
						Usage:   "gRPC server address",
						Value:   "localhost:50051",
						EnvVars: []string{"GRPC_TARGET"},
					},
				}, commonFlags...),
				Action: runGRPC,
			},
			{
				Name:  "mqtt",
				Usage: "publish reports to the MQTT broker",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "broker",
						Usage:   "MQTT broker URL",
						Value:   "tcp://localhost:1883",
						EnvVars: []string{"MQTT_BROKER"},
					},
					&cli.StringFlag{
						Name:  "client-id",
						Value: "fleet-mock-publisher",
					},
				}, commonFlags...),
				Action: runMQTT,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}
