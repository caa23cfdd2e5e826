package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	grpchandler "github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/handler/grpc"
	handler "github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/handler/http"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/handler/subscriber"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/cache/redis"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/database"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/database/postgres"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/geofence/file"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/publisher/rabbitmq"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/rpc"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/service"
)

type Options struct {
	ServerID              string
	GeofenceFile          string
	GeofenceConfirmations int
	BroadcastQueueSize    int
	AlertQueueSize        int
	PipelineShards        int
	VehicleCacheTTL       time.Duration
}

type Module struct {
	Ingestion *service.IngestionService
	Geofence  *service.GeofenceService
	Hub       *service.Hub
	Pipeline  *service.Pipeline
	Alerts    *service.AlertDispatcher
	Health    *service.HealthService
	Regions   *file.Registry

	grpcHandler *grpchandler.LocationHandler
	liveHandler *handler.LiveHandler
	subscriber  *subscriber.LocationSubscriber
	alerts      *rabbitmq.GeofencePublisher
}

// Build wires the location module. redisClient and mqttClient may be nil, in
// which case vehicle lookups go straight to Postgres and MQTT ingestion is
// off.
func Build(ctx context.Context, db *sql.DB, amqpConn *amqp.Connection, redisClient *goredis.Client, mqttClient mqtt.Client, opts Options) (*Module, error) {
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	locationRepo := postgres.NewLocationRepo(db)
	var vehicles database.VehicleRegistry = postgres.NewVehicleRepo(db)
	if redisClient != nil {
		vehicles = redis.NewVehicleCache(redisClient, vehicles, opts.VehicleCacheTTL)
	}

	alerts, err := rabbitmq.NewGeofencePublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("geofence publisher: %w", err)
	}

	regions := file.NewRegistry(opts.GeofenceFile)
	if err := regions.Load(); err != nil {
		_ = alerts.Close()
		return nil, fmt.Errorf("geofences: %w", err)
	}

	dispatcher := service.NewAlertDispatcher(alerts, opts.AlertQueueSize)
	geofenceSvc := service.NewGeofenceService(dispatcher, regions, opts.GeofenceConfirmations)
	regions.OnReload(geofenceSvc.RetainRegions)

	hub := service.NewHub(opts.BroadcastQueueSize)
	pipeline := service.NewPipeline(geofenceSvc, hub, opts.PipelineShards)
	ingestion := service.NewIngestionService(vehicles, locationRepo, pipeline, opts.ServerID)
	health := service.NewHealthService(locationRepo)

	m := &Module{
		Ingestion:   ingestion,
		Geofence:    geofenceSvc,
		Hub:         hub,
		Pipeline:    pipeline,
		Alerts:      dispatcher,
		Health:      health,
		Regions:     regions,
		grpcHandler: grpchandler.NewLocationHandler(ingestion, health, opts.ServerID),
		liveHandler: handler.NewLiveHandler(hub),
		alerts:      alerts,
	}
	if mqttClient != nil {
		m.subscriber = subscriber.NewLocationSubscriber(mqttClient, ingestion)
	}
	return m, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.liveHandler.Register(r)
}

func (m *Module) RegisterGRPC(s grpc.ServiceRegistrar) {
	rpc.RegisterLocationServiceServer(s, m.grpcHandler)
}

// Start launches the alert worker, the pipeline workers and, when
// configured, the MQTT subscription.
func (m *Module) Start() error {
	m.Alerts.Start()
	m.Pipeline.Start()
	if m.subscriber != nil {
		return m.subscriber.Start()
	}
	return nil
}

// WatchGeofences blocks, reloading the geofence file on change, until ctx is
// done.
func (m *Module) WatchGeofences(ctx context.Context) error {
	return m.Regions.Watch(ctx)
}

// Stop halts intake first, then drains the pipeline so every acknowledged
// report is evaluated and broadcast, then flushes queued alerts before the
// alert channel closes. Live subscribers are disconnected last.
func (m *Module) Stop() {
	if m.subscriber != nil {
		m.subscriber.Stop()
	}
	m.Pipeline.Stop()
	m.Alerts.Stop()
	_ = m.alerts.Close()
	m.Hub.Close()
}
