package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"google.golang.org/grpc"

	"github.com/GRAVEYARDOG/ethio-safeguard/config"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	config.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbitmq")
	}
	defer func() { _ = amqpConn.Close() }()

	redisClient, err := config.NewRedis(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	var mqttClient mqtt.Client
	if cfg.MQTTEnabled {
		mqttClient, err = config.NewMQTT(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt")
		}
		defer mqttClient.Disconnect(250)
	}

	coreModule, err := core.Build(ctx, db, amqpConn, redisClient, mqttClient, core.Options{
		ServerID:              cfg.ServerID,
		GeofenceFile:          cfg.GeofenceFile,
		GeofenceConfirmations: cfg.GeofenceConfirmations,
		BroadcastQueueSize:    cfg.BroadcastQueueSize,
		AlertQueueSize:        cfg.AlertQueueSize,
		PipelineShards:        cfg.PipelineShards,
		VehicleCacheTTL:       cfg.VehicleCacheTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("core module")
	}
	if err := coreModule.Start(); err != nil {
		log.Fatal().Err(err).Msg("start core module")
	}

	grpcServer := grpc.NewServer()
	coreModule.RegisterGRPC(grpcServer)

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("grpc listen")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	health := config.NewHealthChecker(coreModule.Health, amqpConn)
	if redisClient != nil {
		health.WithRedis(redisClient)
	}
	if mqttClient != nil {
		health.WithMQTT(mqttClient)
	}
	health.Register(r)
	coreModule.RegisterRoutes(&r.RouterGroup)

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc listening")
		if err := grpcServer.Serve(grpcLis); err != nil {
			log.Error().Err(err).Msg("grpc server")
			stop()
		}
	})
	wg.Go(func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
			stop()
		}
	})
	wg.Go(func() {
		if err := coreModule.WatchGeofences(ctx); err != nil {
			log.Error().Err(err).Msg("geofence watcher")
		}
	})

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	gracefulStopGRPC(shutdownCtx, grpcServer)
	coreModule.Stop()
	wg.Wait()

	log.Info().Msg("stopped")
}

// gracefulStopGRPC waits for in-flight calls, forcing a stop once ctx expires.
// Open location streams only end when their clients hang up, so the deadline
// matters.
func gracefulStopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
		<-done
	}
}
