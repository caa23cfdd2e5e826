package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/database"
)

const (
	msgAccepted  = "Location updated successfully"
	msgDuplicate = "Duplicate location ignored"
)

type enqueuer interface {
	Enqueue(sample *domain.LocationSample, vehicle *domain.Vehicle)
}

// IngestionService accepts location reports from every transport. A report is
// acknowledged once it is durably stored; geofence evaluation and broadcast
// happen afterwards on the pipeline.
type IngestionService struct {
	vehicles database.VehicleRegistry
	store    database.LocationStore
	pipeline enqueuer
	validate *reportValidator
	serverID string
	now      func() time.Time
}

func NewIngestionService(vehicles database.VehicleRegistry, store database.LocationStore, pipeline enqueuer, serverID string) *IngestionService {
	return &IngestionService{
		vehicles: vehicles,
		store:    store,
		pipeline: pipeline,
		validate: newReportValidator(),
		serverID: serverID,
		now:      time.Now,
	}
}

// Submit validates, resolves, persists and enqueues one report. Errors are
// *domain.Error with kind VALIDATION, NOT_FOUND or PERSISTENCE; nothing is
// stored or broadcast on any error path.
func (s *IngestionService) Submit(ctx context.Context, report *domain.LocationReport) (*domain.Ack, error) {
	reportedAt, err := s.validate.check(report)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.FindByID(ctx, report.VehicleID)
	if err != nil {
		if errors.Is(err, domain.ErrVehicleNotFound) {
			return nil, domain.NewError(domain.KindNotFound, err, "Vehicle with ID %s not found", report.VehicleID)
		}
		return nil, domain.NewError(domain.KindPersistence, err, "Internal server error while looking up vehicle")
	}

	sample := &domain.LocationSample{
		VehicleID:  report.VehicleID,
		Latitude:   *report.Latitude,
		Longitude:  *report.Longitude,
		Accuracy:   report.Accuracy,
		Altitude:   report.Altitude,
		Speed:      report.Speed,
		ReportedAt: reportedAt,
		ReceivedAt: s.now(),
	}

	created, err := s.store.Append(ctx, sample)
	if err != nil {
		return nil, domain.NewError(domain.KindPersistence, err, "Internal server error while updating location")
	}

	ack := &domain.Ack{Success: true, ServerTime: s.now(), ServerID: s.serverID}
	if !created {
		ack.Message = msgDuplicate
		ack.Duplicate = true
		log.Debug().
			Str("vehicle_id", sample.VehicleID).
			Time("reported_at", sample.ReportedAt).
			Msg("duplicate location ignored")
		return ack, nil
	}

	s.pipeline.Enqueue(sample, vehicle)
	ack.Message = msgAccepted
	log.Debug().
		Str("vehicle_id", sample.VehicleID).
		Int64("location_id", sample.ID).
		Msg("location accepted")
	return ack, nil
}
