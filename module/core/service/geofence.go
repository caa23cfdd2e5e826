package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/publisher"
)

const DefaultConfirmations = 2

// RegionSource yields the geofence set active at the time of the call.
type RegionSource interface {
	CurrentRegions() []domain.GeofenceRegion
}

type vehicleStates struct {
	mu    sync.Mutex
	pairs map[string]*domain.GeofenceState
}

// GeofenceService tracks per (vehicle, geofence) membership and confirms a
// transition only after threshold consecutive agreeing observations.
//
// Each vehicle's pair states sit behind their own mutex; the outer map lock is
// held only to find or create a vehicle entry, so vehicles never contend.
type GeofenceService struct {
	publisher publisher.GeofencePublisher
	regions   RegionSource
	threshold int

	mu       sync.RWMutex
	vehicles map[string]*vehicleStates
}

func NewGeofenceService(pub publisher.GeofencePublisher, regions RegionSource, threshold int) *GeofenceService {
	if threshold < 1 {
		threshold = DefaultConfirmations
	}
	return &GeofenceService{
		publisher: pub,
		regions:   regions,
		threshold: threshold,
		vehicles:  make(map[string]*vehicleStates),
	}
}

// CheckAndAlert evaluates the sample and hands every confirmed transition to
// the alert publisher. Publish failures are logged, never returned.
func (s *GeofenceService) CheckAndAlert(ctx context.Context, sample *domain.LocationSample) []domain.GeofenceAlert {
	alerts := s.Evaluate(sample)
	if s.publisher == nil {
		return alerts
	}

	for i := range alerts {
		if err := s.publisher.PublishAlert(ctx, &alerts[i]); err != nil {
			log.Error().Err(err).
				Str("vehicle_id", alerts[i].VehicleID).
				Str("geofence_id", alerts[i].GeofenceID).
				Str("transition", string(alerts[i].Transition)).
				Msg("geofence alert publish failed")
		}
	}
	return alerts
}

// Evaluate advances the state machine of every configured geofence for the
// sample's vehicle and returns the transitions it confirmed.
func (s *GeofenceService) Evaluate(sample *domain.LocationSample) []domain.GeofenceAlert {
	regions := s.regions.CurrentRegions()
	point := sample.Point()

	vs := s.vehicle(sample.VehicleID)
	vs.mu.Lock()
	defer vs.mu.Unlock()

	var alerts []domain.GeofenceAlert
	active := make(map[string]struct{}, len(regions))
	for i := range regions {
		region := &regions[i]
		active[region.ID] = struct{}{}

		inside, err := contains(region, point)
		if err != nil {
			log.Warn().
				Err(domain.NewError(domain.KindGeofenceEvaluation, err, "geofence skipped")).
				Str("kind", string(domain.KindGeofenceEvaluation)).
				Str("vehicle_id", sample.VehicleID).
				Str("geofence_id", region.ID).
				Msg("malformed geofence")
			continue
		}

		raw := domain.Outside
		if inside {
			raw = domain.Inside
		}
		if alert, ok := s.observe(vs, region, raw, sample); ok {
			alerts = append(alerts, alert)
		}
	}

	for id := range vs.pairs {
		if _, ok := active[id]; !ok {
			delete(vs.pairs, id)
		}
	}
	return alerts
}

func (s *GeofenceService) observe(vs *vehicleStates, region *domain.GeofenceRegion, raw domain.Membership, sample *domain.LocationSample) (domain.GeofenceAlert, bool) {
	st, ok := vs.pairs[region.ID]
	if !ok {
		// first observation only seeds the pair
		vs.pairs[region.ID] = &domain.GeofenceState{
			Membership:     raw,
			ConfirmedSince: sample.ReceivedAt,
			PendingValue:   raw,
		}
		return domain.GeofenceAlert{}, false
	}

	switch {
	case raw == st.Membership:
		st.PendingCount = 0
	case raw == st.PendingValue:
		st.PendingCount++
	default:
		st.PendingValue = raw
		st.PendingCount = 1
	}

	if st.PendingCount < s.threshold {
		return domain.GeofenceAlert{}, false
	}

	st.Membership = st.PendingValue
	st.ConfirmedSince = sample.ReceivedAt
	st.PendingCount = 0

	transition := domain.TransitionExit
	if st.Membership == domain.Inside {
		transition = domain.TransitionEnter
	}
	return domain.GeofenceAlert{
		VehicleID:    sample.VehicleID,
		GeofenceID:   region.ID,
		GeofenceName: region.Name,
		Transition:   transition,
		Timestamp:    sample.ReceivedAt,
		Location:     sample.Point(),
	}, true
}

func (s *GeofenceService) vehicle(id string) *vehicleStates {
	s.mu.RLock()
	vs, ok := s.vehicles[id]
	s.mu.RUnlock()
	if ok {
		return vs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if vs, ok = s.vehicles[id]; !ok {
		vs = &vehicleStates{pairs: make(map[string]*domain.GeofenceState)}
		s.vehicles[id] = vs
	}
	return vs
}

// RetainRegions drops state for every geofence not in regions. The geofence
// registry calls it after each reload.
func (s *GeofenceService) RetainRegions(regions []domain.GeofenceRegion) {
	keep := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		keep[r.ID] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, vs := range s.vehicles {
		vs.mu.Lock()
		for id := range vs.pairs {
			if _, ok := keep[id]; !ok {
				delete(vs.pairs, id)
			}
		}
		vs.mu.Unlock()
	}
}

// States returns a copy of the pair states held for a vehicle.
func (s *GeofenceService) States(vehicleID string) map[string]domain.GeofenceState {
	s.mu.RLock()
	vs, ok := s.vehicles[vehicleID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()
	out := make(map[string]domain.GeofenceState, len(vs.pairs))
	for id, st := range vs.pairs {
		out[id] = *st
	}
	return out
}
