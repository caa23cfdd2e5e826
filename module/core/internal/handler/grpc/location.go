package grpc

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/rpc"
)

type ingestionService interface {
	Submit(ctx context.Context, report *domain.LocationReport) (*domain.Ack, error)
}

type healthService interface {
	Check(ctx context.Context) domain.HealthStatus
}

type LocationHandler struct {
	ingestion ingestionService
	health    healthService
	serverID  string
	now       func() time.Time
}

func NewLocationHandler(ingestion ingestionService, health healthService, serverID string) *LocationHandler {
	return &LocationHandler{
		ingestion: ingestion,
		health:    health,
		serverID:  serverID,
		now:       time.Now,
	}
}

func (h *LocationHandler) UpdateLocation(ctx context.Context, req *rpc.LocationRequest) (*rpc.LocationResponse, error) {
	ack, err := h.ingestion.Submit(ctx, req.Report())
	if err != nil {
		logSubmitError(req, err)
		return nil, toStatus(err)
	}
	return rpc.ResponseFromAck(ack), nil
}

// StreamLocations answers each request in arrival order. A failed or
// undecodable report gets a failure response and the stream carries on.
func (h *LocationHandler) StreamLocations(stream rpc.LocationService_StreamLocationsServer) error {
	ctx := stream.Context()
	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		var resp *rpc.LocationResponse
		switch {
		case errors.Is(err, rpc.ErrMalformedRequest):
			log.Warn().Err(err).Str("kind", string(domain.KindValidation)).Msg("malformed location message")
			resp = h.failure(domain.NewError(domain.KindValidation, err, "request: malformed message"))
		case err != nil:
			return err
		default:
			resp = h.submit(ctx, req)
		}

		if err := stream.Send(resp); err != nil {
			return err
		}
	}
}

func (h *LocationHandler) submit(ctx context.Context, req *rpc.LocationRequest) *rpc.LocationResponse {
	ack, err := h.ingestion.Submit(ctx, req.Report())
	if err != nil {
		logSubmitError(req, err)
		return h.failure(err)
	}
	return rpc.ResponseFromAck(ack)
}

func (h *LocationHandler) failure(err error) *rpc.LocationResponse {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindPersistence
	}
	return &rpc.LocationResponse{
		Success:    false,
		Message:    domain.MessageOf(err),
		ServerTime: h.now(),
		ServerID:   h.serverID,
		ErrorKind:  string(kind),
	}
}

func (h *LocationHandler) HealthCheck(ctx context.Context, _ *rpc.HealthCheckRequest) (*rpc.HealthCheckResponse, error) {
	st := h.health.Check(ctx)
	return &rpc.HealthCheckResponse{
		Healthy:   st.Healthy,
		Status:    st.Status,
		Timestamp: st.Timestamp,
	}, nil
}

func toStatus(err error) error {
	msg := domain.MessageOf(err)
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return status.Error(codes.InvalidArgument, msg)
	case domain.KindNotFound:
		return status.Error(codes.NotFound, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

func logSubmitError(req *rpc.LocationRequest, err error) {
	ev := log.Warn()
	if domain.KindOf(err) == domain.KindPersistence {
		ev = log.Error()
	}
	ev.Err(err).
		Str("kind", string(domain.KindOf(err))).
		Str("vehicle_id", req.VehicleID).
		Msg("location rejected")
}
