package publisher

import (
	"context"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

// GeofencePublisher hands confirmed transitions to downstream consumers.
// Implementations must be safe for concurrent use.
type GeofencePublisher interface {
	PublishAlert(ctx context.Context, alert *domain.GeofenceAlert) error
}
