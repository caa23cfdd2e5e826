package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/publisher"
)

const (
	DefaultAlertQueueSize = 256

	alertPublishTimeout = 5 * time.Second
)

var (
	ErrAlertQueueFull = errors.New("alert queue full")
	ErrAlertsStopped  = errors.New("alert dispatcher stopped")
)

// AlertDispatcher puts a bounded queue and a single worker in front of a
// GeofencePublisher. PublishAlert only enqueues, so a stalled broker never
// holds up the caller.
type AlertDispatcher struct {
	sink  publisher.GeofencePublisher
	queue chan domain.GeofenceAlert

	mu      sync.RWMutex
	stopped bool

	wg        conc.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

var _ publisher.GeofencePublisher = (*AlertDispatcher)(nil)

func NewAlertDispatcher(sink publisher.GeofencePublisher, size int) *AlertDispatcher {
	if size < 1 {
		size = DefaultAlertQueueSize
	}
	return &AlertDispatcher{
		sink:  sink,
		queue: make(chan domain.GeofenceAlert, size),
	}
}

func (d *AlertDispatcher) Start() {
	d.startOnce.Do(func() {
		d.wg.Go(d.run)
	})
}

// Stop refuses new alerts, delivers the queued ones and waits for the worker.
func (d *AlertDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

// PublishAlert enqueues a copy of alert. ctx is ignored; each delivery gets
// its own timeout on the worker.
func (d *AlertDispatcher) PublishAlert(_ context.Context, alert *domain.GeofenceAlert) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrAlertsStopped
	}
	select {
	case d.queue <- *alert:
		return nil
	default:
		return ErrAlertQueueFull
	}
}

func (d *AlertDispatcher) run() {
	for alert := range d.queue {
		d.deliver(&alert)
	}
}

func (d *AlertDispatcher) deliver(alert *domain.GeofenceAlert) {
	ctx, cancel := context.WithTimeout(context.Background(), alertPublishTimeout)
	defer cancel()

	if err := d.sink.PublishAlert(ctx, alert); err != nil {
		log.Error().Err(err).
			Str("vehicle_id", alert.VehicleID).
			Str("geofence_id", alert.GeofenceID).
			Str("transition", string(alert.Transition)).
			Msg("geofence alert delivery failed")
	}
}
