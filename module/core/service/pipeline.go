package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

const DefaultShards = 16

type geofenceChecker interface {
	CheckAndAlert(ctx context.Context, sample *domain.LocationSample) []domain.GeofenceAlert
}

type broadcaster interface {
	Publish(env domain.BroadcastEnvelope) int
}

type pipelineJob struct {
	sample  domain.LocationSample
	vehicle domain.Vehicle
}

// shard is an unbounded FIFO mailbox drained by a single goroutine.
type shard struct {
	mu    sync.Mutex
	queue []pipelineJob
	wake  chan struct{}
}

func (s *shard) push(job pipelineJob) {
	s.mu.Lock()
	s.queue = append(s.queue, job)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *shard) drain() []pipelineJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := s.queue
	s.queue = nil
	return jobs
}

func (s *shard) run(stop <-chan struct{}, handle func(pipelineJob)) {
	for {
		jobs := s.drain()
		for _, job := range jobs {
			handle(job)
		}
		if len(jobs) > 0 {
			continue
		}

		select {
		case <-s.wake:
		case <-stop:
			for _, job := range s.drain() {
				handle(job)
			}
			return
		}
	}
}

// Pipeline runs geofence evaluation and broadcast for accepted samples off
// the ingestion path. Samples of one vehicle always land on the same shard, so
// they are processed in acceptance order; distinct vehicles proceed in
// parallel across shards.
type Pipeline struct {
	geofence geofenceChecker
	hub      broadcaster
	shards   []*shard
	now      func() time.Time

	stop      chan struct{}
	wg        conc.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewPipeline(geofence geofenceChecker, hub broadcaster, shards int) *Pipeline {
	if shards < 1 {
		shards = DefaultShards
	}
	p := &Pipeline{
		geofence: geofence,
		hub:      hub,
		shards:   make([]*shard, shards),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for i := range p.shards {
		p.shards[i] = &shard{wake: make(chan struct{}, 1)}
	}
	return p
}

func (p *Pipeline) Start() {
	p.startOnce.Do(func() {
		for _, s := range p.shards {
			p.wg.Go(func() { s.run(p.stop, p.process) })
		}
		log.Info().Int("shards", len(p.shards)).Msg("location pipeline started")
	})
}

// Stop processes whatever is already queued and waits for the shard workers
// to exit.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()
		log.Info().Msg("location pipeline stopped")
	})
}

// Enqueue never blocks the caller.
func (p *Pipeline) Enqueue(sample *domain.LocationSample, vehicle *domain.Vehicle) {
	p.shardFor(sample.VehicleID).push(pipelineJob{sample: *sample, vehicle: *vehicle})
}

func (p *Pipeline) shardFor(vehicleID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(vehicleID))
	return p.shards[h.Sum32()%uint32(len(p.shards))]
}

func (p *Pipeline) process(job pipelineJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("vehicle_id", job.sample.VehicleID).
				Msg("location pipeline job panicked")
		}
	}()

	if p.geofence != nil {
		p.geofence.CheckAndAlert(context.Background(), &job.sample)
	}

	env := domain.NewEnvelope(&job.sample, &job.vehicle, p.now())
	n := p.hub.Publish(env)
	log.Debug().
		Str("vehicle_id", job.sample.VehicleID).
		Int("subscribers", n).
		Msg("location broadcast")
}
