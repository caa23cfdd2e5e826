package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

type fileConfig struct {
	Geofences []regionConfig `yaml:"geofences" validate:"dive"`
}

type regionConfig struct {
	ID      string            `yaml:"id" validate:"required"`
	Name    string            `yaml:"name"`
	Circle  *circleConfig     `yaml:"circle"`
	Polygon []domain.GeoPoint `yaml:"polygon"`
}

type circleConfig struct {
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters"`
}

// Registry serves the geofence set parsed from a YAML file. The set is
// swapped atomically on reload; readers always see a complete snapshot.
// Shape problems are left for the evaluator to report per region.
type Registry struct {
	path     string
	validate *validator.Validate
	regions  atomic.Pointer[[]domain.GeofenceRegion]

	mu        sync.Mutex
	listeners []func([]domain.GeofenceRegion)
}

func NewRegistry(path string) *Registry {
	r := &Registry{path: path, validate: validator.New()}
	empty := []domain.GeofenceRegion{}
	r.regions.Store(&empty)
	return r
}

func (r *Registry) CurrentRegions() []domain.GeofenceRegion {
	return *r.regions.Load()
}

// OnReload registers fn to run with the new set after every successful load.
func (r *Registry) OnReload(fn func([]domain.GeofenceRegion)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Load reads and parses the file. On error the previous set stays active.
func (r *Registry) Load() error {
	if r.path == "" {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read geofence file: %w", err)
	}

	regions, err := r.parse(data)
	if err != nil {
		return fmt.Errorf("parse geofence file %s: %w", r.path, err)
	}

	r.regions.Store(&regions)

	r.mu.Lock()
	listeners := append([]func([]domain.GeofenceRegion){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(regions)
	}

	log.Info().Str("path", r.path).Int("geofences", len(regions)).Msg("geofences loaded")
	return nil
}

func Parse(data []byte) ([]domain.GeofenceRegion, error) {
	return NewRegistry("").parse(data)
}

func (r *Registry) parse(data []byte) ([]domain.GeofenceRegion, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := r.validate.Struct(cfg); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(cfg.Geofences))
	regions := make([]domain.GeofenceRegion, 0, len(cfg.Geofences))
	for _, gc := range cfg.Geofences {
		if _, dup := seen[gc.ID]; dup {
			return nil, fmt.Errorf("duplicate geofence id %q", gc.ID)
		}
		seen[gc.ID] = struct{}{}

		region := domain.GeofenceRegion{ID: gc.ID, Name: gc.Name, Polygon: gc.Polygon}
		if gc.Circle != nil {
			region.Circle = &domain.Circle{
				Center:       domain.GeoPoint{Lat: gc.Circle.Latitude, Lon: gc.Circle.Longitude},
				RadiusMeters: gc.Circle.RadiusMeters,
			}
		}
		regions = append(regions, region)
	}
	return regions, nil
}

// Watch reloads the file whenever it changes until ctx is cancelled. The
// parent directory is watched so editors that replace the file by rename are
// picked up too.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("geofence watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(r.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				continue
			}
			if err := r.Load(); err != nil {
				log.Warn().Err(err).Msg("geofence reload failed, keeping previous set")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("geofence watcher error")
		}
	}
}
