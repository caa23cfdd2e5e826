package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

const sampleConfig = `
geofences:
  - id: depot
    name: Addis Depot
    circle:
      latitude: 9.03
      longitude: 38.74
      radius_meters: 500
  - id: bole
    name: Bole Zone
    polygon:
      - {latitude: 8.98, longitude: 38.78}
      - {latitude: 8.98, longitude: 38.80}
      - {latitude: 9.00, longitude: 38.80}
      - {latitude: 9.00, longitude: 38.78}
`

func TestParse(t *testing.T) {
	regions, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regions))
	}

	depot := regions[0]
	if depot.Circle == nil || depot.Circle.RadiusMeters != 500 || depot.Circle.Center.Lat != 9.03 {
		t.Errorf("unexpected depot: %+v", depot)
	}
	bole := regions[1]
	if len(bole.Polygon) != 4 || bole.Circle != nil {
		t.Errorf("unexpected bole: %+v", bole)
	}
	if bole.Polygon[2] != (domain.GeoPoint{Lat: 9.00, Lon: 38.80}) {
		t.Errorf("unexpected vertex: %+v", bole.Polygon[2])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "geofences: [\n"},
		{"missing id", "geofences:\n  - name: x\n    circle: {latitude: 1, longitude: 1, radius_meters: 10}\n"},
		{"duplicate id", "geofences:\n  - id: a\n  - id: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_KeepsMalformedShapes(t *testing.T) {
	regions, err := Parse([]byte("geofences:\n  - id: thin\n    polygon:\n      - {latitude: 1, longitude: 1}\n      - {latitude: 2, longitude: 2}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if err := regions[0].Validate(); err == nil {
		t.Error("expected two-vertex polygon to fail validation")
	}
}

func TestLoad_NotifiesListenersAndKeepsSetOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geofences.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(path)
	var notified []domain.GeofenceRegion
	reg.OnReload(func(regions []domain.GeofenceRegion) { notified = regions })

	if err := reg.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notified) != 2 || len(reg.CurrentRegions()) != 2 {
		t.Fatalf("expected 2 regions, got notified=%d current=%d", len(notified), len(reg.CurrentRegions()))
	}

	if err := os.WriteFile(path, []byte("geofences: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := reg.Load(); err == nil {
		t.Fatal("expected parse error")
	}
	if len(reg.CurrentRegions()) != 2 {
		t.Errorf("expected previous set to remain, got %d", len(reg.CurrentRegions()))
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	reg := NewRegistry("")
	if err := reg.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.CurrentRegions()) != 0 {
		t.Errorf("expected no regions")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geofences.yaml")
	if err := os.WriteFile(path, []byte("geofences: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(path)
	if err := reg.Load(); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan int, 8)
	reg.OnReload(func(regions []domain.GeofenceRegion) {
		select {
		case reloaded <- len(regions):
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reg.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case n := <-reloaded:
			if n == 2 {
				return
			}
		case <-tick.C:
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}
