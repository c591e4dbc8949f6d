package geo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// CoordinateSource provides the full location-code-to-coordinate reference
// table. Implemented by the database layer.
type CoordinateSource interface {
	LoadCoordinates(ctx context.Context) (map[string]Point, error)
}

// Resolver resolves location codes to coordinates from an in-memory snapshot
// of the reference table. The snapshot is immutable once loaded: Reload
// builds a fresh map and swaps it atomically, so lookups are safe for
// concurrent use across searches without locking.
type Resolver struct {
	source   CoordinateSource
	snapshot atomic.Pointer[map[string]Point]
	loadedAt atomic.Pointer[time.Time]
}

// NewResolver creates a resolver backed by the given source. The resolver is
// empty until the first Reload.
func NewResolver(source CoordinateSource) *Resolver {
	r := &Resolver{source: source}
	empty := map[string]Point{}
	r.snapshot.Store(&empty)
	return r
}

// Reload loads the full reference table and atomically replaces the current
// snapshot. In-flight lookups keep reading the previous snapshot.
func (r *Resolver) Reload(ctx context.Context) error {
	coords, err := r.source.LoadCoordinates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load coordinate reference data: %w", err)
	}

	r.snapshot.Store(&coords)
	now := time.Now()
	r.loadedAt.Store(&now)
	return nil
}

// Resolve returns the coordinates for a location code. The second return
// value is false when the code has no entry, which is distinct from a
// resolved point at (0,0).
func (r *Resolver) Resolve(code string) (Point, bool) {
	if code == "" {
		return Point{}, false
	}
	p, ok := (*r.snapshot.Load())[code]
	return p, ok
}

// ResolveAll resolves a batch of location codes, dropping the ones with no
// entry. It returns the resolved points and the count of codes that could
// not be resolved.
func (r *Resolver) ResolveAll(codes []string) ([]Point, int) {
	points := make([]Point, 0, len(codes))
	missing := 0
	for _, code := range codes {
		if p, ok := r.Resolve(code); ok {
			points = append(points, p)
		} else {
			missing++
		}
	}
	return points, missing
}

// Size returns the number of entries in the current snapshot.
func (r *Resolver) Size() int {
	return len(*r.snapshot.Load())
}

// LoadedAt returns the time of the last successful Reload, or the zero time
// if the resolver has never been loaded.
func (r *Resolver) LoadedAt() time.Time {
	if t := r.loadedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}
