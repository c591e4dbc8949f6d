package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCoordinateSource struct {
	coords map[string]Point
	err    error
	loads  int
}

func (f *fakeCoordinateSource) LoadCoordinates(ctx context.Context) (map[string]Point, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.coords, nil
}

func TestResolverEmptyBeforeReload(t *testing.T) {
	r := NewResolver(&fakeCoordinateSource{})

	_, ok := r.Resolve("3550308")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Size())
	assert.True(t, r.LoadedAt().IsZero())
}

func TestResolverReloadAndResolve(t *testing.T) {
	source := &fakeCoordinateSource{coords: map[string]Point{
		"3550308": {Latitude: -23.5505, Longitude: -46.6333},
		"3304557": {Latitude: -22.9068, Longitude: -43.1729},
	}}
	r := NewResolver(source)
	require.NoError(t, r.Reload(context.Background()))

	p, ok := r.Resolve("3550308")
	require.True(t, ok)
	assert.InDelta(t, -23.5505, p.Latitude, 1e-9)

	_, ok = r.Resolve("9999999")
	assert.False(t, ok)

	_, ok = r.Resolve("")
	assert.False(t, ok)

	assert.Equal(t, 2, r.Size())
	assert.False(t, r.LoadedAt().IsZero())
}

func TestResolverReloadFailureKeepsSnapshot(t *testing.T) {
	source := &fakeCoordinateSource{coords: map[string]Point{"3550308": {Latitude: -23.5, Longitude: -46.6}}}
	r := NewResolver(source)
	require.NoError(t, r.Reload(context.Background()))

	source.err = errors.New("connection refused")
	require.Error(t, r.Reload(context.Background()))

	// The previous snapshot stays readable.
	_, ok := r.Resolve("3550308")
	assert.True(t, ok)
}

func TestResolveAll(t *testing.T) {
	source := &fakeCoordinateSource{coords: map[string]Point{
		"3550308": {Latitude: -23.5, Longitude: -46.6},
		"5300108": {Latitude: -15.8, Longitude: -47.9},
	}}
	r := NewResolver(source)
	require.NoError(t, r.Reload(context.Background()))

	points, missing := r.ResolveAll([]string{"3550308", "0000000", "5300108", ""})
	assert.Len(t, points, 2)
	assert.Equal(t, 2, missing)
}
