package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitaware/procura/pkg/geo"
)

var (
	testSaoPaulo = geo.Point{Latitude: -23.5505, Longitude: -46.6333}
	testCuritiba = geo.Point{Latitude: -25.4284, Longitude: -49.2733}
	testManaus   = geo.Point{Latitude: -3.1190, Longitude: -60.0217}
)

func TestAdaptiveWeightAllActivityAtHeadquarters(t *testing.T) {
	// Every contract at one location, headquarters at that same location:
	// dispersion = 0 and d_hq_med = 0, so L = 1 exactly.
	hq := testSaoPaulo
	w := ComputeAdaptiveWeight(AdaptiveWeightInputs{
		Headquarters: &hq,
		Median:       &testSaoPaulo,
		FullSet:      []geo.Point{testSaoPaulo, testSaoPaulo, testSaoPaulo},
		TauHQKm:      1000,
		TauDispKm:    1500,
	})

	require.True(t, w.Applied)
	assert.Equal(t, 1.0, w.Factor)
	assert.Equal(t, 0.0, w.HQToMedianKm)
	assert.Equal(t, 0.0, w.DispersionKm)
}

func TestAdaptiveWeightAlwaysInUnitInterval(t *testing.T) {
	hqs := []geo.Point{testSaoPaulo, testManaus}
	sets := [][]geo.Point{
		{testSaoPaulo},
		{testSaoPaulo, testCuritiba},
		{testSaoPaulo, testCuritiba, testManaus},
	}

	for _, hq := range hqs {
		for _, set := range sets {
			median, ok := geo.Median(set)
			require.True(t, ok)
			h := hq
			w := ComputeAdaptiveWeight(AdaptiveWeightInputs{
				Headquarters: &h,
				Median:       &median,
				FullSet:      set,
				TauHQKm:      1000,
				TauDispKm:    1500,
			})
			require.True(t, w.Applied)
			assert.Greater(t, w.Factor, 0.0)
			assert.LessOrEqual(t, w.Factor, 1.0)
		}
	}
}

func TestAdaptiveWeightDecaysWithDistance(t *testing.T) {
	// Headquarters far from the activity area damps the factor.
	far := testManaus
	near := testSaoPaulo
	set := []geo.Point{testSaoPaulo, testCuritiba}
	median, _ := geo.Median(set)

	wNear := ComputeAdaptiveWeight(AdaptiveWeightInputs{
		Headquarters: &near, Median: &median, FullSet: set, TauHQKm: 1000, TauDispKm: 1500,
	})
	wFar := ComputeAdaptiveWeight(AdaptiveWeightInputs{
		Headquarters: &far, Median: &median, FullSet: set, TauHQKm: 1000, TauDispKm: 1500,
	})

	assert.Less(t, wFar.Factor, wNear.Factor)
}

func TestAdaptiveWeightMatchesFormula(t *testing.T) {
	hq := testCuritiba
	set := []geo.Point{testSaoPaulo, testManaus}
	median, _ := geo.Median(set)

	w := ComputeAdaptiveWeight(AdaptiveWeightInputs{
		Headquarters: &hq, Median: &median, FullSet: set, TauHQKm: 1000, TauDispKm: 1500,
	})

	expected := math.Exp(-geo.Haversine(hq, median)/1000) *
		math.Exp(-geo.MeanDistance(set, median)/1500)
	assert.InDelta(t, expected, w.Factor, 1e-12)
}

func TestAdaptiveWeightSkippedOnMissingInputs(t *testing.T) {
	hq := testSaoPaulo
	median := testSaoPaulo
	set := []geo.Point{testSaoPaulo}

	tests := []struct {
		name string
		in   AdaptiveWeightInputs
	}{
		{"missing headquarters", AdaptiveWeightInputs{Median: &median, FullSet: set, TauHQKm: 1000, TauDispKm: 1500}},
		{"missing median", AdaptiveWeightInputs{Headquarters: &hq, FullSet: set, TauHQKm: 1000, TauDispKm: 1500}},
		{"empty full set", AdaptiveWeightInputs{Headquarters: &hq, Median: &median, TauHQKm: 1000, TauDispKm: 1500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ComputeAdaptiveWeight(tt.in)
			assert.False(t, w.Applied)
			assert.Equal(t, 1.0, w.Factor)
			assert.NotEmpty(t, w.Reason)
		})
	}
}
