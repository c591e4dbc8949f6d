package match

import (
	"github.com/licitaware/procura/pkg/geo"
)

// AdaptiveWeight is the result of the adaptive weighting computation.
type AdaptiveWeight struct {
	// Factor is L in (0, 1]. 1 when adaptive weighting was skipped.
	Factor float64
	// Applied is false when an input was missing and the base weight is
	// used unmodified.
	Applied bool
	// Reason explains why weighting was skipped; empty when Applied.
	Reason string

	HQToMedianKm float64
	DispersionKm float64
}

// AdaptiveWeightInputs are the geographic inputs to the weight calculation.
type AdaptiveWeightInputs struct {
	// Headquarters is the supplier's registered headquarters, nil when the
	// registry lookup failed or its location code did not resolve.
	Headquarters *geo.Point
	// Median is the coordinate-wise median of the full location set, nil
	// when no location resolved.
	Median *geo.Point
	// FullSet holds every resolved location across all of the supplier's
	// contracts (not just the profiling sample).
	FullSet []geo.Point

	TauHQKm   float64
	TauDispKm float64
}

// ComputeAdaptiveWeight derives the weight factor
// L = exp(-d_hq_med/tau_hq) * exp(-d_disp/tau_disp) from the supplier's
// headquarters-to-activity distance and activity dispersion. When the
// headquarters, the median, or the full location set is unavailable the
// computation is skipped and L = 1, so the configured base geographic
// weight applies unmodified.
func ComputeAdaptiveWeight(in AdaptiveWeightInputs) AdaptiveWeight {
	if in.Headquarters == nil {
		return AdaptiveWeight{Factor: 1, Reason: "headquarters location unresolved"}
	}
	if in.Median == nil {
		return AdaptiveWeight{Factor: 1, Reason: "activity median unresolved"}
	}
	if len(in.FullSet) == 0 {
		return AdaptiveWeight{Factor: 1, Reason: "no contract locations resolved"}
	}

	hqToMedian := geo.Haversine(*in.Headquarters, *in.Median)
	dispersion := geo.MeanDistance(in.FullSet, *in.Median)

	factor := geo.DecaySimilarity(hqToMedian, in.TauHQKm) * geo.DecaySimilarity(dispersion, in.TauDispKm)

	return AdaptiveWeight{
		Factor:       factor,
		Applied:      true,
		HQToMedianKm: hqToMedian,
		DispersionKm: dispersion,
	}
}
