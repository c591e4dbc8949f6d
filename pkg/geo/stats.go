package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Point represents a resolved geographic coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Haversine returns the great-circle distance between two points in
// kilometers. The distance is symmetric and zero between identical points.
func Haversine(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Centroid returns the arithmetic mean of a set of points. The second return
// value is false when the set is empty; the centroid of an empty set is
// undefined, not (0,0).
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLon += p.Longitude
	}

	n := float64(len(points))
	return Point{Latitude: sumLat / n, Longitude: sumLon / n}, true
}

// Median returns the coordinate-wise median of a set of points: latitude and
// longitude medians are computed independently. It is more robust to outlier
// locations than the centroid. The second return value is false when the set
// is empty.
func Median(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}

	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Latitude
		lons[i] = p.Longitude
	}

	return Point{Latitude: median(lats), Longitude: median(lons)}, true
}

// MeanDistance returns the mean Haversine distance from ref to every point
// in the set, in kilometers. Used as the dispersion proxy for adaptive
// weighting. Returns 0 for an empty set.
func MeanDistance(points []Point, ref Point) float64 {
	if len(points) == 0 {
		return 0
	}

	var sum float64
	for _, p := range points {
		sum += Haversine(ref, p)
	}
	return sum / float64(len(points))
}

// DecaySimilarity converts a distance in kilometers into a similarity in
// (0, 1] using exponential decay: exp(-d/tau). It equals 1 at distance 0 and
// is monotonically non-increasing in distance for a fixed tau.
func DecaySimilarity(distKm, tauKm float64) float64 {
	if tauKm <= 0 {
		return 0
	}
	return math.Exp(-distKm / tauKm)
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
