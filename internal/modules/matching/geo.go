// README: Pure geographic computation; great-circle distance and the ETA heuristic.
package matching

import (
	"math"

	"fleet/internal/types"
)

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// estimateMinutes is a coarse linear ETA over the straight-line distance.
// There is no live traffic data behind it; treat it as an estimate, never a
// routing-engine result.
func estimateMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm * 3))
}

// sortCandidates orders ascending by distance; ties go to the order that has
// waited longest, so the earliest-created business gets first claim.
func sortCandidates(items []CandidateMatch) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && less(key, items[j]) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}

func less(a, b CandidateMatch) bool {
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
