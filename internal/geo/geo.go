package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/example/carwatch/internal/models"
)

// Haversine returns the great-circle distance in meters between two WGS-84
// coordinate pairs. Good to ~0.5% at city scale, which is plenty given the
// feed reports vehicle positions at meter precision anyway.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// FormatDistance renders meters for humans: "999m" below a kilometre,
// "1.5km" above. Total over all inputs, even nonsense ones.
func FormatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(m)))
	}
	return fmt.Sprintf("%.1fkm", m/1000)
}

// Rank computes each vehicle's distance to origin, keeps those within
// radiusM (inclusive), and sorts ascending by distance. The sort is stable
// so identical snapshots always produce identical orderings; ties keep the
// feed's order.
func Rank(vehicles []models.Vehicle, origin models.Coord, radiusM float64) []models.RankedVehicle {
	out := make([]models.RankedVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		d := Haversine(origin.Lat, origin.Lng, v.Lat, v.Lng)
		if d <= radiusM {
			out = append(out, models.RankedVehicle{Vehicle: v, DistanceM: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceM < out[j].DistanceM })
	return out
}
