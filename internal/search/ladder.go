package search

// Radius thresholds the ladder policy steps down through, in meters.
var ladderRadii = []float64{
	10000, 8000, 6000, 5000, 4000, 3000, 2000, 1500,
	1000, 900, 800, 700, 600, 500, 400, 300, 200,
}

// nextLadderRadius returns the largest ladder value strictly below
// distanceM. Setting the radius there guarantees the next poll only accepts
// something strictly closer than what was just found. ok is false when the
// distance is already inside the tightest band.
func nextLadderRadius(distanceM float64) (float64, bool) {
	for _, r := range ladderRadii {
		if r < distanceM {
			return r, true
		}
	}
	return 0, false
}
