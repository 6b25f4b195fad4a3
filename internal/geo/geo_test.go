package geo

import (
	"math"
	"testing"

	"github.com/example/carwatch/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(45.5017, -73.5673, 45.5017, -73.5673)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	// 1 degree of latitude is ~111,195m on a 6371km sphere.
	d := Haversine(45.0, -73.0, 46.0, -73.0)
	want := 111195.0
	if math.Abs(d-want)/want > 0.01 {
		t.Fatalf("expected ~%f, got %f", want, d)
	}
}

func TestFormatDistance(t *testing.T) {
	if got := FormatDistance(999); got != "999m" {
		t.Fatalf("expected 999m, got %s", got)
	}
	if got := FormatDistance(55); got != "55m" {
		t.Fatalf("expected 55m, got %s", got)
	}
	if got := FormatDistance(1000); got != "1.0km" {
		t.Fatalf("expected 1.0km, got %s", got)
	}
	if got := FormatDistance(3500); got != "3.5km" {
		t.Fatalf("expected 3.5km, got %s", got)
	}
}

func TestRankInclusiveBoundary(t *testing.T) {
	origin := models.Coord{Lat: 45.5, Lng: -73.5}
	// ~111.195m per 0.001 degree of latitude.
	exact := models.Vehicle{Plate: "exact", Lat: 45.501, Lng: -73.5}
	radius := Haversine(origin.Lat, origin.Lng, exact.Lat, exact.Lng)

	in := Rank([]models.Vehicle{exact}, origin, radius)
	if len(in) != 1 {
		t.Fatalf("vehicle at exactly the radius must be included")
	}
	out := Rank([]models.Vehicle{exact}, origin, radius-0.01)
	if len(out) != 0 {
		t.Fatalf("vehicle 1cm beyond the radius must be excluded")
	}
}

func TestRankStableAndDeterministic(t *testing.T) {
	origin := models.Coord{Lat: 45.5, Lng: -73.5}
	vehicles := []models.Vehicle{
		{Plate: "far", Lat: 45.51, Lng: -73.5},
		{Plate: "tie-a", Lat: 45.505, Lng: -73.5},
		{Plate: "tie-b", Lat: 45.505, Lng: -73.5}, // same spot, same distance
		{Plate: "near", Lat: 45.5005, Lng: -73.5},
	}

	first := Rank(vehicles, origin, 5000)
	second := Rank(vehicles, origin, 5000)

	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("expected all 4 within radius, got %d and %d", len(first), len(second))
	}
	if first[0].Plate != "near" || first[3].Plate != "far" {
		t.Fatalf("unexpected order: %s..%s", first[0].Plate, first[3].Plate)
	}
	// Equidistant vehicles keep feed order.
	if first[1].Plate != "tie-a" || first[2].Plate != "tie-b" {
		t.Fatalf("ties must keep feed order, got %s then %s", first[1].Plate, first[2].Plate)
	}
	for i := range first {
		if first[i].Plate != second[i].Plate || first[i].DistanceM != second[i].DistanceM {
			t.Fatalf("rank not deterministic at %d: %v vs %v", i, first[i], second[i])
		}
	}
}
