package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const samplePayload = `{"d":{"Vehicles":[
	{"CarBrand":"Toyota","CarModel":"Prius C","CarPlate":"ABC123","CarColor":"White","Latitude":45.5017,"Longitude":-73.5673},
	{"CarBrand":"Kia","CarModel":"Rio","CarPlate":"XYZ789","CarColor":"Grey","Latitude":45.51,"Longitude":-73.56}
]}}`

func TestHTTPSourceMapsPayload(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		w.Write([]byte(samplePayload))
	}))
	defer ts.Close()

	src := NewHTTPSource(ts.URL, 2*time.Second)
	vehicles, err := src.Snapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(vehicles))
	}
	v := vehicles[0]
	if v.Brand != "Toyota" || v.Model != "Prius C" || v.Plate != "ABC123" || v.Color != "White" {
		t.Fatalf("bad mapping: %+v", v)
	}
	if v.Lat != 45.5017 || v.Lng != -73.5673 {
		t.Fatalf("bad coordinates: %+v", v)
	}
	if want := "/WCF/LSI/LSIBookingServiceV3.svc/GetAvailableVehicles?BranchID=1&LanguageID=2"; gotPath != want {
		t.Fatalf("expected request to %s, got %s", want, gotPath)
	}
}

func TestHTTPSourceNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	src := NewHTTPSource(ts.URL, 2*time.Second)
	_, err := src.Snapshot(context.Background(), 1)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
}

func TestHTTPSourceMalformedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	src := NewHTTPSource(ts.URL, 2*time.Second)
	_, err := src.Snapshot(context.Background(), 1)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
}

func TestBookingURL(t *testing.T) {
	if got := BookingURL("toronto"); got != "https://ontario.client.reservauto.net/bookCar" {
		t.Fatalf("toronto: %s", got)
	}
	if got := BookingURL("montreal"); got != "https://quebec.client.reservauto.net/bookCar" {
		t.Fatalf("montreal: %s", got)
	}
}
