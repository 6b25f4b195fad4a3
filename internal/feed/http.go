package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/carwatch/internal/models"
)

// HTTPSource fetches availability from the operator's booking service.
// Field names in the payload are feed-specific; mapping them onto
// models.Vehicle happens here and nowhere else.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

type upstreamVehicle struct {
	CarBrand  string  `json:"CarBrand"`
	CarModel  string  `json:"CarModel"`
	CarPlate  string  `json:"CarPlate"`
	CarColor  string  `json:"CarColor"`
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
}

type upstreamResponse struct {
	D struct {
		Vehicles []upstreamVehicle `json:"Vehicles"`
	} `json:"d"`
}

func (s *HTTPSource) Snapshot(ctx context.Context, branchID int) ([]models.Vehicle, error) {
	url := fmt.Sprintf("%s/WCF/LSI/LSIBookingServiceV3.svc/GetAvailableVehicles?BranchID=%d&LanguageID=2", s.BaseURL, branchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Op: "request", Err: err}
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: "fetch", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var body upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{Op: "decode", Err: err}
	}
	out := make([]models.Vehicle, 0, len(body.D.Vehicles))
	for _, v := range body.D.Vehicles {
		out = append(out, models.Vehicle{
			Brand: v.CarBrand,
			Model: v.CarModel,
			Plate: v.CarPlate,
			Color: v.CarColor,
			Lat:   v.Latitude,
			Lng:   v.Longitude,
		})
	}
	return out, nil
}
