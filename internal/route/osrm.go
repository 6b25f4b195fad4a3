// Package route estimates walking distance and duration to a vehicle via
// an external OSRM server. Only the distance/duration pair is consumed;
// route geometry stays with the mapping collaborator.
package route

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/carwatch/internal/models"
)

type Estimate struct {
	DistanceM float64 `json:"distance_m"`
	DurationS float64 `json:"duration_s"`
}

type Estimator interface {
	Walk(ctx context.Context, from, to models.Coord) (Estimate, error)
}

// OSRMClient queries an OSRM HTTP server's foot profile.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (o *OSRMClient) Walk(ctx context.Context, from, to models.Coord) (Estimate, error) {
	url := fmt.Sprintf("%s/route/v1/foot/%.6f,%.6f;%.6f,%.6f?overview=false", o.Endpoint, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Estimate{}, err
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return Estimate{}, err
	}
	defer resp.Body.Close()
	var out struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Estimate{}, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return Estimate{}, fmt.Errorf("osrm no route: %v", out.Code)
	}
	return Estimate{DistanceM: out.Routes[0].Distance, DurationS: out.Routes[0].Duration}, nil
}
