package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/carwatch/internal/models"
	"github.com/example/carwatch/internal/search"
)

var upgrader = websocket.Upgrader{
	// The UI is served from arbitrary hosts behind reverse proxies.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startFrame is the first message an interactive client sends.
type startFrame struct {
	City      string  `json:"city"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	RadiusM   float64 `json:"radius"`
	IntervalS int     `json:"interval_s"`
}

type clientFrame struct {
	Action string `json:"action"` // "stop"
}

type serverFrame struct {
	Type     string                 `json:"type"` // display | status | match | error
	Vehicles []models.RankedVehicle `json:"vehicles,omitempty"`
	Status   *search.Status         `json:"status,omitempty"`
	Match    *models.MatchEvent     `json:"match,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// wsSink streams loop output to one WebSocket client. gorilla conns allow
// one concurrent writer, hence the mutex.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) write(f serverFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(f)
}

func (s *wsSink) DisplaySet(vehicles []models.RankedVehicle) {
	s.write(serverFrame{Type: "display", Vehicles: vehicles})
}

func (s *wsSink) Status(st search.Status) {
	s.write(serverFrame{Type: "status", Status: &st})
}

func (s *wsSink) Match(ev models.MatchEvent) {
	s.write(serverFrame{Type: "match", Match: &ev})
}

// handleSearchWS runs one interactive ladder session per connection. The
// client sends a start frame, the server streams display/status frames and
// one final match; a stop frame or disconnect cancels the session.
func (s *Server) handleSearchWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sink := &wsSink{conn: conn}

	var start startFrame
	if err := conn.ReadJSON(&start); err != nil {
		sink.write(serverFrame{Type: "error", Error: "expected a start frame"})
		return
	}
	interval := time.Duration(start.IntervalS) * time.Second
	if interval <= 0 {
		interval = s.cfg.PollInterval
	}

	if start.RadiusM <= 0 {
		sink.write(serverFrame{Type: "error", Error: "radius must be > 0"})
		return
	}
	session, err := search.New(search.Config{
		City:               start.City,
		Origin:             models.Coord{Lat: start.Lat, Lng: start.Lng},
		RadiusM:            start.RadiusM,
		Interval:           interval,
		Policy:             search.PolicyLadder,
		ObservationBufferM: s.cfg.ObservationBufferM,
	}, s.source, sink, s.logger)
	if err != nil {
		sink.write(serverFrame{Type: "error", Error: err.Error()})
		return
	}

	// Watch for a stop frame or disconnect while the loop runs.
	go func() {
		for {
			var frame clientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				session.Stop()
				return
			}
			if frame.Action == "stop" {
				session.Stop()
				return
			}
		}
	}()

	s.logger.Info("interactive session started", "city", start.City, "radius_m", start.RadiusM, "remote_addr", remoteIP(r))
	session.Run(r.Context())
	s.logger.Info("interactive session finished", "city", start.City)
}
