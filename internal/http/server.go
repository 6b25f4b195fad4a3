package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/carwatch/internal/config"
	"github.com/example/carwatch/internal/feed"
	"github.com/example/carwatch/internal/notify"
	"github.com/example/carwatch/internal/route"
	"github.com/example/carwatch/internal/subs"
)

// Server wires the HTTP and WebSocket surface over the core packages.
type Server struct {
	cfg      config.ServerConfig
	source   feed.Source
	registry *subs.Registry
	push     *notify.WebPushSender // nil when VAPID keys are absent
	walker   route.Estimator
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(cfg config.ServerConfig, source feed.Source, registry *subs.Registry, push *notify.WebPushSender, walker route.Estimator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		source:   source,
		registry: registry,
		push:     push,
		walker:   walker,
		logger:   logger,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/vehicles", s.handleVehicles).Methods("GET")
	s.mux.HandleFunc("/api/route", s.handleRoute).Methods("GET")
	s.mux.HandleFunc("/api/push/subscribe", s.handleSubscribe).Methods("POST")
	s.mux.HandleFunc("/api/push/unsubscribe", s.handleUnsubscribe).Methods("DELETE")
	s.mux.HandleFunc("/api/push/vapid-public-key", s.handleVAPIDKey).Methods("GET")
	s.mux.HandleFunc("/ws/search", s.handleSearchWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
