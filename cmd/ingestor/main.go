// The ingestor keeps the Redis vehicle index current: it consumes vehicle
// position messages from Kafka and writes them into the GEO set and
// metadata hashes that feed.RedisSource reads. Deployments without a live
// upstream proxy run the API server with FEED_SOURCE=redis against this.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/carwatch/internal/logging"
)

var (
	msgsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carwatch", Name: "ingestor_messages_consumed_total",
		Help: "Vehicle position messages consumed",
	})
	msgsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carwatch", Name: "ingestor_messages_invalid_total",
		Help: "Messages that failed to decode",
	})
	indexUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carwatch", Name: "ingestor_index_updates_total",
		Help: "Successful Redis index updates",
	})
	indexErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carwatch", Name: "ingestor_index_errors_total",
		Help: "Redis index update failures after retries",
	})
)

// positionMessage is the wire shape produced by the upstream scraper.
type positionMessage struct {
	BranchID int     `json:"branch_id"`
	Plate    string  `json:"plate"`
	Brand    string  `json:"brand"`
	Model    string  `json:"model"`
	Color    string  `json:"color"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	logger := logging.NewLogger(os.Getenv("LOG_LEVEL"))

	brokers := splitBrokers(os.Getenv("KAFKA_BROKERS"))
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	topic := getenv("KAFKA_TOPIC", "vehicle-positions")
	group := getenv("KAFKA_GROUP", "carwatch-ingestor")
	prefix := getenv("REDIS_KEY_PREFIX", "carwatch")

	rc := redis.NewClient(&redis.Options{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	index := &redisIndex{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("ingestor consuming", "topic", topic, "brokers", brokers, "group", group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down")
				return
			}
			logger.Warn("kafka read failed", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		var pos positionMessage
		if err := json.Unmarshal(m.Value, &pos); err != nil || pos.Plate == "" {
			msgsInvalid.Inc()
			logger.Warn("invalid position message", "error", err)
			continue
		}

		if err := updateIndexWithRetry(ctx, index, prefix, &pos, 3, 200*time.Millisecond); err != nil {
			indexErrors.Inc()
			logger.Error("index update failed", "plate", pos.Plate, "error", err)
			continue
		}
		indexUpdates.Inc()
	}
}

// VehicleIndex is the small subset of Redis operations the ingestor needs,
// narrow enough to fake in tests.
type VehicleIndex interface {
	GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error
	HSet(ctx context.Context, key string, values map[string]interface{}) error
}

type redisIndex struct{ c *redis.Client }

func (r *redisIndex) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	_, err := r.c.GeoAdd(ctx, key, loc).Result()
	return err
}

func (r *redisIndex) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := r.c.HSet(ctx, key, values).Result()
	return err
}

// updateIndexWithRetry writes one vehicle's position and metadata, with a
// small exponential backoff per attempt. Key layout must stay in sync with
// feed.RedisSource.
func updateIndexWithRetry(ctx context.Context, index VehicleIndex, prefix string, pos *positionMessage, attempts int, delay time.Duration) error {
	geoKey := fmt.Sprintf("%s:geo:%d", prefix, pos.BranchID)
	metaKey := fmt.Sprintf("%s:meta:%d:%s", prefix, pos.BranchID, pos.Plate)
	for i := 0; i < attempts; i++ {
		if err := index.GeoAdd(ctx, geoKey, &redis.GeoLocation{Longitude: pos.Lng, Latitude: pos.Lat, Name: pos.Plate}); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		if err := index.HSet(ctx, metaKey, map[string]interface{}{"brand": pos.Brand, "model": pos.Model, "color": pos.Color}); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		return nil
	}
	return nil
}

func splitBrokers(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(v, ",") {
		if s := strings.TrimSpace(b); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
