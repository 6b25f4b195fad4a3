package feed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/carwatch/internal/models"
)

// RedisSource reads availability from a Redis GEO index kept current by the
// ingestor (cmd/ingestor). Positions live in a geo set per branch, vehicle
// metadata in a hash per plate. Same contract as HTTPSource: every call is
// a fresh read, failures come back as *UpstreamError.
type RedisSource struct {
	client *redis.Client
	prefix string
}

func NewRedisSource(addr, password, prefix string) *RedisSource {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if prefix == "" {
		prefix = "carwatch"
	}
	return &RedisSource{client: c, prefix: prefix}
}

func (s *RedisSource) geoKey(branchID int) string {
	return fmt.Sprintf("%s:geo:%d", s.prefix, branchID)
}

func (s *RedisSource) metaKey(branchID int, plate string) string {
	return fmt.Sprintf("%s:meta:%d:%s", s.prefix, branchID, plate)
}

func (s *RedisSource) Snapshot(ctx context.Context, branchID int) ([]models.Vehicle, error) {
	key := s.geoKey(branchID)
	// A geo set is a sorted set underneath; ZRANGE lists every plate.
	plates, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, &UpstreamError{Op: "redis zrange", Err: err}
	}
	if len(plates) == 0 {
		return []models.Vehicle{}, nil
	}
	positions, err := s.client.GeoPos(ctx, key, plates...).Result()
	if err != nil {
		return nil, &UpstreamError{Op: "redis geopos", Err: err}
	}
	out := make([]models.Vehicle, 0, len(plates))
	for i, plate := range plates {
		if i >= len(positions) || positions[i] == nil {
			continue
		}
		v := models.Vehicle{
			Plate: plate,
			Lat:   positions[i].Latitude,
			Lng:   positions[i].Longitude,
		}
		if meta, err := s.client.HGetAll(ctx, s.metaKey(branchID, plate)).Result(); err == nil {
			v.Brand = meta["brand"]
			v.Model = meta["model"]
			v.Color = meta["color"]
		}
		out = append(out, v)
	}
	return out, nil
}
