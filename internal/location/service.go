package location

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/redis/go-redis/v9"

	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	apperrors "github.com/Durgaprasad40/mira-nearby/pkg/errors"
)

// recordTTL bounds how long a location record lives without any write.
// Freshness tiering hides records long before this expires.
const recordTTL = 7 * 24 * time.Hour

// Record is a user's stored location. Latitude and longitude are the true
// coordinates: they never leave the server unfuzzed for anyone but the owner.
type Record struct {
	UserID        string
	Latitude      float64
	Longitude     float64
	LastUpdatedAt time.Time
	PublishedAt   time.Time
	HideDistance  bool
}

type PublishResult struct {
	Accepted    bool
	NearbyCount int
}

type Service struct {
	redis            storage.RedisClient
	publishCooldown  time.Duration
	queryRadius      int
	geohashPrecision uint
}

func NewService(redisClient storage.RedisClient, publishCooldown time.Duration, queryRadius int, geohashPrecision uint) *Service {
	return &Service{
		redis:            redisClient,
		publishCooldown:  publishCooldown,
		queryRadius:      queryRadius,
		geohashPrecision: geohashPrecision,
	}
}

// Record stores a raw tracking location. Not rate-limited; always bumps
// LastUpdatedAt.
func (s *Service) Record(ctx context.Context, userID string, lat, lon float64, now time.Time) error {
	key := s.locationKey(userID)

	if err := s.redis.HSet(ctx, key,
		"user_id", userID,
		"lat", lat,
		"lon", lon,
		"updated_at", now.Unix(),
	); err != nil {
		return fmt.Errorf("failed to store location: %w", err)
	}
	s.redis.Expire(ctx, key, recordTTL)

	if err := s.redis.GeoAdd(ctx, rawGeoKey, &redis.GeoLocation{
		Name:      userID,
		Longitude: lon,
		Latitude:  lat,
	}); err != nil {
		return fmt.Errorf("failed to index location: %w", err)
	}

	return nil
}

// Publish makes a user discoverable and eligible for crossed-paths checks.
// Rate-limited: within the cooldown window the call is a silent no-op that
// reports Accepted=false. The gate is a single SETNX so two concurrent
// publishes cannot both pass.
func (s *Service) Publish(ctx context.Context, userID string, lat, lon float64, now time.Time) (*PublishResult, error) {
	acquired, err := s.redis.SetNX(ctx, s.publishGateKey(userID), now.Unix(), s.publishCooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to check publish gate: %w", err)
	}
	if !acquired {
		return &PublishResult{Accepted: false}, nil
	}

	if err := s.Record(ctx, userID, lat, lon, now); err != nil {
		return nil, err
	}

	key := s.locationKey(userID)
	if err := s.redis.HSet(ctx, key, "published_at", now.Unix()); err != nil {
		return nil, fmt.Errorf("failed to store publish time: %w", err)
	}

	if err := s.redis.GeoAdd(ctx, publishedGeoKey, &redis.GeoLocation{
		Name:      userID,
		Longitude: lon,
		Latitude:  lat,
	}); err != nil {
		return nil, fmt.Errorf("failed to index published location: %w", err)
	}

	nearby, err := s.QueryNearby(ctx, userID, lat, lon, float64(s.queryRadius))
	if err != nil {
		return nil, err
	}

	// Wake up live viewers watching this area.
	s.redis.Publish(ctx, s.AreaChannel(lat, lon), userID)

	return &PublishResult{Accepted: true, NearbyCount: len(nearby)}, nil
}

// SetHideDistance toggles the heightened privacy tier for a user.
func (s *Service) SetHideDistance(ctx context.Context, userID string, hide bool) error {
	flag := 0
	if hide {
		flag = 1
	}
	if err := s.redis.HSet(ctx, s.locationKey(userID), "hide_distance", flag); err != nil {
		return fmt.Errorf("failed to store privacy flag: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.locationKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrLocationNotFound
	}

	return parseRecord(userID, fields)
}

// QueryNearby returns raw, unfuzzed published locations within radiusMeters
// of the center, excluding the viewer. Callers are responsible for freshness
// filtering, block filtering and fuzzing before anything reaches a client.
func (s *Service) QueryNearby(ctx context.Context, viewerID string, lat, lon, radiusMeters float64) ([]*Record, error) {
	locations, err := s.redis.GeoRadius(ctx, publishedGeoKey, lon, lat, &redis.GeoRadiusQuery{
		Radius: radiusMeters,
		Unit:   "m",
		Count:  200,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby: %w", err)
	}

	records := make([]*Record, 0, len(locations))
	for _, loc := range locations {
		if loc.Name == viewerID {
			continue
		}
		record, err := s.Get(ctx, loc.Name)
		if err != nil {
			// Record expired out from under the geo index; drop it.
			s.redis.ZRem(ctx, publishedGeoKey, loc.Name)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// AreaChannel names the pub/sub channel for the geohash cell containing a
// coordinate.
func (s *Service) AreaChannel(lat, lon float64) string {
	return fmt.Sprintf("area:%s", geohash.EncodeWithPrecision(lat, lon, s.geohashPrecision))
}

const (
	rawGeoKey       = "geo:raw"
	publishedGeoKey = "geo:published"
)

func (s *Service) locationKey(userID string) string {
	return fmt.Sprintf("location:%s", userID)
}

func (s *Service) publishGateKey(userID string) string {
	return fmt.Sprintf("publish:gate:%s", userID)
}

func parseRecord(userID string, fields map[string]string) (*Record, error) {
	lat, err := strconv.ParseFloat(fields["lat"], 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt latitude for %s: %w", userID, err)
	}
	lon, err := strconv.ParseFloat(fields["lon"], 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt longitude for %s: %w", userID, err)
	}

	record := &Record{
		UserID:       userID,
		Latitude:     lat,
		Longitude:    lon,
		HideDistance: fields["hide_distance"] == "1",
	}

	if ts, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		record.LastUpdatedAt = time.Unix(ts, 0)
	}
	if ts, err := strconv.ParseInt(fields["published_at"], 10, 64); err == nil {
		record.PublishedAt = time.Unix(ts, 0)
	}

	return record, nil
}
