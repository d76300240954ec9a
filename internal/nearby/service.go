package nearby

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Durgaprasad40/mira-nearby/internal/config"
	"github.com/Durgaprasad40/mira-nearby/internal/geo"
	"github.com/Durgaprasad40/mira-nearby/internal/location"
	"github.com/Durgaprasad40/mira-nearby/internal/privacy"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

// CandidateSource yields published locations around a point. The viewer's
// own record is never included.
type CandidateSource interface {
	QueryNearby(ctx context.Context, viewerID string, lat, lon, radiusMeters float64) ([]*location.Record, error)
}

// BlockSource reports which users are blocked in either direction.
type BlockSource interface {
	BlockedIDs(ctx context.Context, userID string) (map[string]bool, error)
}

// User is a single entry in a nearby result. Coordinates are always fuzzed;
// DistanceMeters is measured to the fuzzed point and rounded, so it can
// never be combined with the coordinate to recover the true position.
type User struct {
	UserID         string  `json:"user_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Freshness      string  `json:"freshness"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Service assembles nearby results: it filters blocked and stale candidates,
// applies the visibility cutoff on true distance, then fuzzes every surviving
// coordinate per viewer.
type Service struct {
	candidates CandidateSource
	blocks     BlockSource
	fuzzer     *privacy.FuzzEngine
	freshness  *privacy.FreshnessClassifier
	cfg        config.NearbyConfig
	logger     logger.Logger
}

func NewService(
	candidates CandidateSource,
	blocks BlockSource,
	fuzzer *privacy.FuzzEngine,
	freshness *privacy.FreshnessClassifier,
	cfg config.NearbyConfig,
	log logger.Logger,
) *Service {
	return &Service{
		candidates: candidates,
		blocks:     blocks,
		fuzzer:     fuzzer,
		freshness:  freshness,
		cfg:        cfg,
		logger:     log,
	}
}

// Query returns the users visible to viewerID around (lat, lon), ordered
// nearest first. sessionSalt and zoomBucket key the per-viewer fuzz.
func (s *Service) Query(ctx context.Context, viewerID string, lat, lon float64, sessionSalt string, zoomBucket int, now time.Time) ([]User, error) {
	records, err := s.candidates.QueryNearby(ctx, viewerID, lat, lon, float64(s.cfg.QueryRadiusMeters))
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}

	blocked, err := s.blocks.BlockedIDs(ctx, viewerID)
	if err != nil {
		// Blocks are a hard privacy boundary; never serve results without them.
		return nil, fmt.Errorf("failed to load blocked users: %w", err)
	}

	results := make([]User, 0, len(records))
	for _, rec := range records {
		if blocked[rec.UserID] {
			continue
		}

		tier := s.freshness.Classify(rec.LastUpdatedAt, now)
		if tier == privacy.TierHidden {
			// Hidden records drop out before any coordinate work happens.
			continue
		}

		trueDistance := geo.Distance(lat, lon, rec.Latitude, rec.Longitude)
		if trueDistance > float64(s.cfg.VisibleCutoffMeters) {
			continue
		}

		fuzzedLat, fuzzedLon := s.fuzzer.Fuzz(rec.Latitude, rec.Longitude, privacy.Context{
			ViewerID:     viewerID,
			SubjectID:    rec.UserID,
			SessionSalt:  sessionSalt,
			ZoomBucket:   zoomBucket,
			HideDistance: rec.HideDistance,
		})

		results = append(results, User{
			UserID:         rec.UserID,
			Latitude:       fuzzedLat,
			Longitude:      fuzzedLon,
			Freshness:      string(tier),
			DistanceMeters: float64(geo.RoundToNearest50(geo.Distance(lat, lon, fuzzedLat, fuzzedLon))),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	return results, nil
}
