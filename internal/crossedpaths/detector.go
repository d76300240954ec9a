package crossedpaths

import (
	"context"
	"fmt"
	"time"

	"github.com/Durgaprasad40/mira-nearby/internal/config"
	"github.com/Durgaprasad40/mira-nearby/internal/location"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

const (
	notificationTitle = "Crossed paths"
	notificationBody  = "Someone crossed your path recently"
)

// CandidateScanner supplies other users' most recently published locations
// around a point.
type CandidateScanner interface {
	QueryNearby(ctx context.Context, viewerID string, lat, lon, radiusMeters float64) ([]*location.Record, error)
}

// CooldownStore tracks notification cooldown timestamps. Marks only ever move
// a cooldown forward; they are the single source of truth for whether a
// notification already happened.
type CooldownStore interface {
	Active(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string, payload map[string]string) error
}

// Detector decides whether a publish should raise a crossed-paths event for
// the publishing user. All gates are cooldown-timestamp driven so re-running
// with unchanged state never double-fires.
type Detector struct {
	scanner   CandidateScanner
	cooldowns CooldownStore
	notifier  Notifier
	cfg       config.CrossedPathsConfig
	logger    logger.Logger
}

func NewDetector(scanner CandidateScanner, cooldowns CooldownStore, notifier Notifier, cfg config.CrossedPathsConfig, log logger.Logger) *Detector {
	return &Detector{
		scanner:   scanner,
		cooldowns: cooldowns,
		notifier:  notifier,
		cfg:       cfg,
		logger:    log,
	}
}

// Detect runs the crossed-paths protocol for a user who just published at
// (lat, lon). Returns whether a notification fired. A failed candidate scan
// is not an error for the caller: the publish already succeeded for its
// primary purpose, so the detector fails safe with no notification and no
// state mutation.
func (d *Detector) Detect(ctx context.Context, userID string, lat, lon float64, now time.Time) (bool, error) {
	candidates, err := d.scanner.QueryNearby(ctx, userID, lat, lon, float64(d.cfg.RadiusMeters))
	if err != nil {
		d.logger.Warn("Crossed-paths scan failed, skipping detection", "user_id", userID, "error", err)
		return false, nil
	}

	recent := candidates[:0]
	for _, c := range candidates {
		if c.PublishedAt.IsZero() || now.Sub(c.PublishedAt) > d.cfg.RecencyWindow {
			continue
		}
		recent = append(recent, c)
	}
	if len(recent) == 0 {
		return false, nil
	}

	// Per-user cooldown gate.
	active, err := d.cooldowns.Active(ctx, userCooldownKey(userID))
	if err != nil {
		d.logger.Warn("Cooldown check failed, skipping detection", "user_id", userID, "error", err)
		return false, nil
	}
	if active {
		return false, nil
	}

	// Per-pair dedupe gate.
	var survivors []*location.Record
	for _, c := range recent {
		deduped, err := d.cooldowns.Active(ctx, pairKey(userID, c.UserID))
		if err != nil {
			d.logger.Warn("Pair dedupe check failed, skipping counterpart", "user_id", userID, "error", err)
			continue
		}
		if !deduped {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return false, nil
	}

	// Cooldown marks go down before the notification is enqueued: a partial
	// failure can only under-notify, never fire twice inside a window. A
	// failed enqueue releases the marks it claimed.
	marked := []string{userCooldownKey(userID)}
	if err := d.cooldowns.Mark(ctx, marked[0], d.cfg.NotifyCooldown); err != nil {
		return false, fmt.Errorf("failed to mark user cooldown: %w", err)
	}
	for _, c := range survivors {
		key := pairKey(userID, c.UserID)
		if err := d.cooldowns.Mark(ctx, key, d.cfg.PairDedupe); err != nil {
			d.release(ctx, marked)
			return false, fmt.Errorf("failed to mark pair dedupe: %w", err)
		}
		marked = append(marked, key)
	}

	// Exactly one notification per surviving publish, and the payload carries
	// no counterpart identity.
	if err := d.notifier.Notify(ctx, userID, notificationTitle, notificationBody, map[string]string{}); err != nil {
		d.logger.Warn("Failed to enqueue crossed-paths notification", "user_id", userID, "error", err)
		d.release(ctx, marked)
		return false, nil
	}

	return true, nil
}

// release undoes cooldown marks claimed by a firing that did not complete.
func (d *Detector) release(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := d.cooldowns.Clear(ctx, key); err != nil {
			d.logger.Warn("Failed to release cooldown mark", "key", key, "error", err)
		}
	}
}

func userCooldownKey(userID string) string {
	return fmt.Sprintf("crossed:user:%s", userID)
}

// pairKey is order-independent so either side publishing first hits the same
// dedupe entry.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("crossed:pair:%s:%s", a, b)
}
