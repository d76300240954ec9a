package crossedpaths

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Durgaprasad40/mira-nearby/internal/config"
	"github.com/Durgaprasad40/mira-nearby/internal/location"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

type fakeScanner struct {
	records []*location.Record
	err     error
}

func (f *fakeScanner) QueryNearby(_ context.Context, _ string, _, _, _ float64) ([]*location.Record, error) {
	return f.records, f.err
}

type fakeCooldowns struct {
	marks   map[string]time.Duration
	err     error
	markErr error
}

func newFakeCooldowns() *fakeCooldowns {
	return &fakeCooldowns{marks: make(map[string]time.Duration)}
}

func (f *fakeCooldowns) Active(_ context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.marks[key]
	return ok, nil
}

func (f *fakeCooldowns) Mark(_ context.Context, key string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	if f.markErr != nil {
		return f.markErr
	}
	f.marks[key] = ttl
	return nil
}

func (f *fakeCooldowns) Clear(_ context.Context, key string) error {
	delete(f.marks, key)
	return nil
}

type fakeNotifier struct {
	sent []map[string]string
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, _, _, _ string, payload map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, payload)
	return nil
}

func testConfig() config.CrossedPathsConfig {
	return config.CrossedPathsConfig{
		PublishCooldown: 6 * time.Hour,
		NotifyCooldown:  6 * time.Hour,
		PairDedupe:      24 * time.Hour,
		RecencyWindow:   24 * time.Hour,
		RadiusMeters:    2000,
	}
}

func newTestDetector(scanner *fakeScanner, cooldowns *fakeCooldowns, notifier *fakeNotifier) *Detector {
	return NewDetector(scanner, cooldowns, notifier, testConfig(), logger.NewLogger("test"))
}

func candidate(userID string, publishedAgo time.Duration, now time.Time) *location.Record {
	return &location.Record{
		UserID:        userID,
		Latitude:      40.0,
		Longitude:     -74.0,
		LastUpdatedAt: now.Add(-publishedAgo),
		PublishedAt:   now.Add(-publishedAgo),
	}
}

func TestDetect_FiresOnceAndRecordsCooldowns(t *testing.T) {
	now := time.Now()
	scanner := &fakeScanner{records: []*location.Record{candidate("other", time.Hour, now)}}
	cooldowns := newFakeCooldowns()
	notifier := &fakeNotifier{}
	d := newTestDetector(scanner, cooldowns, notifier)

	triggered, err := d.Detect(context.Background(), "me", 40.0, -74.0, now)

	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Len(t, notifier.sent, 1)
	assert.Contains(t, cooldowns.marks, "crossed:user:me")
	assert.Contains(t, cooldowns.marks, "crossed:pair:me:other")
	assert.Equal(t, 6*time.Hour, cooldowns.marks["crossed:user:me"])
	assert.Equal(t, 24*time.Hour, cooldowns.marks["crossed:pair:me:other"])
}

func TestDetect_PayloadIsIdentityFree(t *testing.T) {
	now := time.Now()
	scanner := &fakeScanner{records: []*location.Record{candidate("other", time.Hour, now)}}
	notifier := &fakeNotifier{}
	d := newTestDetector(scanner, newFakeCooldowns(), notifier)

	_, err := d.Detect(context.Background(), "me", 40.0, -74.0, now)

	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Empty(t, notifier.sent[0])
}

func TestDetect_UserCooldownSuppresses(t *testing.T) {
	now := time.Now()
	scanner := &fakeScanner{records: []*location.Record{candidate("other", time.Hour, now)}}
	cooldowns := newFakeCooldowns()
	// Notification already sent two hours ago; the 6h window is still open.
	cooldowns.marks["crossed:user:me"] = 6 * time.Hour
	notifier := &fakeNotifier{}
	d := newTestDetector(scanner, cooldowns, notifier)

	triggered, err := d.Detect(context.Background(), "me", 40.0, -74.0, now)

	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, notifier.sent)
	// No new pair state either: suppression mutates nothing.
	assert.NotContains(t, cooldowns.marks, "crossed:pair:me:other")
}

func TestDetect_PairDedupe(t *testing.T) {
	now := time.Now()
	scanner := &fakeScanner{records: []*location.Record{candidate("other", time.Hour, now)}}
	cooldowns := newFakeCooldowns()
	notifier := &fakeNotifier{}
	d := newTestDetector(scanner, cooldowns, notifier)

	triggered, err := d.Detect(context.Background(), "me", 40.0, -74.0, now)
	require.NoError(t, err)
	require.True(t, triggered)

	// Clear the per-user cooldown but keep the pair record: the same two
	// users overlapping again within 24h must not re-fire.
	delete(cooldowns.marks, "crossed:user:me")

	triggered, err = d.Detect(context.Background(), "me", 40.0, -74.0, now.Add(7*time.Hour))
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Len(t, notifier.sent, 1)
}

func TestDetect_PairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, pairKey("a", "b"), pairKey("b", "a"))
}

func TestDetect_StaleCandidatesIgnored(t *testing.T) {
	now := time.Now()
	scanner := &fakeScanner{records: []*location.Record{
		candidate("old", 25*time.Hour, now),
		{UserID: "never-published", Latitude: 40, Longitude: -74, LastUpdatedAt: now},
	}}
	notifier := &fakeNotifier{}
	d := newTestDetector(scanner, newFakeCooldowns(), notifier)

	triggered, err := d.Detect(context.Background(), "me", 40.0, -74.0, now)

	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, notifier.sent)
}

func TestDetect_ScanFailureFailsSafe(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("store unavailable")}
	cooldowns := newFakeCooldowns()
	notifier := &fakeNotifier{}
	d := newTestDetector(scanner, cooldowns, notifier)

	triggered, err := d.Detect(context.Background(), "me", 40.0, -74.0, time.Now())

	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, cooldowns.marks)
}

func TestDetect_NotifyFailureReleasesCooldowns(t *testing.T) {
	now := time.Now()
	scanner := &fakeScanner{records: []*location.Record{candidate("other", time.Hour, now)}}
	cooldowns := newFakeCooldowns()
	notifier := &fakeNotifier{err: errors.New("queue down")}
	d := newTestDetector(scanner, cooldowns, notifier)

	triggered, err := d.Detect(context.Background(), "me", 40.0, -74.0, now)

	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Empty(t, cooldowns.marks)

	// With the queue back, the same overlap fires normally.
	notifier.err = nil
	triggered, err = d.Detect(context.Background(), "me", 40.0, -74.0, now)
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Len(t, notifier.sent, 1)
}

func TestDetect_MarkFailureSkipsNotification(t *testing.T) {
	now := time.Now()
	scanner := &fakeScanner{records: []*location.Record{candidate("other", time.Hour, now)}}
	cooldowns := newFakeCooldowns()
	cooldowns.markErr = errors.New("store down")
	notifier := &fakeNotifier{}
	d := newTestDetector(scanner, cooldowns, notifier)

	triggered, err := d.Detect(context.Background(), "me", 40.0, -74.0, now)

	// The cooldown record is the source of truth: if it cannot be written,
	// nothing may be sent.
	assert.Error(t, err)
	assert.False(t, triggered)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, cooldowns.marks)
}
