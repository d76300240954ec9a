package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Durgaprasad40/mira-nearby/internal/storage"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

const counterTTL = 48 * time.Hour

// StatsSink persists daily counters.
type StatsSink interface {
	RecordDailyStats(ctx context.Context, date time.Time, publishes, nearby, crossed int) error
	GetAnalytics(ctx context.Context, startDate, endDate time.Time) ([]storage.AnalyticsRecord, error)
}

// Recorder counts traffic in Redis and flushes daily totals to Postgres on
// an interval. Counting is cheap enough for the request path; the SQL write
// only happens in the background.
type Recorder struct {
	redis  storage.RedisClient
	sink   StatsSink
	logger logger.Logger
}

func NewRecorder(redisClient storage.RedisClient, sink StatsSink, log logger.Logger) *Recorder {
	return &Recorder{
		redis:  redisClient,
		sink:   sink,
		logger: log,
	}
}

func (r *Recorder) CountPublish(ctx context.Context) { r.bump(ctx, "publishes") }
func (r *Recorder) CountNearby(ctx context.Context)  { r.bump(ctx, "nearby") }
func (r *Recorder) CountCrossed(ctx context.Context) { r.bump(ctx, "crossed") }

func (r *Recorder) bump(ctx context.Context, field string) {
	key := r.counterKey(time.Now(), field)
	count, err := r.redis.Incr(ctx, key)
	if err != nil {
		r.logger.Debug("failed to bump counter", "key", key, "error", err)
		return
	}
	if count == 1 {
		r.redis.Expire(ctx, key, counterTTL)
	}
}

// Run flushes counters every interval until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush so a clean shutdown loses nothing.
			r.flush(context.Background())
			return
		case <-ticker.C:
			r.flush(ctx)
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	now := time.Now()
	publishes := r.readCounter(ctx, now, "publishes")
	nearby := r.readCounter(ctx, now, "nearby")
	crossed := r.readCounter(ctx, now, "crossed")

	if publishes == 0 && nearby == 0 && crossed == 0 {
		return
	}

	if err := r.sink.RecordDailyStats(ctx, now, publishes, nearby, crossed); err != nil {
		r.logger.Error("failed to flush daily stats", "error", err)
	}
}

// Report returns the persisted daily totals for the last n days.
func (r *Recorder) Report(ctx context.Context, days int) ([]storage.AnalyticsRecord, error) {
	now := time.Now()
	return r.sink.GetAnalytics(ctx, now.AddDate(0, 0, -days), now)
}

func (r *Recorder) readCounter(ctx context.Context, date time.Time, field string) int {
	value, err := r.redis.Get(ctx, r.counterKey(date, field))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func (r *Recorder) counterKey(date time.Time, field string) string {
	return fmt.Sprintf("stats:%s:%s", date.Format("2006-01-02"), field)
}
