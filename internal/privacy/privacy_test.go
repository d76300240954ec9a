package privacy

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Durgaprasad40/mira-nearby/internal/geo"
)

func testEngine() *FuzzEngine {
	return NewFuzzEngine(20, 100, 200, 400)
}

func TestSeed_Deterministic(t *testing.T) {
	assert.Equal(t, Seed("viewer:subject:salt:4"), Seed("viewer:subject:salt:4"))
	assert.NotEqual(t, Seed("viewer:subject:salt:4"), Seed("viewer:subject:salt:3"))
	assert.NotEqual(t, Seed("a"), Seed("b"))
}

func TestAngle_Range(t *testing.T) {
	for i := uint32(0); i < 100000; i += 37 {
		a := Angle(i)
		require.GreaterOrEqual(t, a, 0.0)
		require.Less(t, a, 2*3.14159266)
	}
}

func TestRadiusInRange_Bounds(t *testing.T) {
	for i := uint32(0); i < 100000; i += 41 {
		r := RadiusInRange(i, 20, 100)
		require.GreaterOrEqual(t, r, 20.0)
		require.LessOrEqual(t, r, 100.0)
	}
}

func TestFreshness_Boundaries(t *testing.T) {
	c := NewFreshnessClassifier(72*time.Hour, 144*time.Hour)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want Tier
	}{
		{"one hour", time.Hour, TierSolid},
		{"exactly three days", 72 * time.Hour, TierSolid},
		{"three days and a second", 72*time.Hour + time.Second, TierFaded},
		{"exactly six days", 144 * time.Hour, TierFaded},
		{"six days and a second", 144*time.Hour + time.Second, TierHidden},
		{"two weeks", 14 * 24 * time.Hour, TierHidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(now.Add(-tt.age), now))
		})
	}
}

func TestFreshness_ZeroTimestampIsSolid(t *testing.T) {
	c := NewFreshnessClassifier(72*time.Hour, 144*time.Hour)
	assert.Equal(t, TierSolid, c.Classify(time.Time{}, time.Now()))
}

func TestZoomBucket(t *testing.T) {
	tests := []struct {
		span float64
		want int
	}{
		{0.50, 0},
		{0.31, 0},
		{0.30, 1},
		{0.16, 1},
		{0.15, 2},
		{0.09, 2},
		{0.08, 3},
		{0.05, 3},
		{0.04, 4},
		{0.01, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ZoomBucket(tt.span), "span %v", tt.span)
	}
}

func TestFuzz_Deterministic(t *testing.T) {
	e := testEngine()
	ctx := Context{ViewerID: "viewer-1", SubjectID: "subject-1", SessionSalt: "12345", ZoomBucket: 4}

	lat1, lon1 := e.Fuzz(40.0005, -74.0005, ctx)
	lat2, lon2 := e.Fuzz(40.0005, -74.0005, ctx)

	assert.Equal(t, lat1, lat2)
	assert.Equal(t, lon1, lon2)
}

func TestFuzz_ContextSensitivity(t *testing.T) {
	e := testEngine()
	const samples = 1000

	changedBySalt := 0
	changedByZoom := 0
	for i := 0; i < samples; i++ {
		base := Context{
			ViewerID:    fmt.Sprintf("viewer-%d", i),
			SubjectID:   "subject-1",
			SessionSalt: "salt-a",
			ZoomBucket:  4,
		}
		lat, lon := e.Fuzz(40.0005, -74.0005, base)

		saltCtx := base
		saltCtx.SessionSalt = "salt-b"
		saltLat, saltLon := e.Fuzz(40.0005, -74.0005, saltCtx)
		if saltLat != lat || saltLon != lon {
			changedBySalt++
		}

		zoomCtx := base
		zoomCtx.ZoomBucket = 2
		zoomLat, zoomLon := e.Fuzz(40.0005, -74.0005, zoomCtx)
		if zoomLat != lat || zoomLon != lon {
			changedByZoom++
		}
	}

	// At least 99% of contexts must shift when salt or bucket changes.
	assert.GreaterOrEqual(t, changedBySalt, samples*99/100)
	assert.GreaterOrEqual(t, changedByZoom, samples*99/100)
}

func TestFuzz_Floor(t *testing.T) {
	e := testEngine()
	trueLat, trueLon := 40.0005, -74.0005

	for i := 0; i < 500; i++ {
		ctx := Context{
			ViewerID:    fmt.Sprintf("v-%d", i),
			SubjectID:   fmt.Sprintf("s-%d", i*7),
			SessionSalt: fmt.Sprintf("salt-%d", i*13),
			ZoomBucket:  i % 5,
		}

		lat, lon := e.Fuzz(trueLat, trueLon, ctx)
		d := geo.Distance(trueLat, trueLon, lat, lon)
		require.GreaterOrEqual(t, d, 19.5, "normal fuzz below floor for ctx %+v", ctx)
		require.LessOrEqual(t, d, 100.5)

		ctx.HideDistance = true
		lat, lon = e.Fuzz(trueLat, trueLon, ctx)
		d = geo.Distance(trueLat, trueLon, lat, lon)
		require.GreaterOrEqual(t, d, 199.5, "hidden fuzz below floor for ctx %+v", ctx)
		require.LessOrEqual(t, d, 400.5)
	}
}

func TestFuzz_NeverReturnsTrueCoordinate(t *testing.T) {
	e := testEngine()
	for i := 0; i < 200; i++ {
		ctx := Context{ViewerID: "v", SubjectID: "s", SessionSalt: fmt.Sprintf("%d", i), ZoomBucket: i % 5}
		lat, lon := e.Fuzz(40.0, -74.0, ctx)
		require.False(t, lat == 40.0 && lon == -74.0)
	}
}
