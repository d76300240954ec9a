package privacy

import (
	"fmt"

	"github.com/Durgaprasad40/mira-nearby/internal/geo"
)

// Context carries the inputs a single fuzz computation is keyed on. It is
// built per render and never persisted. The same context always produces the
// same offset; changing any component produces an unrelated one.
type Context struct {
	ViewerID     string
	SubjectID    string
	SessionSalt  string
	ZoomBucket   int
	HideDistance bool
}

func (c Context) key() string {
	return fmt.Sprintf("%s:%s:%s:%d", c.ViewerID, c.SubjectID, c.SessionSalt, c.ZoomBucket)
}

// FuzzEngine displaces true coordinates by a deterministic, bounded offset
// before they are shown to a viewer. The true coordinate is never returned
// unmodified: the minimum radius is a hard floor.
type FuzzEngine struct {
	minRadius       int
	maxRadius       int
	hiddenMinRadius int
	hiddenMaxRadius int
}

func NewFuzzEngine(minRadius, maxRadius, hiddenMinRadius, hiddenMaxRadius int) *FuzzEngine {
	return &FuzzEngine{
		minRadius:       minRadius,
		maxRadius:       maxRadius,
		hiddenMinRadius: hiddenMinRadius,
		hiddenMaxRadius: hiddenMaxRadius,
	}
}

// Fuzz returns the displayed coordinate for a subject's true position under
// the given context.
func (e *FuzzEngine) Fuzz(trueLat, trueLon float64, ctx Context) (float64, float64) {
	seed := Seed(ctx.key())
	angle := Angle(seed)

	minR, maxR := e.minRadius, e.maxRadius
	if ctx.HideDistance {
		minR, maxR = e.hiddenMinRadius, e.hiddenMaxRadius
	}
	radius := RadiusInRange(seed, minR, maxR)

	return geo.Offset(trueLat, trueLon, radius, angle)
}
