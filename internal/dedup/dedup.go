// Package dedup collapses the raw report stream into one visible report per
// map spot. Reports accumulate indefinitely and frequently re-measure the
// same physical location; without bucketed reduction the map would render
// stacks of overlapping markers.
package dedup

import (
	"math"
	"strconv"

	"quietmap/internal/domain"
)

// Mode selects which reports survive the filter pass.
type Mode string

const (
	ModeAll       Mode = "all"
	ModeQuietOnly Mode = "quiet_only"
)

// DefaultBucketDegrees groups coordinates within ~50-60m of each other.
const DefaultBucketDegrees = 0.0005

type Engine struct {
	bucketDegrees float64
}

func New(bucketDegrees float64) *Engine {
	if bucketDegrees <= 0 {
		bucketDegrees = DefaultBucketDegrees
	}
	return &Engine{bucketDegrees: bucketDegrees}
}

// Visible reduces reports to at most one per spatial bucket: filter by mode,
// bucket by rounded coordinates, keep the most recent report per bucket.
// Output order is arbitrary; renderers sort if they care. The result is
// independent of input order for distinct timestamps; on a timestamp tie the
// later-iterated report wins.
func (e *Engine) Visible(reports []domain.Report, mode Mode) []domain.Report {
	buckets := make(map[string]domain.Report)

	for _, r := range reports {
		if !keep(r, mode) {
			continue
		}
		// Persisted reports always carry coordinates; skip anything that
		// slipped through without them rather than bucketing at (0,0).
		if r.Coordinates == nil {
			continue
		}

		key := e.BucketKey(r.Coordinates.Lat, r.Coordinates.Lng)
		if existing, ok := buckets[key]; !ok || r.CreatedAt >= existing.CreatedAt {
			buckets[key] = r
		}
	}

	visible := make([]domain.Report, 0, len(buckets))
	for _, r := range buckets {
		visible = append(visible, r)
	}
	return visible
}

// BucketKey rounds both axes independently to the nearest bucketDegrees
// multiple and joins them, formatted to 4 decimals. math.Round rounds halves
// away from zero on both sides of each axis, so bucket boundaries are
// symmetric around zero latitude/longitude.
func (e *Engine) BucketKey(lat, lng float64) string {
	return formatAxis(snap(lat, e.bucketDegrees)) + "," + formatAxis(snap(lng, e.bucketDegrees))
}

func keep(r domain.Report, mode Mode) bool {
	if mode == ModeQuietOnly {
		return r.Level <= domain.QuietMaxLevel
	}
	return true
}

func snap(v, precision float64) float64 {
	snapped := math.Round(v/precision) * precision
	// +0 folds IEEE negative zero into positive zero so -0.0001 and 0.0001
	// land in the same "0.0000" axis value.
	return snapped + 0
}

func formatAxis(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
