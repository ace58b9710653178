package domain

const (
	// Decibel domain the system accepts; submissions are clamped, not rejected.
	MinLevel = 0
	MaxLevel = 80

	// QuietMaxLevel is the loudest level still considered "quiet" by the
	// quiet_only filter.
	QuietMaxLevel = 50
)

type Coordinates struct {
	Lat float64 `json:"lat" validate:"lat"`
	Lng float64 `json:"lng" validate:"lng"`
}

// Report is one noise measurement. Reports are never updated in place: a new
// measurement at the same spot is a new Report and the map layer decides which
// one stays visible.
type Report struct {
	ID           string       `json:"id"`
	Level        int          `json:"level"`
	Coordinates  *Coordinates `json:"coordinates"`
	LocationName *string      `json:"locationName,omitempty"`
	CreatedAt    int64        `json:"createdAt"` // ms since epoch
}

// Review is a comment/tag set attached to a Report. Tags keep submission
// order and may repeat. Reviews are only removed together with their parent.
type Review struct {
	ID        int64    `json:"id"`
	ReportID  string   `json:"reportId"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	CreatedAt int64    `json:"createdAt"`
}
