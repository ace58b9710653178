// Package ws is the session-channel transport: named events multiplexed over
// one websocket per client, fanned out by a hub that owns the session
// registry.
package ws

import "encoding/json"

// Wire event names. One websocket per client carries all of them.
const (
	// server -> joining session only
	EventInitialData = "initial_data"
	// client -> server
	EventSubmitReport = "submit_noise_data"
	// server -> all sessions
	EventNewReport = "new_noise_report"
	// client -> server
	EventDeleteMarker = "delete_marker"
	// server -> all sessions; consumers match by id or legacy timestamp
	EventMarkerDeleted = "marker_deleted"
	// client -> server
	EventSubmitReview = "submit_review"
	// server -> all sessions, payload echoed verbatim
	EventNewReview = "new_review"
	// client -> server
	EventGetReviews = "get_reviews"
	// server -> requesting session only
	EventReviewsData = "reviews_data"
	// server -> submitting session only, on validation rejection
	EventSubmitRejected = "submit_rejected"
)

// Event is the envelope for every message in either direction.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(name string, payload any) (Event, error) {
	if payload == nil {
		return Event{Name: name}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Payload: b}, nil
}

// Rejection is the submit_rejected payload.
type Rejection struct {
	Event  string `json:"event"`
	Reason string `json:"reason"`
}
