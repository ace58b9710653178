package domain

// SubmitReportRequest is the submit_noise_data payload. Level and Coordinates
// are pointers so a missing or non-numeric field surfaces as nil / a decode
// error instead of a zero value that would pass validation.
type SubmitReportRequest struct {
	Level       *float64     `json:"level" validate:"required"`
	Coordinates *Coordinates `json:"coordinates" validate:"required"`
}

// SubmitReviewRequest is the submit_review payload. The wire field for the
// client-side clock is "timestamp", kept for protocol compatibility.
type SubmitReviewRequest struct {
	ReportID  string   `json:"reportId" validate:"required"`
	Text      string   `json:"text"`
	Tags      []string `json:"tags"`
	Timestamp int64    `json:"timestamp"`
}

// HasContent reports whether the review carries text or at least one tag.
// Checked on both sides: the client before submission, the server on
// receipt.
func (r SubmitReviewRequest) HasContent() bool {
	return r.Text != "" || len(r.Tags) > 0
}

type SeedRequest struct {
	Lat   *float64 `json:"lat" validate:"omitempty,lat"`
	Lng   *float64 `json:"lng" validate:"omitempty,lng"`
	Level *float64 `json:"level"`
}
