package models

import "time"

// TelemetryFrame is one parsed observation from the sensor board.
// Temperature and Battery are nil when the board reported them as N/A;
// Distance is always present (a frame without it is rejected upstream).
type TelemetryFrame struct {
	Distance    float64
	Temperature *float64
	Battery     *float64
	ObservedAt  time.Time
}

// SensorSnapshot is the published last-write-wins record consumed by the
// dashboard. Field names are the latest_sensor.json contract.
type SensorSnapshot struct {
	Temperature *float64  `json:"temperature"`
	Battery     *float64  `json:"battery"`
	Distance    *float64  `json:"distance"`
	LastUpdate  time.Time `json:"last_update"`
}

// Disposition is the terminal classification of one capture cycle.
type Disposition string

const (
	Authorized      Disposition = "AUTHORIZED"
	Unauthorized    Disposition = "UNAUTHORIZED"
	FlaggedNoText   Disposition = "FLAGGED_NO_TEXT"
	FlaggedNoRegion Disposition = "FLAGGED_NO_PLATE"
	CaptureFailed   Disposition = "CAPTURE_FAILED"
)

// CaptureAttempt accumulates the result of a single trigger-to-disposition
// cycle. It is never persisted; its terminal effect is a filing action plus
// at most one verification record.
type CaptureAttempt struct {
	Frame                 TelemetryFrame
	ImagePath             string
	Detected              bool
	Crop                  []byte
	DetectionConfidence   float64
	Text                  string
	RecognitionConfidence float64
	OverallConfidence     float64
}

// RosterEntry is one registered vehicle in the plate roster.
type RosterEntry struct {
	ID           int64     `json:"id"`
	HolderID     string    `json:"holder_id"`
	Name         string    `json:"name"`
	VehicleColor string    `json:"vehicle_color,omitempty"`
	Plate        string    `json:"plate"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VerificationEntry is one append-only ledger record for a completed
// recognition attempt.
type VerificationEntry struct {
	ID           int64     `json:"id"`
	ScannedPlate string    `json:"scanned_plate"`
	HolderID     *string   `json:"holder_id,omitempty"`
	MatchFound   bool      `json:"match_found"`
	Confidence   float64   `json:"confidence"`
	ScannedAt    time.Time `json:"scanned_at"`
}
