package records

import "time"

// CheckInRecord is one stored check-in row. EventID is nil for ad-hoc
// check-ins that are not tied to an event.
type CheckInRecord struct {
	ID         int64     `json:"id"`
	PersonID   int64     `json:"person_id"`
	PersonName string    `json:"person_name"`
	EventID    *int64    `json:"event_id,omitempty"`
	EventName  string    `json:"event_name,omitempty"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordInput carries the writable fields for one check-in row.
type RecordInput struct {
	PersonID   int64  `json:"person_id" validate:"required"`
	PersonName string `json:"person_name" validate:"required"`
	EventID    *int64 `json:"event_id"`
	Action     string `json:"action" validate:"required,oneof=check_in check_out"`
}

// DailyStat is one row of the rollup table the worker maintains.
type DailyStat struct {
	Day         time.Time `json:"day"`
	RecordCount int       `json:"record_count"`
	PeopleCount int       `json:"people_count"`
}
