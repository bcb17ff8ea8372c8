package events

import "time"

// Event is one scheduled activity people check in to.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Participants holds the ids of the enrolled people.
	Participants []int64 `json:"participants"`
}

// EventInput carries the writable event fields. ID is zero for creates.
type EventInput struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name" validate:"required"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Participants []int64   `json:"participants"`
}
