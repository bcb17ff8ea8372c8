package personnel

import "time"

// Person is one attendance subject in the registry. Code and card number
// are the natural keys bulk imports match against.
type Person struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	CardNumber string    `json:"card_number"`
	Name       string    `json:"name"`
	Building   string    `json:"building"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PersonInput carries the writable person fields.
type PersonInput struct {
	Code       string   `json:"code" validate:"required"`
	CardNumber string   `json:"card_number" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	Building   string   `json:"building"`
	Tags       []string `json:"tags"`
}

// KeyRef is the minimal projection used to match import rows against
// existing people.
type KeyRef struct {
	ID         int64
	Code       string
	CardNumber string
}

// ImportResult summarizes one bulk import run.
type ImportResult struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Errors   []string `json:"errors"`
}
