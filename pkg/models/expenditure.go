package models

import "time"

// Expenditure is a recorded purchase, optionally attributed to a child by name.
type Expenditure struct {
	ID          string    `json:"id"`
	ChildName   string    `json:"child_name,omitempty"`
	Amount      float64   `json:"amount"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
