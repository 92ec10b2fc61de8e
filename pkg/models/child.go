package models

import "time"

// Child is a child whose allowance is tracked.
type Child struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Age             int       `json:"age"`
	WeeklyAllowance float64   `json:"weekly_allowance"`
	CurrentBalance  float64   `json:"current_balance"`
	CreatedAt       time.Time `json:"created_at"`
}
