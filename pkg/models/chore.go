package models

import "time"

// Chore is a task that earns its Value for the assigned child once completed.
type Chore struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Value         float64    `json:"value"`
	AssignedTo    string     `json:"assigned_to,omitempty"`
	Completed     bool       `json:"completed"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
