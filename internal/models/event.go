package models

import "time"

// Event represents a clan event (anniversary, gathering, memorial). Events
// live outside the family graph and carry no link invariants.
type Event struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	StartAt     time.Time `json:"start_at" db:"start_at"`
	Description string    `json:"description" db:"description"`
	Location    string    `json:"location" db:"location"`
	Type        string    `json:"type" db:"type"`
	CreatedByID string    `json:"created_by_id" db:"created_by_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsUpcoming returns true if the event has not started yet.
func (e *Event) IsUpcoming() bool {
	return time.Now().Before(e.StartAt)
}
