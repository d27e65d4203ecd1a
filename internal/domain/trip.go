package domain

import "time"

// User is a registered bot user.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	RegisteredAt time.Time
}

// Trip is a planned journey owned by a user.
type Trip struct {
	ID          string
	UserID      int64
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Notes       string
}

// Task is a to-do item attached to a trip.
type Task struct {
	ID          string
	TripID      string
	Description string
	Completed   bool
}
