package models

import (
	"time"
)

// Profile is a stored candidate profile, the document side of the reverse
// search direction (vacancy as query, profiles as documents).
type Profile struct {
	ID        int64
	Content   string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}
