package util

import "github.com/google/uuid"

// NewID generates a unique identifier for local correlation (runner handles,
// ad-hoc thread metadata). Server-side objects keep their vendor-assigned ids.
func NewID() string { return uuid.NewString() }
