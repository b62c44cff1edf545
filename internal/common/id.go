package common

import (
	"github.com/google/uuid"
)

// NewRecordID generates a unique ID for a stored record.
func NewRecordID() string {
	return uuid.New().String()
}
