package models

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a unique ID with the given prefix
// Example: GenerateID("op") -> "op-uuid-here"
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

// InstanceRef formats the "org/name" reference used in messages and status rows.
func InstanceRef(org, name string) string {
	return org + "/" + name
}
