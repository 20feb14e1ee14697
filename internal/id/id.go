// Package id provides unique identifier generation for jobs and runs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Generate creates a new unique identifier with the given prefix.
// Format: <prefix>-<timestamp>-<random>
// Example: run-1701432000-a1b2c3d4
//
// Identifiers are never reused: the random suffix makes collisions within
// the same second vanishingly unlikely, and the registry never recycles a
// deleted id.
func Generate(prefix string) string {
	timestamp := time.Now().Unix()
	random := make([]byte, 4)
	if _, err := rand.Read(random); err != nil {
		// Fallback to timestamp only if crypto/rand fails
		return fmt.Sprintf("%s-%d", prefix, timestamp)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, timestamp, hex.EncodeToString(random))
}
