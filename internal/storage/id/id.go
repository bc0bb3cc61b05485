// Package id provides unique names for recorded takes.
package id

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate creates a new unique take name.
// Format: take-<unix millis>-<random>
// Example: take-1701432000123-a1b2c3d4
func Generate() string {
	u := uuid.New()
	return fmt.Sprintf("take-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(u[:4]))
}
