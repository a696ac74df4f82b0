// Package idgen mints ULID-based identifiers for event log rows.
package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// NewEventID returns a new lexically-sortable, monotonic-within-process
// event identifier prefixed "evt_".
func NewEventID() string {
	return "evt_" + generate()
}

func generate() string {
	mu.Lock()
	defer mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}
