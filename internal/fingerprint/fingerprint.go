// fingerprint.go — Stable error fingerprinting and per-session dedup.
//
// Fingerprint must be a pure function of (message, fileName, line,
// column): no timestamp, no random salt, so the same error class
// always hashes to the same value across runs. xxhash gives us a fast, stable, non-cryptographic
// hash — the same family DataDog's and Tempo's Go code reaches for when
// it needs a cheap content hash rather than a collision-resistant one.
package fingerprint

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Compute returns a short deterministic hash identifying the error
// class (message, fileName, line, column) belongs to.
func Compute(message, fileName string, line, column int) string {
	key := message + ":" + fileName + ":" + strconv.Itoa(line) + ":" + strconv.Itoa(column)
	sum := xxhash.Sum64String(key)
	return fmt.Sprintf("%016x", sum)
}

// Dedup tracks fingerprints already admitted within one session. The
// set is never garbage-collected for the life of the session: once
// seen, a fingerprint stays seen until the process ends.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedup builds an empty per-session dedup set.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Admit reports whether fp has not been seen before in this session,
// recording it as seen either way. A second error event with the same
// fingerprint is dropped.
func (d *Dedup) Admit(fp string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[fp]; ok {
		return false
	}
	d.seen[fp] = struct{}{}
	return true
}

// Count returns the number of distinct fingerprints admitted so far.
func (d *Dedup) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
