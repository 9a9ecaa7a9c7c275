package engine

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// IDSource supplies the random components of generated identifiers.
// Injected so tests can produce stable relationship and snapshot ids.
type IDSource interface {
	// RelID returns a fresh relationship id.
	RelID() string
	// SnapshotSuffix returns the random suffix appended to the
	// time-derived portion of a snapshot id.
	SnapshotSuffix() string
}

// UUIDSource is the production IDSource, backed by random UUIDs.
type UUIDSource struct{}

// RelID returns an id of the form "rel_" + 12 hex chars.
func (UUIDSource) RelID() string { return "rel_" + uuidHex(12) }

// SnapshotSuffix returns 8 random hex chars.
func (UUIDSource) SnapshotSuffix() string { return uuidHex(8) }

func uuidHex(n int) string {
	id := uuid.New()
	return hex.EncodeToString(id[:])[:n]
}

// snapshotID builds a sortable snapshot id from a creation timestamp and
// a random suffix: "2026-08-23T14:03:07Z" + "1a2b3c4d" becomes
// "snap_20260823_140307_1a2b3c4d". Lexicographic order matches creation
// order at second resolution; the suffix breaks same-second ties.
func snapshotID(createdAt, suffix string) string {
	compact := strings.NewReplacer(":", "", "-", "", "Z", "", "T", "_").Replace(createdAt)
	return "snap_" + compact + "_" + suffix
}
