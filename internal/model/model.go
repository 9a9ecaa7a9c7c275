// Package model defines the records the BOM engines operate on.
//
// Parts and relationships are owned by the catalog; the structure, rollup
// and snapshot engines treat them as read-only input. Snapshots hold value
// copies so later graph mutation never reaches a persisted snapshot.
package model

// Part is a catalog entry identified by its part number.
//
// Attributes is an open string-keyed map of JSON-like values (scalars,
// lists, nested maps). Numeric attribute values may arrive as int64,
// float64 or json.Number depending on the store that produced them; the
// canonical package normalizes that representation noise away.
type Part struct {
	PartNumber  string         `json:"part_number"`
	Name        string         `json:"name"`
	LastUpdated string         `json:"last_updated"`
	Attributes  map[string]any `json:"attributes"`
}

// Relationship is a directed, quantified edge from a parent part to a
// child part. Both endpoints are weak references by part number and may
// dangle (name a part absent from the catalog).
//
// Invariants, enforced by the structure engine on every mutation:
//   - parent != child
//   - qty is finite and > 0
//   - the full relationship set stays acyclic
type Relationship struct {
	RelID            string         `json:"rel_id"`
	ParentPartNumber string         `json:"parent_part_number"`
	ChildPartNumber  string         `json:"child_part_number"`
	Qty              float64        `json:"qty"`
	LastUpdated      string         `json:"last_updated"`
	Attributes       map[string]any `json:"attributes"`
}

// Snapshot is an immutable, content-hashed capture of a BOM subgraph.
// Parts and Relationships are value copies of the records reachable from
// the root at creation time, deduplicated by primary key.
type Snapshot struct {
	SnapshotID     string         `json:"snapshot_id"`
	RootPartNumber string         `json:"root_part_number"`
	CreatedAt      string         `json:"created_at"`
	Signature      string         `json:"signature"`
	Label          string         `json:"label,omitempty"`
	Parts          []Part         `json:"parts"`
	Relationships  []Relationship `json:"relationships"`
}

// CopyAttributes returns a shallow copy of an attribute map.
// A nil input yields an empty, non-nil map so callers can mutate freely.
func CopyAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// MergeAttributes unions base and incoming, with incoming winning on
// conflicts. Neither input is mutated.
func MergeAttributes(base, incoming map[string]any) map[string]any {
	out := CopyAttributes(base)
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// Clone returns a deep-enough copy of the part for snapshot freezing:
// the attribute map is copied, attribute values are shared (they are
// treated as immutable everywhere in this codebase).
func (p Part) Clone() Part {
	p.Attributes = CopyAttributes(p.Attributes)
	return p
}

// Clone returns a copy of the relationship with its own attribute map.
func (r Relationship) Clone() Relationship {
	r.Attributes = CopyAttributes(r.Attributes)
	return r
}
