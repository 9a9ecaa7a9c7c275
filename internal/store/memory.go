package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bomgraph/bomgraph/internal/model"
)

// Memory is a map-backed implementation of GraphStore and SnapshotStore.
// Used by tests and ephemeral sessions. All reads return copies so callers
// can never mutate stored records in place.
type Memory struct {
	mu        sync.RWMutex
	parts     map[string]model.Part
	rels      map[string]model.Relationship
	snapshots map[string]model.Snapshot
}

var (
	_ GraphStore    = (*Memory)(nil)
	_ SnapshotStore = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		parts:     make(map[string]model.Part),
		rels:      make(map[string]model.Relationship),
		snapshots: make(map[string]model.Snapshot),
	}
}

// ListParts returns every part ordered by part number.
func (m *Memory) ListParts(ctx context.Context) ([]model.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	parts := make([]model.Part, 0, len(m.parts))
	for _, part := range m.parts {
		parts = append(parts, part.Clone())
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

// GetPart fetches one part by number.
func (m *Memory) GetPart(ctx context.Context, partNumber string) (model.Part, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	part, ok := m.parts[partNumber]
	if !ok {
		return model.Part{}, false, nil
	}
	return part.Clone(), true, nil
}

// PartExists reports whether a part number is present.
func (m *Memory) PartExists(ctx context.Context, partNumber string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.parts[partNumber]
	return ok, nil
}

// UpsertPart inserts or replaces a part record.
func (m *Memory) UpsertPart(ctx context.Context, part model.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[part.PartNumber] = part.Clone()
	return nil
}

// DeletePart removes a part and reports whether it was present.
func (m *Memory) DeletePart(ctx context.Context, partNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.parts[partNumber]
	delete(m.parts, partNumber)
	return ok, nil
}

// ListRelationships returns every edge in deterministic order.
func (m *Memory) ListRelationships(ctx context.Context) ([]model.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rels := make([]model.Relationship, 0, len(m.rels))
	for _, rel := range m.rels {
		rels = append(rels, rel.Clone())
	}
	sortRelationships(rels)
	return rels, nil
}

// GetRelationship fetches one edge by id.
func (m *Memory) GetRelationship(ctx context.Context, relID string) (model.Relationship, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rel, ok := m.rels[relID]
	if !ok {
		return model.Relationship{}, false, nil
	}
	return rel.Clone(), true, nil
}

// UpsertRelationship inserts or replaces an edge record.
func (m *Memory) UpsertRelationship(ctx context.Context, rel model.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rels[rel.RelID] = rel.Clone()
	return nil
}

// DeleteRelationship removes an edge and reports whether it was present.
func (m *Memory) DeleteRelationship(ctx context.Context, relID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rels[relID]
	delete(m.rels, relID)
	return ok, nil
}

// FindChildren returns the ordered edges whose parent is the given part.
func (m *Memory) FindChildren(ctx context.Context, parentPartNumber string) ([]model.Relationship, error) {
	return m.filterRelationships(func(rel model.Relationship) bool {
		return rel.ParentPartNumber == parentPartNumber
	})
}

// FindParents returns the ordered edges whose child is the given part.
func (m *Memory) FindParents(ctx context.Context, childPartNumber string) ([]model.Relationship, error) {
	return m.filterRelationships(func(rel model.Relationship) bool {
		return rel.ChildPartNumber == childPartNumber
	})
}

// CountPartReferences counts edges naming the part as either endpoint.
func (m *Memory) CountPartReferences(ctx context.Context, partNumber string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, rel := range m.rels {
		if rel.ParentPartNumber == partNumber || rel.ChildPartNumber == partNumber {
			count++
		}
	}
	return count, nil
}

// SaveSnapshot persists a snapshot; fails with ErrSnapshotExists on a
// duplicate id.
func (m *Memory) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[snap.SnapshotID]; ok {
		return fmt.Errorf("save snapshot %q: %w", snap.SnapshotID, ErrSnapshotExists)
	}
	m.snapshots[snap.SnapshotID] = cloneSnapshot(snap)
	return nil
}

// GetSnapshot fetches one snapshot by id.
func (m *Memory) GetSnapshot(ctx context.Context, snapshotID string) (model.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[snapshotID]
	if !ok {
		return model.Snapshot{}, false, nil
	}
	return cloneSnapshot(snap), true, nil
}

// ListSnapshots returns snapshots ordered by (created_at, snapshot_id),
// optionally filtered by root.
func (m *Memory) ListSnapshots(ctx context.Context, rootPartNumber string) ([]model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := make([]model.Snapshot, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		if rootPartNumber != "" && snap.RootPartNumber != rootPartNumber {
			continue
		}
		snaps = append(snaps, cloneSnapshot(snap))
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt != snaps[j].CreatedAt {
			return snaps[i].CreatedAt < snaps[j].CreatedAt
		}
		return snaps[i].SnapshotID < snaps[j].SnapshotID
	})
	return snaps, nil
}

func (m *Memory) filterRelationships(keep func(model.Relationship) bool) ([]model.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rels []model.Relationship
	for _, rel := range m.rels {
		if keep(rel) {
			rels = append(rels, rel.Clone())
		}
	}
	sortRelationships(rels)
	return rels, nil
}

func cloneSnapshot(snap model.Snapshot) model.Snapshot {
	parts := make([]model.Part, len(snap.Parts))
	for i, part := range snap.Parts {
		parts[i] = part.Clone()
	}
	rels := make([]model.Relationship, len(snap.Relationships))
	for i, rel := range snap.Relationships {
		rels[i] = rel.Clone()
	}
	snap.Parts = parts
	snap.Relationships = rels
	return snap
}
