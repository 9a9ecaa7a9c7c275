package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bomgraph/bomgraph/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bomgraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bomgraph.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertPart(context.Background(), model.Part{
		PartNumber:  "A",
		Name:        "Assembly",
		LastUpdated: "2026-01-02T03:04:05Z",
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	part, ok, err := reopened.GetPart(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Assembly", part.Name)
	assert.Equal(t, "2026-01-02T03:04:05Z", part.LastUpdated)
}

func TestStore_PartRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPart(ctx, model.Part{
		PartNumber:  "B",
		Name:        "Bolt",
		LastUpdated: "2026-01-02T03:04:05Z",
		Attributes: map[string]any{
			"cost":   5,
			"weight": 0.25,
			"finish": "zinc",
			"metric": true,
			"tags":   []any{"m3", "m4"},
		},
	}))

	part, ok, err := s.GetPart(ctx, "B")
	require.NoError(t, err)
	require.True(t, ok)

	// Numbers come back as json.Number; the literal spelling survives.
	assert.Equal(t, map[string]any{
		"cost":   json.Number("5"),
		"weight": json.Number("0.25"),
		"finish": "zinc",
		"metric": true,
		"tags":   []any{"m3", "m4"},
	}, part.Attributes)
}

func TestStore_PartMissingAndNilAttributes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetPart(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := s.PartExists(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.UpsertPart(ctx, model.Part{PartNumber: "A", Name: "Bare"}))
	part, ok, err := s.GetPart(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{}, part.Attributes)
}

func TestStore_PartUpsertReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPart(ctx, model.Part{
		PartNumber: "A", Name: "First",
		Attributes: map[string]any{"rev": "1"},
	}))
	require.NoError(t, s.UpsertPart(ctx, model.Part{
		PartNumber: "A", Name: "Second",
		Attributes: map[string]any{"grade": "b"},
	}))

	part, ok, err := s.GetPart(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Second", part.Name)
	assert.Equal(t, map[string]any{"grade": "b"}, part.Attributes)
}

func TestStore_DeletePart(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPart(ctx, model.Part{PartNumber: "A", Name: "Assembly"}))

	deleted, err := s.DeletePart(ctx, "A")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeletePart(ctx, "A")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_ListPartsOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, pn := range []string{"C", "A", "B"} {
		require.NoError(t, s.UpsertPart(ctx, model.Part{PartNumber: pn, Name: pn}))
	}

	parts, err := s.ListParts(ctx)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "A", parts[0].PartNumber)
	assert.Equal(t, "B", parts[1].PartNumber)
	assert.Equal(t, "C", parts[2].PartNumber)
}

func TestStore_RelationshipRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRelationship(ctx, model.Relationship{
		RelID:            "rel_1",
		ParentPartNumber: "A",
		ChildPartNumber:  "B",
		Qty:              2.5,
		LastUpdated:      "2026-01-02T03:04:05Z",
		Attributes:       map[string]any{"refdes": "R1"},
	}))

	rel, ok, err := s.GetRelationship(ctx, "rel_1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", rel.ParentPartNumber)
	assert.Equal(t, "B", rel.ChildPartNumber)
	assert.Equal(t, 2.5, rel.Qty)
	assert.Equal(t, map[string]any{"refdes": "R1"}, rel.Attributes)

	deleted, err := s.DeleteRelationship(ctx, "rel_1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = s.GetRelationship(ctx, "rel_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_FindChildrenAndParents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, rel := range []model.Relationship{
		{RelID: "r1", ParentPartNumber: "A", ChildPartNumber: "C", Qty: 1},
		{RelID: "r2", ParentPartNumber: "A", ChildPartNumber: "B", Qty: 2},
		{RelID: "r3", ParentPartNumber: "X", ChildPartNumber: "B", Qty: 1},
	} {
		require.NoError(t, s.UpsertRelationship(ctx, rel))
	}

	children, err := s.FindChildren(ctx, "A")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "B", children[0].ChildPartNumber)
	assert.Equal(t, "C", children[1].ChildPartNumber)

	parents, err := s.FindParents(ctx, "B")
	require.NoError(t, err)
	require.Len(t, parents, 2)
	assert.Equal(t, "A", parents[0].ParentPartNumber)
	assert.Equal(t, "X", parents[1].ParentPartNumber)
}

func TestStore_CountPartReferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, rel := range []model.Relationship{
		{RelID: "r1", ParentPartNumber: "A", ChildPartNumber: "B", Qty: 1},
		{RelID: "r2", ParentPartNumber: "B", ChildPartNumber: "C", Qty: 1},
		{RelID: "r3", ParentPartNumber: "X", ChildPartNumber: "Y", Qty: 1},
	} {
		require.NoError(t, s.UpsertRelationship(ctx, rel))
	}

	count, err := s.CountPartReferences(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.CountPartReferences(ctx, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_ListRelationships_CanonicalOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Same endpoints with qty 10 and 2: the qty key is canonical decimal
	// text, so "10" sorts before "2".
	for _, rel := range []model.Relationship{
		{RelID: "r_small", ParentPartNumber: "A", ChildPartNumber: "B", Qty: 2},
		{RelID: "r_large", ParentPartNumber: "A", ChildPartNumber: "B", Qty: 10},
		{RelID: "r_other", ParentPartNumber: "A", ChildPartNumber: "A2", Qty: 1},
	} {
		require.NoError(t, s.UpsertRelationship(ctx, rel))
	}

	rels, err := s.ListRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 3)
	assert.Equal(t, "r_other", rels[0].RelID)
	assert.Equal(t, "r_large", rels[1].RelID)
	assert.Equal(t, "r_small", rels[2].RelID)
}

func TestStore_Snapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snapA := model.Snapshot{
		SnapshotID:     "snap_20260101_000000_aaaaaaaa",
		RootPartNumber: "A",
		CreatedAt:      "2026-01-01T00:00:00Z",
		Signature:      "sig_a",
		Label:          "baseline",
		Parts: []model.Part{{
			PartNumber: "A", Name: "Assembly",
			Attributes: map[string]any{"rev": "1"},
		}},
		Relationships: []model.Relationship{{
			RelID: "r1", ParentPartNumber: "A", ChildPartNumber: "B", Qty: 4,
		}},
	}
	snapX := model.Snapshot{
		SnapshotID:     "snap_20260102_000000_bbbbbbbb",
		RootPartNumber: "X",
		CreatedAt:      "2026-01-02T00:00:00Z",
		Signature:      "sig_x",
	}

	require.NoError(t, s.SaveSnapshot(ctx, snapA))
	require.NoError(t, s.SaveSnapshot(ctx, snapX))

	err := s.SaveSnapshot(ctx, snapA)
	assert.ErrorIs(t, err, ErrSnapshotExists)

	fetched, ok, err := s.GetSnapshot(ctx, snapA.SnapshotID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "baseline", fetched.Label)
	require.Len(t, fetched.Parts, 1)
	assert.Equal(t, map[string]any{"rev": "1"}, fetched.Parts[0].Attributes)
	require.Len(t, fetched.Relationships, 1)
	assert.Equal(t, 4.0, fetched.Relationships[0].Qty)

	_, ok, err = s.GetSnapshot(ctx, "snap_nope")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.ListSnapshots(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, snapA.SnapshotID, all[0].SnapshotID)

	filtered, err := s.ListSnapshots(ctx, "X")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, snapX.SnapshotID, filtered[0].SnapshotID)
}
