package engine

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/bomgraph/bomgraph/internal/canonical"
	"github.com/bomgraph/bomgraph/internal/clock"
	"github.com/bomgraph/bomgraph/internal/model"
	"github.com/bomgraph/bomgraph/internal/result"
	"github.com/bomgraph/bomgraph/internal/store"
)

// SnapshotEngine freezes subgraphs into immutable, content-addressed
// snapshots. Two snapshot requests over identical content produce one
// stored snapshot: dedup keys on (root, signature), never on wall time.
type SnapshotEngine struct {
	graph     store.GraphStore
	snapshots store.SnapshotStore
	structure *StructureEngine
	clk       clock.Clock
	ids       IDSource
}

// NewSnapshotEngine builds a snapshot engine sharing the structure
// engine's traversal. The graph store serves the post-traversal re-read
// of the records being frozen.
func NewSnapshotEngine(graph store.GraphStore, snapshots store.SnapshotStore, structure *StructureEngine, clk clock.Clock, ids IDSource) *SnapshotEngine {
	return &SnapshotEngine{graph: graph, snapshots: snapshots, structure: structure, clk: clk, ids: ids}
}

// CreateSnapshot freezes the subgraph under root. The frozen parts and
// relationships are copied into the snapshot record, so later graph
// mutations never touch stored snapshots. Relationship records are
// re-read from the store after the traversal completes, so the frozen
// content is the store's current record set, not listings collected
// mid-traversal.
//
// With deduplicateIfIdentical, a snapshot with the same root and the same
// content signature short-circuits: the earliest one is returned with
// deduplicated=true and nothing new is stored. Without it a new record is
// always written, identical content included.
func (e *SnapshotEngine) CreateSnapshot(ctx context.Context, rootPartNumber, label string, deduplicateIfIdentical bool) (res result.Result) {
	defer result.Guard("create_snapshot", &res)

	root := strings.TrimSpace(rootPartNumber)
	if root == "" {
		return result.FailErr(validationf("root_part_number is required"))
	}

	sub, err := e.structure.subgraph(ctx, root)
	if err != nil {
		return result.FailErr(err)
	}

	rels, err := e.refreshRelationships(ctx, sub.relationships)
	if err != nil {
		return result.FailErr(err)
	}

	warnings := append([]string(nil), sub.warnings...)
	partSet := make(map[string]struct{}, len(sub.parts))
	for _, part := range sub.parts {
		partSet[part.PartNumber] = struct{}{}
	}
	for _, node := range sub.nodes {
		if _, ok := partSet[node]; !ok {
			warnings = append(warnings,
				"Part '"+node+"' is referenced in BOM but missing from catalog")
		}
	}

	signature, err := canonical.BuildSignature(root, sub.parts, rels)
	if err != nil {
		return result.FailErr(err)
	}

	if deduplicateIfIdentical {
		// ListSnapshots orders by created_at then id, so the first
		// signature match is the earliest snapshot of this content.
		existing, err := e.snapshots.ListSnapshots(ctx, root)
		if err != nil {
			return result.FailErr(err)
		}
		for _, snap := range existing {
			if snap.Signature == signature {
				return result.Ok(map[string]any{
					"snapshot":     snap.Record(),
					"deduplicated": true,
				}, warnings...)
			}
		}
	}

	createdAt := clock.ISO(e.clk.Now())
	snapshot := model.Snapshot{
		SnapshotID:     snapshotID(createdAt, e.ids.SnapshotSuffix()),
		RootPartNumber: root,
		CreatedAt:      createdAt,
		Signature:      signature,
		Label:          strings.TrimSpace(label),
		Parts:          sub.parts,
		Relationships:  rels,
	}

	if err := e.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		if errors.Is(err, store.ErrSnapshotExists) {
			return result.FailErr(validationf("snapshot id collision for '%s'", snapshot.SnapshotID))
		}
		return result.FailErr(err)
	}

	return result.Ok(map[string]any{
		"snapshot":     snapshot.Record(),
		"deduplicated": false,
	}, warnings...)
}

// refreshRelationships re-reads the traversed relationships by id.
// Traversal listings are per-parent reads spread over the walk; the
// frozen records must be the store's records as of one point after the
// walk. Relationships deleted since their listing drop out.
func (e *SnapshotEngine) refreshRelationships(ctx context.Context, traversed []model.Relationship) ([]model.Relationship, error) {
	rels := make([]model.Relationship, 0, len(traversed))
	for _, listed := range traversed {
		rel, ok, err := e.graph.GetRelationship(ctx, listed.RelID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rels = append(rels, rel)
	}
	// Re-sort: qty is part of the ordering key and may have moved since
	// the listing.
	sort.Slice(rels, func(i, j int) bool {
		return canonical.RelationshipSortKey(rels[i]) < canonical.RelationshipSortKey(rels[j])
	})
	return rels, nil
}

// GetSnapshot returns a stored snapshot in full, frozen content included.
func (e *SnapshotEngine) GetSnapshot(ctx context.Context, snapshotID string) (res result.Result) {
	defer result.Guard("get_snapshot", &res)

	id := strings.TrimSpace(snapshotID)
	if id == "" {
		return result.FailErr(validationf("snapshot_id is required"))
	}

	snap, ok, err := e.snapshots.GetSnapshot(ctx, id)
	if err != nil {
		return result.FailErr(err)
	}
	if !ok {
		return result.FailErr(&NotFoundError{Kind: "Snapshot", ID: id})
	}
	return result.Ok(map[string]any{"snapshot": snap.Record()})
}

// ListSnapshots lists snapshot summaries (id, signature, creation time),
// oldest first, optionally filtered to one root. Frozen content stays out
// of listings.
func (e *SnapshotEngine) ListSnapshots(ctx context.Context, rootPartNumber string) (res result.Result) {
	defer result.Guard("list_snapshots", &res)

	root := strings.TrimSpace(rootPartNumber)
	snaps, err := e.snapshots.ListSnapshots(ctx, root)
	if err != nil {
		return result.FailErr(err)
	}

	summaries := make([]map[string]any, 0, len(snaps))
	for _, snap := range snaps {
		summaries = append(summaries, snap.SummaryRecord())
	}
	return result.Ok(map[string]any{"snapshots": summaries})
}
