// Package engine implements the BOM graph engines: cycle-safe structural
// mutation, multiplicative rollups, content-addressed snapshots and
// snapshot diffing.
//
// Every public operation returns a result envelope; failures are data,
// never panics or error returns across this boundary. The engines assume
// the single-writer model described in the store package: mutations must
// not interleave, read-only traversals may run concurrently with each
// other.
package engine

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/bomgraph/bomgraph/internal/canonical"
	"github.com/bomgraph/bomgraph/internal/clock"
	"github.com/bomgraph/bomgraph/internal/model"
	"github.com/bomgraph/bomgraph/internal/result"
	"github.com/bomgraph/bomgraph/internal/store"
)

// StructureEngine mutates and queries the parent/child parts graph.
// The acyclicity invariant is enforced here on every mutation; everything
// downstream (rollup termination, finite subgraphs) depends on it.
type StructureEngine struct {
	graph store.GraphStore
	clk   clock.Clock
	ids   IDSource
}

// NewStructureEngine builds a structure engine over a graph store.
func NewStructureEngine(graph store.GraphStore, clk clock.Clock, ids IDSource) *StructureEngine {
	return &StructureEngine{graph: graph, clk: clk, ids: ids}
}

// RelationshipInput carries the parameters of AddOrUpdateRelationship.
//
// RelID is optional; empty means a fresh id. LastUpdated is optional and
// normally left empty so the engine stamps the current time (CSV import
// passes through source timestamps). MergeAttributes controls updates of
// an existing relationship: true unions attributes with incoming values
// winning, false replaces the map wholesale.
type RelationshipInput struct {
	ParentPartNumber string
	ChildPartNumber  string
	Qty              float64
	RelID            string
	Attributes       map[string]any
	LastUpdated      string
	AllowDangling    bool
	MergeAttributes  bool
}

// AddOrUpdateRelationship validates and persists a directed, quantified
// edge. The write is atomic check-then-write: the hypothetical edge set
// (current set minus any prior record with this rel_id, plus the
// candidate) is checked for cycles before anything is stored, so a
// rejected mutation leaves the graph untouched.
//
// Endpoints absent from the catalog fail with a missing-reference error
// unless AllowDangling, in which case the write proceeds with a warning.
func (e *StructureEngine) AddOrUpdateRelationship(ctx context.Context, input RelationshipInput) (res result.Result) {
	defer result.Guard("add_or_update_relationship", &res)

	parent := strings.TrimSpace(input.ParentPartNumber)
	child := strings.TrimSpace(input.ChildPartNumber)

	if parent == "" {
		return result.FailErr(validationf("parent_part_number is required"))
	}
	if child == "" {
		return result.FailErr(validationf("child_part_number is required"))
	}
	if parent == child {
		return result.FailErr(validationf("parent_part_number and child_part_number cannot be equal"))
	}
	if math.IsNaN(input.Qty) || math.IsInf(input.Qty, 0) {
		return result.FailErr(validationf("qty must be numeric"))
	}
	if input.Qty <= 0 {
		return result.FailErr(validationf("qty must be > 0"))
	}

	relID := strings.TrimSpace(input.RelID)
	if relID == "" {
		relID = e.ids.RelID()
	}

	existing, exists, err := e.graph.GetRelationship(ctx, relID)
	if err != nil {
		return result.FailErr(err)
	}

	attributes := model.CopyAttributes(input.Attributes)
	if exists && input.MergeAttributes {
		attributes = model.MergeAttributes(existing.Attributes, input.Attributes)
	}

	lastUpdated := input.LastUpdated
	if lastUpdated == "" {
		lastUpdated = clock.ISO(e.clk.Now())
	}

	candidate := model.Relationship{
		RelID:            relID,
		ParentPartNumber: parent,
		ChildPartNumber:  child,
		Qty:              input.Qty,
		LastUpdated:      lastUpdated,
		Attributes:       attributes,
	}

	missing, err := e.missingEndpoints(ctx, parent, child)
	if err != nil {
		return result.FailErr(err)
	}

	var warnings []string
	if len(missing) > 0 {
		refErr := &MissingReferenceError{PartNumbers: missing}
		if !input.AllowDangling {
			return result.Fail(
				refErr.Error(),
				"Set allow_dangling=true to allow storing this relationship",
			)
		}
		warnings = append(warnings, refErr.Error())
	}

	hypothetical, err := e.hypotheticalEdgeSet(ctx, candidate)
	if err != nil {
		return result.FailErr(err)
	}
	if cycle := detectCycle(hypothetical); cycle != nil {
		return result.FailErr(&CycleError{Path: cycle})
	}

	if err := e.graph.UpsertRelationship(ctx, candidate); err != nil {
		return result.FailErr(err)
	}

	return result.Ok(map[string]any{
		"relationship": candidate.Record(),
		"created":      !exists,
	}, warnings...)
}

// DeleteRelationship removes an edge. Removal can never introduce a
// cycle, so no re-validation is needed.
func (e *StructureEngine) DeleteRelationship(ctx context.Context, relID string) (res result.Result) {
	defer result.Guard("delete_relationship", &res)

	relID = strings.TrimSpace(relID)
	if relID == "" {
		return result.FailErr(validationf("rel_id is required"))
	}

	deleted, err := e.graph.DeleteRelationship(ctx, relID)
	if err != nil {
		return result.FailErr(err)
	}
	if !deleted {
		return result.FailErr(&NotFoundError{Kind: "Relationship", ID: relID})
	}
	return result.Ok(map[string]any{"deleted": true, "rel_id": relID})
}

// GetChildren lists the edges under a parent, ordered by (parent, child,
// qty, rel_id), resolving each child part. An unresolved child is a
// non-fatal warning; its entry carries a nil part record.
func (e *StructureEngine) GetChildren(ctx context.Context, parentPartNumber string) (res result.Result) {
	defer result.Guard("get_children", &res)

	parent := strings.TrimSpace(parentPartNumber)
	if parent == "" {
		return result.FailErr(validationf("parent_part_number is required"))
	}

	rels, err := e.graph.FindChildren(ctx, parent)
	if err != nil {
		return result.FailErr(err)
	}

	var warnings []string
	children := make([]map[string]any, 0, len(rels))
	for _, rel := range rels {
		entry := map[string]any{
			"relationship": rel.Record(),
			"child_part":   nil,
		}
		part, ok, err := e.graph.GetPart(ctx, rel.ChildPartNumber)
		if err != nil {
			return result.FailErr(err)
		}
		if ok {
			entry["child_part"] = part.Record()
		} else {
			warnings = append(warnings,
				"Child part '"+rel.ChildPartNumber+"' does not exist in part catalog")
		}
		children = append(children, entry)
	}

	return result.Ok(map[string]any{
		"parent_part_number": parent,
		"children":           children,
	}, warnings...)
}

// GetParents lists the edges above a child, ordered by (parent, child,
// qty, rel_id), resolving each parent part.
func (e *StructureEngine) GetParents(ctx context.Context, childPartNumber string) (res result.Result) {
	defer result.Guard("get_parents", &res)

	child := strings.TrimSpace(childPartNumber)
	if child == "" {
		return result.FailErr(validationf("child_part_number is required"))
	}

	rels, err := e.graph.FindParents(ctx, child)
	if err != nil {
		return result.FailErr(err)
	}

	var warnings []string
	parents := make([]map[string]any, 0, len(rels))
	for _, rel := range rels {
		entry := map[string]any{
			"relationship": rel.Record(),
			"parent_part":  nil,
		}
		part, ok, err := e.graph.GetPart(ctx, rel.ParentPartNumber)
		if err != nil {
			return result.FailErr(err)
		}
		if ok {
			entry["parent_part"] = part.Record()
		} else {
			warnings = append(warnings,
				"Parent part '"+rel.ParentPartNumber+"' does not exist in part catalog")
		}
		parents = append(parents, entry)
	}

	return result.Ok(map[string]any{
		"child_part_number": child,
		"parents":           parents,
	}, warnings...)
}

// GetSubgraph returns the full induced edge set reachable from a root by
// following child edges: every reachable relationship id appears exactly
// once even under re-convergent paths, every reachable part number
// appears exactly once. Parts missing from the catalog are omitted from
// the part list (with a warning) but their relationships remain listed.
func (e *StructureEngine) GetSubgraph(ctx context.Context, rootPartNumber string) (res result.Result) {
	defer result.Guard("get_subgraph", &res)

	root := strings.TrimSpace(rootPartNumber)
	if root == "" {
		return result.FailErr(validationf("root_part_number is required"))
	}

	sub, err := e.subgraph(ctx, root)
	if err != nil {
		return result.FailErr(err)
	}

	parts := make([]map[string]any, 0, len(sub.parts))
	for _, part := range sub.parts {
		parts = append(parts, part.Record())
	}
	rels := make([]map[string]any, 0, len(sub.relationships))
	for _, rel := range sub.relationships {
		rels = append(rels, rel.Record())
	}

	return result.Ok(map[string]any{
		"root_part_number": root,
		"parts":            parts,
		"relationships":    rels,
	}, sub.warnings...)
}

// subgraphResult is the typed form of a subgraph traversal, shared with
// the snapshot engine.
type subgraphResult struct {
	nodes         []string // every reachable part number, sorted
	parts         []model.Part
	relationships []model.Relationship
	warnings      []string
}

// subgraph runs the breadth-first traversal behind GetSubgraph. Each part
// number is expanded at most once and each relationship id is included at
// most once, so convergent paths cannot duplicate output or loop.
func (e *StructureEngine) subgraph(ctx context.Context, root string) (*subgraphResult, error) {
	visitedNodes := make(map[string]struct{})
	visitedRels := make(map[string]struct{})
	queue := []string{root}

	var rels []model.Relationship
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, seen := visitedNodes[current]; seen {
			continue
		}
		visitedNodes[current] = struct{}{}

		children, err := e.graph.FindChildren(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, rel := range children {
			if _, seen := visitedRels[rel.RelID]; seen {
				continue
			}
			visitedRels[rel.RelID] = struct{}{}
			rels = append(rels, rel)
			queue = append(queue, rel.ChildPartNumber)
		}
	}

	nodes := make([]string, 0, len(visitedNodes))
	for node := range visitedNodes {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var warnings []string
	var parts []model.Part
	var missing []string
	for _, node := range nodes {
		part, ok, err := e.graph.GetPart(ctx, node)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, node)
			continue
		}
		parts = append(parts, part)
	}
	if len(missing) > 0 {
		warnings = append(warnings, "Missing parts in catalog: "+strings.Join(missing, ", "))
	}

	sort.Slice(rels, func(i, j int) bool {
		return canonical.RelationshipSortKey(rels[i]) < canonical.RelationshipSortKey(rels[j])
	})

	return &subgraphResult{
		nodes:         nodes,
		parts:         parts,
		relationships: rels,
		warnings:      warnings,
	}, nil
}

// missingEndpoints returns the sorted, deduplicated endpoints absent from
// the catalog.
func (e *StructureEngine) missingEndpoints(ctx context.Context, parent, child string) ([]string, error) {
	var missing []string
	for _, partNumber := range []string{parent, child} {
		ok, err := e.graph.PartExists(ctx, partNumber)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, partNumber)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// hypotheticalEdgeSet is the current relationship set with any prior
// record sharing the candidate's rel_id replaced by the candidate.
func (e *StructureEngine) hypotheticalEdgeSet(ctx context.Context, candidate model.Relationship) ([]model.Relationship, error) {
	current, err := e.graph.ListRelationships(ctx)
	if err != nil {
		return nil, err
	}
	edges := make([]model.Relationship, 0, len(current)+1)
	for _, rel := range current {
		if rel.RelID == candidate.RelID {
			continue
		}
		edges = append(edges, rel)
	}
	return append(edges, candidate), nil
}
