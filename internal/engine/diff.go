package engine

import (
	"context"
	"reflect"
	"sort"
	"strings"

	"github.com/bomgraph/bomgraph/internal/model"
	"github.com/bomgraph/bomgraph/internal/result"
	"github.com/bomgraph/bomgraph/internal/store"
)

// DiffEngine compares stored snapshots field by field.
type DiffEngine struct {
	snapshots store.SnapshotStore
}

// NewDiffEngine builds a diff engine over a snapshot store.
func NewDiffEngine(snapshots store.SnapshotStore) *DiffEngine {
	return &DiffEngine{snapshots: snapshots}
}

// CompareSnapshots diffs snapshot A against snapshot B. Direction matters:
// added means present in B only, removed means present in A only.
//
// The result carries two equality verdicts. signature_equal compares the
// content signatures, so it also reflects a changed root. equal reports
// whether the structural diff is empty; signatures can differ while the
// per-entity diff is empty when only the root part number differs.
func (e *DiffEngine) CompareSnapshots(ctx context.Context, snapshotIDA, snapshotIDB string) (res result.Result) {
	defer result.Guard("compare_snapshots", &res)

	idA := strings.TrimSpace(snapshotIDA)
	idB := strings.TrimSpace(snapshotIDB)
	if idA == "" || idB == "" {
		return result.Fail("snapshot_id_a and snapshot_id_b are required")
	}

	snapA, okA, err := e.snapshots.GetSnapshot(ctx, idA)
	if err != nil {
		return result.FailErr(err)
	}
	snapB, okB, err := e.snapshots.GetSnapshot(ctx, idB)
	if err != nil {
		return result.FailErr(err)
	}

	var missing []string
	if !okA {
		missing = append(missing, (&NotFoundError{Kind: "Snapshot", ID: idA}).Error())
	}
	if !okB {
		missing = append(missing, (&NotFoundError{Kind: "Snapshot", ID: idB}).Error())
	}
	if len(missing) > 0 {
		return result.Fail(missing...)
	}

	signatureEqual := snapA.Signature == snapB.Signature

	partChanges := diffParts(snapA.Parts, snapB.Parts)
	relChanges := diffRelationships(snapA.Relationships, snapB.Relationships)

	equal := signatureEqual
	if !signatureEqual {
		equal = changesEmpty(partChanges) && changesEmpty(relChanges)
	}

	return result.Ok(map[string]any{
		"snapshot_a":           snapA.SummaryRecord(),
		"snapshot_b":           snapB.SummaryRecord(),
		"signature_equal":      signatureEqual,
		"equal":                equal,
		"part_changes":         partChanges,
		"relationship_changes": relChanges,
	})
}

func diffParts(before, after []model.Part) map[string]any {
	byNumberA := make(map[string]model.Part, len(before))
	for _, part := range before {
		byNumberA[part.PartNumber] = part
	}
	byNumberB := make(map[string]model.Part, len(after))
	for _, part := range after {
		byNumberB[part.PartNumber] = part
	}

	addedKeys, removedKeys, commonKeys := splitKeys(keysOfParts(byNumberA), keysOfParts(byNumberB))

	added := make([]map[string]any, 0, len(addedKeys))
	for _, key := range addedKeys {
		added = append(added, byNumberB[key].Record())
	}
	removed := make([]map[string]any, 0, len(removedKeys))
	for _, key := range removedKeys {
		removed = append(removed, byNumberA[key].Record())
	}

	modified := make([]map[string]any, 0)
	for _, key := range commonKeys {
		a, b := byNumberA[key], byNumberB[key]
		if a.Name == b.Name && a.LastUpdated == b.LastUpdated &&
			attributesEqual(a.Attributes, b.Attributes) {
			continue
		}
		modified = append(modified, map[string]any{
			"part_number": key,
			"changes": map[string]any{
				"name":         fieldChange(a.Name, b.Name),
				"last_updated": fieldChange(a.LastUpdated, b.LastUpdated),
				"attributes":   attributesDiff(a.Attributes, b.Attributes),
			},
		})
	}

	return map[string]any{"added": added, "removed": removed, "modified": modified}
}

func diffRelationships(before, after []model.Relationship) map[string]any {
	byIDA := make(map[string]model.Relationship, len(before))
	for _, rel := range before {
		byIDA[rel.RelID] = rel
	}
	byIDB := make(map[string]model.Relationship, len(after))
	for _, rel := range after {
		byIDB[rel.RelID] = rel
	}

	addedKeys, removedKeys, commonKeys := splitKeys(keysOfRels(byIDA), keysOfRels(byIDB))

	added := make([]map[string]any, 0, len(addedKeys))
	for _, key := range addedKeys {
		added = append(added, byIDB[key].Record())
	}
	removed := make([]map[string]any, 0, len(removedKeys))
	for _, key := range removedKeys {
		removed = append(removed, byIDA[key].Record())
	}

	modified := make([]map[string]any, 0)
	for _, key := range commonKeys {
		a, b := byIDA[key], byIDB[key]
		if a.ParentPartNumber == b.ParentPartNumber && a.ChildPartNumber == b.ChildPartNumber &&
			a.Qty == b.Qty && a.LastUpdated == b.LastUpdated &&
			attributesEqual(a.Attributes, b.Attributes) {
			continue
		}
		modified = append(modified, map[string]any{
			"rel_id": key,
			"changes": map[string]any{
				"parent_part_number": fieldChange(a.ParentPartNumber, b.ParentPartNumber),
				"child_part_number":  fieldChange(a.ChildPartNumber, b.ChildPartNumber),
				"qty":                fieldChange(a.Qty, b.Qty),
				"last_updated":       fieldChange(a.LastUpdated, b.LastUpdated),
				"attributes":         attributesDiff(a.Attributes, b.Attributes),
			},
		})
	}

	return map[string]any{"added": added, "removed": removed, "modified": modified}
}

// fieldChange returns nil for an unchanged field, else a before/after pair.
// Unchanged fields stay present (as nulls) so consumers see a fixed shape.
func fieldChange[T comparable](before, after T) map[string]any {
	if before == after {
		return nil
	}
	return map[string]any{"before": before, "after": after}
}

// attributesDiff decomposes two attribute maps into added, removed and
// modified keys. Values compare by deep equality; attribute values are
// arbitrary JSON trees.
func attributesDiff(before, after map[string]any) map[string]any {
	added := map[string]any{}
	removed := map[string]any{}
	modified := map[string]any{}

	for key, value := range after {
		if _, ok := before[key]; !ok {
			added[key] = value
		}
	}
	for key, value := range before {
		if _, ok := after[key]; !ok {
			removed[key] = value
		}
	}
	for key, beforeValue := range before {
		afterValue, ok := after[key]
		if !ok {
			continue
		}
		if !reflect.DeepEqual(beforeValue, afterValue) {
			modified[key] = map[string]any{"before": beforeValue, "after": afterValue}
		}
	}

	return map[string]any{"added": added, "removed": removed, "modified": modified}
}

func attributesEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for key, valueA := range a {
		valueB, ok := b[key]
		if !ok || !reflect.DeepEqual(valueA, valueB) {
			return false
		}
	}
	return true
}

// splitKeys partitions two sorted-key universes into added (B only),
// removed (A only) and common, each sorted.
func splitKeys(keysA, keysB []string) (added, removed, common []string) {
	setA := make(map[string]struct{}, len(keysA))
	for _, key := range keysA {
		setA[key] = struct{}{}
	}
	setB := make(map[string]struct{}, len(keysB))
	for _, key := range keysB {
		setB[key] = struct{}{}
	}
	for _, key := range keysB {
		if _, ok := setA[key]; !ok {
			added = append(added, key)
		}
	}
	for _, key := range keysA {
		if _, ok := setB[key]; !ok {
			removed = append(removed, key)
		} else {
			common = append(common, key)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(common)
	return added, removed, common
}

func keysOfParts(m map[string]model.Part) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func keysOfRels(m map[string]model.Relationship) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func changesEmpty(changes map[string]any) bool {
	for _, value := range changes {
		switch v := value.(type) {
		case []map[string]any:
			if len(v) > 0 {
				return false
			}
		}
	}
	return true
}
