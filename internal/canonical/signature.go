package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/bomgraph/bomgraph/internal/model"
)

// DomainSnapshot is the domain prefix hashed ahead of snapshot payloads.
// The version suffix leaves room for a future payload format migration
// without old and new signatures ever colliding.
const DomainSnapshot = "bomgraph/snapshot/v1"

// PartRecord returns the canonical record for a part: fixed primary
// fields plus a normalized attribute tree.
func PartRecord(part model.Part) (map[string]any, error) {
	attrs, err := Normalize(attributesOrEmpty(part.Attributes))
	if err != nil {
		return nil, fmt.Errorf("part %q attributes: %w", part.PartNumber, err)
	}
	return map[string]any{
		"part_number":  part.PartNumber,
		"name":         part.Name,
		"last_updated": part.LastUpdated,
		"attributes":   attrs,
	}, nil
}

// RelationshipRecord returns the canonical record for a relationship.
// Qty is rendered as canonical decimal text so spelling differences in the
// stored literal (2 vs 2.0) cannot split the signature equivalence class.
func RelationshipRecord(rel model.Relationship) (map[string]any, error) {
	attrs, err := Normalize(attributesOrEmpty(rel.Attributes))
	if err != nil {
		return nil, fmt.Errorf("relationship %q attributes: %w", rel.RelID, err)
	}
	qty, err := Normalize(rel.Qty)
	if err != nil {
		return nil, fmt.Errorf("relationship %q qty: %w", rel.RelID, err)
	}
	return map[string]any{
		"rel_id":             rel.RelID,
		"parent_part_number": rel.ParentPartNumber,
		"child_part_number":  rel.ChildPartNumber,
		"qty":                qty,
		"last_updated":       rel.LastUpdated,
		"attributes":         attrs,
	}, nil
}

// SnapshotPayload assembles the canonical payload a signature is computed
// over: the root part number, canonical part records sorted by part
// number, and canonical relationship records sorted by
// (parent, child, canonical qty, rel_id).
func SnapshotPayload(root string, parts []model.Part, rels []model.Relationship) (map[string]any, error) {
	sortedParts := append([]model.Part(nil), parts...)
	sort.Slice(sortedParts, func(i, j int) bool {
		return sortedParts[i].PartNumber < sortedParts[j].PartNumber
	})
	sortedRels := append([]model.Relationship(nil), rels...)
	sort.Slice(sortedRels, func(i, j int) bool {
		return RelationshipSortKey(sortedRels[i]) < RelationshipSortKey(sortedRels[j])
	})

	partRecords := make([]any, len(sortedParts))
	for i, part := range sortedParts {
		record, err := PartRecord(part)
		if err != nil {
			return nil, err
		}
		partRecords[i] = record
	}
	relRecords := make([]any, len(sortedRels))
	for i, rel := range sortedRels {
		record, err := RelationshipRecord(rel)
		if err != nil {
			return nil, err
		}
		relRecords[i] = record
	}

	return map[string]any{
		"root_part_number": root,
		"parts":            partRecords,
		"relationships":    relRecords,
	}, nil
}

// BuildSignature serializes the canonical snapshot payload and hashes it.
// The hex SHA-256 digest is the snapshot signature used for deduplication
// and equality testing.
func BuildSignature(root string, parts []model.Part, rels []model.Relationship) (string, error) {
	payload, err := SnapshotPayload(root, parts, rels)
	if err != nil {
		return "", err
	}
	encoded, err := Marshal(payload)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainSnapshot, encoded), nil
}

// RelationshipSortKey returns the deterministic ordering key shared by the
// structure engine, the store listings and the canonical payload.
func RelationshipSortKey(rel model.Relationship) string {
	return rel.ParentPartNumber + "\x00" + rel.ChildPartNumber + "\x00" + Number(rel.Qty) + "\x00" + rel.RelID
}

// hashWithDomain computes SHA256(domain || 0x00 || data). The null byte
// separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func attributesOrEmpty(attrs map[string]any) map[string]any {
	if attrs == nil {
		return map[string]any{}
	}
	return attrs
}
