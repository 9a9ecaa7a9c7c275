package model

// Record forms are the map representation used inside result envelopes.
// Every engine returns records, never live model values, so callers can
// serialize the envelope without reaching back into the store.

// Record converts a part to its envelope representation.
func (p Part) Record() map[string]any {
	return map[string]any{
		"part_number":  p.PartNumber,
		"name":         p.Name,
		"last_updated": p.LastUpdated,
		"attributes":   CopyAttributes(p.Attributes),
	}
}

// Record converts a relationship to its envelope representation.
func (r Relationship) Record() map[string]any {
	return map[string]any{
		"rel_id":             r.RelID,
		"parent_part_number": r.ParentPartNumber,
		"child_part_number":  r.ChildPartNumber,
		"qty":                r.Qty,
		"last_updated":       r.LastUpdated,
		"attributes":         CopyAttributes(r.Attributes),
	}
}

// Record converts a snapshot to its envelope representation, including
// full part and relationship records.
func (s Snapshot) Record() map[string]any {
	parts := make([]map[string]any, len(s.Parts))
	for i, p := range s.Parts {
		parts[i] = p.Record()
	}
	rels := make([]map[string]any, len(s.Relationships))
	for i, r := range s.Relationships {
		rels[i] = r.Record()
	}
	rec := map[string]any{
		"snapshot_id":      s.SnapshotID,
		"root_part_number": s.RootPartNumber,
		"created_at":       s.CreatedAt,
		"signature":        s.Signature,
		"label":            s.Label,
		"parts":            parts,
		"relationships":    rels,
	}
	return rec
}

// SummaryRecord converts a snapshot to its identifying fields only,
// used where full part lists would bloat the envelope (diff headers).
func (s Snapshot) SummaryRecord() map[string]any {
	return map[string]any{
		"snapshot_id": s.SnapshotID,
		"signature":   s.Signature,
		"created_at":  s.CreatedAt,
	}
}
