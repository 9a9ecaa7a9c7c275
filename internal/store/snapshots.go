package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bomgraph/bomgraph/internal/model"
)

// ErrSnapshotExists is returned by SaveSnapshot when the snapshot id is
// already present. Snapshots are append-only and never overwritten.
var ErrSnapshotExists = errors.New("snapshot already exists")

// SaveSnapshot persists an immutable snapshot record. Fails with
// ErrSnapshotExists if the id is taken.
func (s *Store) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	parts, err := marshalParts(snap.Parts)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", snap.SnapshotID, err)
	}
	rels, err := marshalRelationships(snap.Relationships)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", snap.SnapshotID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots
		(snapshot_id, root_part_number, created_at, signature, label, parts, relationships)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id) DO NOTHING
	`, snap.SnapshotID, snap.RootPartNumber, snap.CreatedAt, snap.Signature,
		snap.Label, parts, rels)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", snap.SnapshotID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", snap.SnapshotID, err)
	}
	if n == 0 {
		return fmt.Errorf("save snapshot %q: %w", snap.SnapshotID, ErrSnapshotExists)
	}
	return nil
}

// GetSnapshot fetches one snapshot by id. The second return reports presence.
func (s *Store) GetSnapshot(ctx context.Context, snapshotID string) (model.Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, root_part_number, created_at, signature, label, parts, relationships
		FROM snapshots
		WHERE snapshot_id = ?
	`, snapshotID)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("get snapshot %q: %w", snapshotID, err)
	}
	return snap, true, nil
}

// ListSnapshots returns snapshots ordered by (created_at, snapshot_id),
// optionally filtered by root part number ("" = all roots).
func (s *Store) ListSnapshots(ctx context.Context, rootPartNumber string) ([]model.Snapshot, error) {
	query := `
		SELECT snapshot_id, root_part_number, created_at, signature, label, parts, relationships
		FROM snapshots`
	var args []any
	if rootPartNumber != "" {
		query += ` WHERE root_part_number = ?`
		args = append(args, rootPartNumber)
	}
	query += ` ORDER BY created_at, snapshot_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

func scanSnapshot(row rowScanner) (model.Snapshot, error) {
	var snap model.Snapshot
	var parts, rels string
	err := row.Scan(&snap.SnapshotID, &snap.RootPartNumber, &snap.CreatedAt,
		&snap.Signature, &snap.Label, &parts, &rels)
	if err != nil {
		return model.Snapshot{}, err
	}
	decodedParts, err := unmarshalParts(parts)
	if err != nil {
		return model.Snapshot{}, err
	}
	decodedRels, err := unmarshalRelationships(rels)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap.Parts = decodedParts
	snap.Relationships = decodedRels
	return snap, nil
}
