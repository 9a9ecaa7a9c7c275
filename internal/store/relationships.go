package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bomgraph/bomgraph/internal/model"
)

const relationshipColumns = `rel_id, parent_part_number, child_part_number, qty, last_updated, attributes`

// ListRelationships returns every edge ordered by the deterministic key
// (parent, child, canonical qty, rel_id). Ordering happens in Go because
// the qty component of the key is canonical decimal text, not REAL order.
func (s *Store) ListRelationships(ctx context.Context) ([]model.Relationship, error) {
	return s.queryRelationships(ctx,
		`SELECT `+relationshipColumns+` FROM relationships`)
}

// GetRelationship fetches one edge by id. The second return reports presence.
func (s *Store) GetRelationship(ctx context.Context, relID string) (model.Relationship, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE rel_id = ?`, relID)

	rel, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Relationship{}, false, nil
	}
	if err != nil {
		return model.Relationship{}, false, fmt.Errorf("get relationship %q: %w", relID, err)
	}
	return rel, true, nil
}

// UpsertRelationship inserts or replaces an edge record.
func (s *Store) UpsertRelationship(ctx context.Context, rel model.Relationship) error {
	attrs, err := marshalAttributes(rel.Attributes)
	if err != nil {
		return fmt.Errorf("upsert relationship %q: %w", rel.RelID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationships
		(rel_id, parent_part_number, child_part_number, qty, last_updated, attributes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(rel_id) DO UPDATE SET
			parent_part_number = excluded.parent_part_number,
			child_part_number = excluded.child_part_number,
			qty = excluded.qty,
			last_updated = excluded.last_updated,
			attributes = excluded.attributes
	`, rel.RelID, rel.ParentPartNumber, rel.ChildPartNumber, rel.Qty, rel.LastUpdated, attrs)
	if err != nil {
		return fmt.Errorf("upsert relationship %q: %w", rel.RelID, err)
	}
	return nil
}

// DeleteRelationship removes an edge and reports whether a row was deleted.
func (s *Store) DeleteRelationship(ctx context.Context, relID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM relationships WHERE rel_id = ?`, relID)
	if err != nil {
		return false, fmt.Errorf("delete relationship %q: %w", relID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete relationship %q: %w", relID, err)
	}
	return n > 0, nil
}

// FindChildren returns the ordered edges whose parent is the given part.
func (s *Store) FindChildren(ctx context.Context, parentPartNumber string) ([]model.Relationship, error) {
	return s.queryRelationships(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE parent_part_number = ?`,
		parentPartNumber)
}

// FindParents returns the ordered edges whose child is the given part.
func (s *Store) FindParents(ctx context.Context, childPartNumber string) ([]model.Relationship, error) {
	return s.queryRelationships(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE child_part_number = ?`,
		childPartNumber)
}

// CountPartReferences counts edges naming the part as either endpoint.
func (s *Store) CountPartReferences(ctx context.Context, partNumber string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM relationships
		WHERE parent_part_number = ? OR child_part_number = ?
	`, partNumber, partNumber).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count part references %q: %w", partNumber, err)
	}
	return count, nil
}

func (s *Store) queryRelationships(ctx context.Context, query string, args ...any) ([]model.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var rels []model.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("query relationships: %w", err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	sortRelationships(rels)
	return rels, nil
}

func scanRelationship(row rowScanner) (model.Relationship, error) {
	var rel model.Relationship
	var attrs string
	err := row.Scan(&rel.RelID, &rel.ParentPartNumber, &rel.ChildPartNumber,
		&rel.Qty, &rel.LastUpdated, &attrs)
	if err != nil {
		return model.Relationship{}, err
	}
	decoded, err := unmarshalAttributes(attrs)
	if err != nil {
		return model.Relationship{}, err
	}
	rel.Attributes = decoded
	return rel, nil
}
