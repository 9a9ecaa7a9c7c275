package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bomgraph/bomgraph/internal/model"
)

// ListParts returns every catalog part ordered by part number.
func (s *Store) ListParts(ctx context.Context) ([]model.Part, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT part_number, name, last_updated, attributes
		FROM parts
		ORDER BY part_number
	`)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	var parts []model.Part
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("list parts: %w", err)
		}
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	return parts, nil
}

// GetPart fetches one part by number. The second return reports presence.
func (s *Store) GetPart(ctx context.Context, partNumber string) (model.Part, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT part_number, name, last_updated, attributes
		FROM parts
		WHERE part_number = ?
	`, partNumber)

	part, err := scanPart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Part{}, false, nil
	}
	if err != nil {
		return model.Part{}, false, fmt.Errorf("get part %q: %w", partNumber, err)
	}
	return part, true, nil
}

// PartExists reports whether a part number is present in the catalog.
func (s *Store) PartExists(ctx context.Context, partNumber string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM parts WHERE part_number = ?`, partNumber).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("part exists %q: %w", partNumber, err)
	}
	return true, nil
}

// UpsertPart inserts or replaces a part record.
func (s *Store) UpsertPart(ctx context.Context, part model.Part) error {
	attrs, err := marshalAttributes(part.Attributes)
	if err != nil {
		return fmt.Errorf("upsert part %q: %w", part.PartNumber, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parts (part_number, name, last_updated, attributes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(part_number) DO UPDATE SET
			name = excluded.name,
			last_updated = excluded.last_updated,
			attributes = excluded.attributes
	`, part.PartNumber, part.Name, part.LastUpdated, attrs)
	if err != nil {
		return fmt.Errorf("upsert part %q: %w", part.PartNumber, err)
	}
	return nil
}

// DeletePart removes a part and reports whether a row was deleted.
func (s *Store) DeletePart(ctx context.Context, partNumber string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM parts WHERE part_number = ?`, partNumber)
	if err != nil {
		return false, fmt.Errorf("delete part %q: %w", partNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete part %q: %w", partNumber, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row rowScanner) (model.Part, error) {
	var part model.Part
	var attrs string
	if err := row.Scan(&part.PartNumber, &part.Name, &part.LastUpdated, &attrs); err != nil {
		return model.Part{}, err
	}
	decoded, err := unmarshalAttributes(attrs)
	if err != nil {
		return model.Part{}, err
	}
	part.Attributes = decoded
	return part, nil
}
