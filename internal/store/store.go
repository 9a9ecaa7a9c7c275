// Package store provides the keyed storage the BOM engines consume: an
// ordered graph store for parts and relationships, and an append-only
// snapshot store.
//
// Two implementations share the same contracts: a SQLite-backed Store for
// durable single-writer use, and a map-backed Memory store for tests and
// ephemeral sessions. The engines depend only on the interfaces.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bomgraph/bomgraph/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// PartStore is the catalog side of the graph store. Listings are ordered
// by part number.
type PartStore interface {
	ListParts(ctx context.Context) ([]model.Part, error)
	GetPart(ctx context.Context, partNumber string) (model.Part, bool, error)
	PartExists(ctx context.Context, partNumber string) (bool, error)
	UpsertPart(ctx context.Context, part model.Part) error
	DeletePart(ctx context.Context, partNumber string) (bool, error)
}

// RelationshipStore is the edge side of the graph store. Listings are
// ordered by (parent, child, canonical qty, rel_id).
type RelationshipStore interface {
	ListRelationships(ctx context.Context) ([]model.Relationship, error)
	GetRelationship(ctx context.Context, relID string) (model.Relationship, bool, error)
	UpsertRelationship(ctx context.Context, rel model.Relationship) error
	DeleteRelationship(ctx context.Context, relID string) (bool, error)
	FindChildren(ctx context.Context, parentPartNumber string) ([]model.Relationship, error)
	FindParents(ctx context.Context, childPartNumber string) ([]model.Relationship, error)
	CountPartReferences(ctx context.Context, partNumber string) (int, error)
}

// GraphStore combines both sides of the parts graph.
type GraphStore interface {
	PartStore
	RelationshipStore
}

// SnapshotStore persists immutable snapshot records. Save fails if the
// snapshot id already exists; listings are ordered by (created_at,
// snapshot_id) and optionally filtered by root part number ("" = all).
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
	GetSnapshot(ctx context.Context, snapshotID string) (model.Snapshot, bool, error)
	ListSnapshots(ctx context.Context, rootPartNumber string) ([]model.Snapshot, error)
}

// Store is the SQLite-backed implementation of GraphStore and
// SnapshotStore. SQLite runs in WAL mode with a single connection; the
// engines layered above assume a single writer, so no further locking is
// done here.
type Store struct {
	db *sql.DB
}

var (
	_ GraphStore    = (*Store)(nil)
	_ SnapshotStore = (*Store)(nil)
)

// Open creates or opens a SQLite database at the given path, applying
// pragmas and the schema. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under the single-writer model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
