// Package store persists serialized function-graph documents in SQLite.
// The JSON projection of each function is stored as-is, so stored
// documents survive schema-compatible changes of the in-memory model.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldforge/fieldforge/graphio"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// ErrDocumentNotFound is returned when a document id is unknown.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentInfo is the listing row of one stored document.
type DocumentInfo struct {
	ID        uuid.UUID
	Name      string
	Entry     uint32
	CreatedAt time.Time
	UpdatedAt time.Time
	Functions int
}

// DocumentStore persists assemblies in their serialized form.
type DocumentStore struct {
	db *sql.DB
}

// Open opens (or creates) a document store at the given DSN. ":memory:"
// gives an ephemeral store for tests.
func Open(dsn string) (*DocumentStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// WAL mode allows concurrent readers while one writer works.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &DocumentStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// Save upserts a document and all its functions in one transaction.
func (s *DocumentStore) Save(ctx context.Context, id uuid.UUID, name string, doc graphio.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, entry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			entry = excluded.entry, updated_at = excluded.updated_at`,
		id.String(), name, doc.Entry, now, now)
	if err != nil {
		return fmt.Errorf("store: upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM functions WHERE document_id = ?`, id.String()); err != nil {
		return fmt.Errorf("store: clear functions: %w", err)
	}

	for _, graph := range doc.Models {
		payload, err := json.Marshal(graph)
		if err != nil {
			return fmt.Errorf("store: encode function %d: %w", graph.Model.ResourceID, err)
		}
		displayName := ""
		if graph.Model.DisplayName != nil {
			displayName = *graph.Model.DisplayName
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO functions (document_id, resource_id, display_name, graph_json)
			VALUES (?, ?, ?, ?)`,
			id.String(), graph.Model.ResourceID, displayName, string(payload))
		if err != nil {
			return fmt.Errorf("store: insert function %d: %w", graph.Model.ResourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Load reads a stored document back into its serialized form.
func (s *DocumentStore) Load(ctx context.Context, id uuid.UUID) (graphio.Document, error) {
	var doc graphio.Document

	row := s.db.QueryRowContext(ctx, `SELECT entry FROM documents WHERE id = ?`, id.String())
	if err := row.Scan(&doc.Entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doc, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		return doc, fmt.Errorf("store: load document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT graph_json FROM functions
		WHERE document_id = ? ORDER BY resource_id`, id.String())
	if err != nil {
		return doc, fmt.Errorf("store: load functions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return doc, fmt.Errorf("store: scan function: %w", err)
		}
		var graph graphio.Graph
		if err := json.Unmarshal([]byte(payload), &graph); err != nil {
			return doc, fmt.Errorf("store: decode function: %w", err)
		}
		doc.Models = append(doc.Models, graph)
	}
	return doc, rows.Err()
}

// List returns all stored documents, most recently updated first.
func (s *DocumentStore) List(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.entry, d.created_at, d.updated_at,
			(SELECT COUNT(*) FROM functions f WHERE f.document_id = d.id)
		FROM documents d ORDER BY d.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		var rawID, createdAt, updatedAt string
		if err := rows.Scan(&rawID, &info.Name, &info.Entry, &createdAt, &updatedAt, &info.Functions); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		if info.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("store: parse id %q: %w", rawID, err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("store: parse created_at: %w", err)
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("store: parse updated_at: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a document and its functions.
func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM functions WHERE document_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete functions: %w", err)
	}
	return nil
}
