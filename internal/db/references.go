package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateReference is returned when a reference name is already
// recorded for its base.
var ErrDuplicateReference = errors.New("reference already recorded")

// Reference is one ingested document as recorded in the catalog.
type Reference struct {
	Base      string    `json:"base"`
	Name      string    `json:"name"`
	FileKind  string    `json:"file_kind"`
	Chunks    int       `json:"chunks"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertReference records a new reference.
func (d *DB) InsertReference(ctx context.Context, ref *Reference) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}
	_, err := d.ExecContext(ctx,
		`INSERT INTO base_references (base, name, file_kind, chunks, size_bytes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ref.Base, ref.Name, ref.FileKind, ref.Chunks, ref.SizeBytes, ref.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s/%s: %w", ref.Base, ref.Name, ErrDuplicateReference)
		}
		return fmt.Errorf("inserting reference: %w", err)
	}
	return nil
}

// GetReference returns the named reference, or nil when it is not recorded.
func (d *DB) GetReference(ctx context.Context, base, name string) (*Reference, error) {
	var ref Reference
	err := d.QueryRowContext(ctx,
		`SELECT base, name, file_kind, chunks, size_bytes, created_at FROM base_references WHERE base = ? AND name = ?`,
		base, name).Scan(&ref.Base, &ref.Name, &ref.FileKind, &ref.Chunks, &ref.SizeBytes, &ref.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting reference: %w", err)
	}
	return &ref, nil
}

// ListReferences returns the references of a base in ingestion order.
func (d *DB) ListReferences(ctx context.Context, base string) ([]Reference, error) {
	rows, err := d.QueryContext(ctx,
		`SELECT base, name, file_kind, chunks, size_bytes, created_at FROM base_references WHERE base = ? ORDER BY rowid`,
		base)
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var ref Reference
		if err := rows.Scan(&ref.Base, &ref.Name, &ref.FileKind, &ref.Chunks, &ref.SizeBytes, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// DeleteReference removes a reference and reports whether it existed.
func (d *DB) DeleteReference(ctx context.Context, base, name string) (bool, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM base_references WHERE base = ? AND name = ?`, base, name)
	if err != nil {
		return false, fmt.Errorf("deleting reference: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting reference: %w", err)
	}
	return n > 0, nil
}
