package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MoslemBenDhaou/datasurface/pkg/query"
	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

const recordColumns = "r.resource_key, r.record_id, r.document, r.version, r.deleted, r.created_at, r.updated_at"

// Get returns the non-deleted record with the given id, or nil when it is
// absent or soft-deleted.
func (s *Store) Get(ctx context.Context, resourceKey, recordID string) (*resource.StoredRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records r WHERE r.resource_key = ? AND r.record_id = ? AND r.deleted = 0",
		resourceKey, recordID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// GetAny returns the record regardless of its deleted flag, or nil when
// no row exists. Used by delete paths and direct inspection.
func (s *Store) GetAny(ctx context.Context, resourceKey, recordID string) (*resource.StoredRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records r WHERE r.resource_key = ? AND r.record_id = ?",
		resourceKey, recordID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// List executes a compiled list query: filters and search push down into
// the index, the total counts before paging, and sort keys resolve
// through correlated index lookups with most-recently-updated as the
// final tie-break.
func (s *Store) List(ctx context.Context, c *resource.Contract, spec query.ListSpec) ([]*resource.StoredRecord, int, error) {
	tr := dynamicTranslator{}

	conds := []string{"r.resource_key = ?", "r.deleted = 0"}
	args := []any{c.Key}
	if where, whereArgs := query.BuildWhere(tr, spec.Predicates); where != "" {
		conds = append(conds, where)
		args = append(args, whereArgs...)
	}
	if search, searchArgs := query.BuildSearch(tr, spec.SearchFields, spec.SearchTerm); search != "" {
		conds = append(conds, search)
		args = append(args, searchArgs...)
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records r WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}

	orderBy, orderArgs := query.BuildOrderBy(tr, spec.Sort)
	if orderBy != "" {
		orderBy += ", "
	}
	orderBy += "r.updated_at DESC, r.record_id"

	sqlText := "SELECT " + recordColumns + " FROM records r WHERE " + where +
		" ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, orderArgs...)
	args = append(args, spec.Limit, spec.Offset)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []*resource.StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []*resource.StoredRecord{}
	}
	return records, total, rows.Err()
}

// ListByIDs returns the non-deleted records for a candidate id set, in
// the order the ids were given. Missing ids are skipped.
func (s *Store) ListByIDs(ctx context.Context, resourceKey string, ids []string) ([]*resource.StoredRecord, error) {
	if len(ids) == 0 {
		return []*resource.StoredRecord{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, 0, len(ids)+1)
	args = append(args, resourceKey)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM records r WHERE r.resource_key = ? AND r.deleted = 0 AND r.record_id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("listing records by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*resource.StoredRecord, len(ids))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		byID[rec.RecordID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	records := make([]*resource.StoredRecord, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Insert stores a new record and builds its index rows in one
// transaction. Returns ErrRecordExists if the id is already taken,
// including by a soft-deleted record.
func (s *Store) Insert(ctx context.Context, c *resource.Contract, rec *resource.StoredRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM records WHERE resource_key = ? AND record_id = ?",
		rec.ResourceKey, rec.RecordID).Scan(&exists)
	if err == nil {
		return resource.ErrRecordExists
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking record: %w", err)
	}

	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO records (resource_key, record_id, document, version, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		rec.ResourceKey, rec.RecordID, string(doc), rec.Version,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt)); err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}

	if err := s.rebuildIndexTx(ctx, tx, c, rec.RecordID, rec.Document); err != nil {
		return err
	}
	return tx.Commit()
}

// Update replaces the stored document and rebuilds the index in one
// transaction. A non-empty expectedVersion guards the write: if the
// stored token differs the update is rejected with ErrVersionConflict.
// Updating an absent or soft-deleted record returns a NotFoundError.
func (s *Store) Update(ctx context.Context, c *resource.Contract, rec *resource.StoredRecord, expectedVersion string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	sqlText := `UPDATE records SET document = ?, version = ?, updated_at = ?
		WHERE resource_key = ? AND record_id = ? AND deleted = 0`
	args := []any{string(doc), rec.Version, formatTime(rec.UpdatedAt), rec.ResourceKey, rec.RecordID}
	if expectedVersion != "" {
		sqlText += " AND version = ?"
		args = append(args, expectedVersion)
	}

	res, err := tx.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM records WHERE resource_key = ? AND record_id = ? AND deleted = 0",
			rec.ResourceKey, rec.RecordID).Scan(&exists)
		if err == sql.ErrNoRows {
			return &resource.NotFoundError{Resource: rec.ResourceKey, ID: rec.RecordID}
		}
		if err != nil {
			return fmt.Errorf("checking record: %w", err)
		}
		return resource.ErrVersionConflict
	}

	if err := s.rebuildIndexTx(ctx, tx, c, rec.RecordID, rec.Document); err != nil {
		return err
	}
	return tx.Commit()
}

// SoftDelete flags the record as deleted. The document and its index rows
// stay in place; the deleted flag filters them out of every read.
func (s *Store) SoftDelete(ctx context.Context, resourceKey, recordID string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE records SET deleted = 1, updated_at = ? WHERE resource_key = ? AND record_id = ? AND deleted = 0",
		formatTime(now), resourceKey, recordID)
	if err != nil {
		return fmt.Errorf("soft-deleting record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking soft delete: %w", err)
	}
	if affected == 0 {
		return &resource.NotFoundError{Resource: resourceKey, ID: recordID}
	}
	return nil
}

// HardDelete removes the record row and its index rows in one
// transaction.
func (s *Store) HardDelete(ctx context.Context, resourceKey, recordID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning hard delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM index_rows WHERE resource_key = ? AND record_id = ?",
		resourceKey, recordID); err != nil {
		return fmt.Errorf("deleting index rows: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM records WHERE resource_key = ? AND record_id = ?",
		resourceKey, recordID)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking hard delete: %w", err)
	}
	if affected == 0 {
		return &resource.NotFoundError{Resource: resourceKey, ID: recordID}
	}
	return tx.Commit()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*resource.StoredRecord, error) {
	var rec resource.StoredRecord
	var doc, createdAt, updatedAt string
	var deleted int
	err := row.Scan(&rec.ResourceKey, &rec.RecordID, &doc, &rec.Version, &deleted, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	rec.Deleted = deleted != 0
	if err := json.Unmarshal([]byte(doc), &rec.Document); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing record created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing record updated_at: %w", err)
	}
	return &rec, nil
}
