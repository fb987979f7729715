package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// RebuildIndex regenerates every index row for one record from its
// current document. The rebuild is idempotent in result: running it twice
// for an unchanged document yields an identical row set.
//
// Write paths call rebuildIndexTx inside the document transaction
// instead, so a reader can never observe a document without its index or
// an index without its document.
func (s *Store) RebuildIndex(ctx context.Context, c *resource.Contract, recordID string, doc resource.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning index rebuild: %w", err)
	}
	defer tx.Rollback()
	if err := s.rebuildIndexTx(ctx, tx, c, recordID, doc); err != nil {
		return err
	}
	return tx.Commit()
}

// rebuildIndexTx deletes and reinserts the record's index rows within tx.
// A row is written for every non-hidden filterable or sortable field whose
// value is present and non-null. Conversion failures never fail the write:
// the raw textual form lands in the string slot instead.
func (s *Store) rebuildIndexTx(ctx context.Context, tx *sql.Tx, c *resource.Contract, recordID string, doc resource.Document) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM index_rows WHERE resource_key = ? AND record_id = ?",
		c.Key, recordID); err != nil {
		return fmt.Errorf("clearing index rows: %w", err)
	}

	for _, f := range c.Fields {
		if f.Hidden || (!f.Filterable && !f.Sortable) {
			continue
		}
		value, ok := doc[f.APIName]
		if !ok || value == nil {
			continue
		}
		row := s.projectIndexValue(c.Key, recordID, &f, value)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_rows (resource_key, record_id, field_name, string_value, number_value, datetime_value, bool_value, guid_value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.resourceKey, row.recordID, row.fieldName,
			row.stringValue, row.numberValue, row.datetimeValue, row.boolValue, row.guidValue); err != nil {
			return fmt.Errorf("inserting index row for %s: %w", f.APIName, err)
		}
	}
	return nil
}

// indexRow mirrors one index_rows row with nullable slots.
type indexRow struct {
	resourceKey   string
	recordID      string
	fieldName     string
	stringValue   sql.NullString
	numberValue   sql.NullFloat64
	datetimeValue sql.NullString
	boolValue     sql.NullInt64
	guidValue     sql.NullString
}

// projectIndexValue converts a document value into the typed slot for the
// field. Conversion failure falls back to the string slot with the raw
// textual form; a record write must never fail on stale index data.
func (s *Store) projectIndexValue(resourceKey, recordID string, f *resource.FieldContract, value any) indexRow {
	row := indexRow{resourceKey: resourceKey, recordID: recordID, fieldName: f.APIName}

	switch resource.SlotForType(f.Type) {
	case resource.SlotNumber:
		if n, err := cast.ToFloat64E(value); err == nil {
			row.numberValue = sql.NullFloat64{Float64: n, Valid: true}
			return row
		}
	case resource.SlotBool:
		if b, err := cast.ToBoolE(value); err == nil {
			v := int64(0)
			if b {
				v = 1
			}
			row.boolValue = sql.NullInt64{Int64: v, Valid: true}
			return row
		}
	case resource.SlotDateTime:
		if ts, err := cast.ToTimeE(value); err == nil {
			row.datetimeValue = sql.NullString{String: formatTime(ts), Valid: true}
			return row
		}
	case resource.SlotGUID:
		if str, err := cast.ToStringE(value); err == nil {
			if id, err := uuid.Parse(str); err == nil {
				row.guidValue = sql.NullString{String: id.String(), Valid: true}
				return row
			}
		}
	case resource.SlotString:
		if str, err := cast.ToStringE(value); err == nil {
			row.stringValue = sql.NullString{String: str, Valid: true}
			return row
		}
	}

	s.logger.Debug("index coercion fallback",
		zap.String("resource", resourceKey),
		zap.String("record", recordID),
		zap.String("field", f.APIName),
		zap.String("type", f.Type))
	row.stringValue = sql.NullString{String: rawString(value), Valid: true}
	return row
}

// rawString renders a value that did not convert to its declared type.
func rawString(value any) string {
	if b, err := json.Marshal(value); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", value)
}

// IndexRows returns the stored index rows for one record, ordered by
// field name. Used by inspection and tests.
func (s *Store) IndexRows(ctx context.Context, resourceKey, recordID string) ([]resource.IndexRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT resource_key, record_id, field_name, string_value, number_value, datetime_value, bool_value, guid_value
		FROM index_rows WHERE resource_key = ? AND record_id = ? ORDER BY field_name`,
		resourceKey, recordID)
	if err != nil {
		return nil, fmt.Errorf("reading index rows: %w", err)
	}
	defer rows.Close()

	var out []resource.IndexRow
	for rows.Next() {
		var raw indexRow
		if err := rows.Scan(&raw.resourceKey, &raw.recordID, &raw.fieldName,
			&raw.stringValue, &raw.numberValue, &raw.datetimeValue, &raw.boolValue, &raw.guidValue); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		ir := resource.IndexRow{
			ResourceKey: raw.resourceKey,
			RecordID:    raw.recordID,
			FieldName:   raw.fieldName,
		}
		if raw.stringValue.Valid {
			v := raw.stringValue.String
			ir.String = &v
		}
		if raw.numberValue.Valid {
			v := raw.numberValue.Float64
			ir.Number = &v
		}
		if raw.datetimeValue.Valid {
			if ts, err := parseTime(raw.datetimeValue.String); err == nil {
				ir.DateTime = &ts
			}
		}
		if raw.boolValue.Valid {
			v := raw.boolValue.Int64 != 0
			ir.Bool = &v
		}
		if raw.guidValue.Valid {
			v := raw.guidValue.String
			ir.GUID = &v
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}
