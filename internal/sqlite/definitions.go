package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Definitions exposes the raw-definition rows as a
// resource.RawDefinitionStore. Definition timestamps drive provider cache
// invalidation, so Put always bumps updated_at.
type Definitions struct {
	store *Store
}

// Definitions returns the raw-definition store backed by this database.
func (s *Store) Definitions() *Definitions {
	return &Definitions{store: s}
}

// GetByKey returns the definition for a resource key.
// Returns resource.ErrDefinitionNotFound if the key is unknown.
func (d *Definitions) GetByKey(ctx context.Context, key string) (*resource.RawDefinition, error) {
	row := d.store.db.QueryRowContext(ctx,
		"SELECT definition, updated_at FROM definitions WHERE resource_key = ?", key)
	return scanDefinition(row)
}

// GetByRoute returns the definition registered under a route.
// Returns resource.ErrDefinitionNotFound if the route is unknown.
func (d *Definitions) GetByRoute(ctx context.Context, route string) (*resource.RawDefinition, error) {
	row := d.store.db.QueryRowContext(ctx,
		"SELECT definition, updated_at FROM definitions WHERE route = ?", route)
	return scanDefinition(row)
}

// GetAll returns every stored definition, ordered by resource key.
func (d *Definitions) GetAll(ctx context.Context) ([]*resource.RawDefinition, error) {
	rows, err := d.store.db.QueryContext(ctx,
		"SELECT definition, updated_at FROM definitions ORDER BY resource_key")
	if err != nil {
		return nil, fmt.Errorf("fetching definitions: %w", err)
	}
	defer rows.Close()

	var defs []*resource.RawDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if defs == nil {
		defs = []*resource.RawDefinition{}
	}
	return defs, rows.Err()
}

// GetLastModified returns the definition's last-modified timestamp, or
// the zero time if the key is unknown.
func (d *Definitions) GetLastModified(ctx context.Context, key string) (time.Time, error) {
	var updatedAt string
	err := d.store.db.QueryRowContext(ctx,
		"SELECT updated_at FROM definitions WHERE resource_key = ?", key).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading definition timestamp: %w", err)
	}
	ts, err := parseTime(updatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing definition timestamp: %w", err)
	}
	return ts, nil
}

// Put validates and upserts a definition, stamping a fresh updated_at so
// cached contracts built from the old revision go stale.
func (d *Definitions) Put(ctx context.Context, def *resource.RawDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	def.UpdatedAt = time.Now().UTC()

	body, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding definition: %w", err)
	}
	if _, err := d.store.db.ExecContext(ctx, `
		INSERT INTO definitions (resource_key, route, definition, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(resource_key) DO UPDATE SET
			route = excluded.route,
			definition = excluded.definition,
			updated_at = excluded.updated_at`,
		def.Key, def.Route, string(body), formatTime(def.UpdatedAt)); err != nil {
		return fmt.Errorf("upserting definition: %w", err)
	}
	return nil
}

// Delete removes a definition.
// Returns resource.ErrDefinitionNotFound if the key is unknown.
func (d *Definitions) Delete(ctx context.Context, key string) error {
	res, err := d.store.db.ExecContext(ctx,
		"DELETE FROM definitions WHERE resource_key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting definition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking definition delete: %w", err)
	}
	if affected == 0 {
		return resource.ErrDefinitionNotFound
	}
	return nil
}

func scanDefinition(row rowScanner) (*resource.RawDefinition, error) {
	var body, updatedAt string
	err := row.Scan(&body, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, resource.ErrDefinitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning definition: %w", err)
	}
	var def resource.RawDefinition
	if err := json.Unmarshal([]byte(body), &def); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	if def.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing definition updated_at: %w", err)
	}
	return &def, nil
}
