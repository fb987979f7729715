// Package sqlite implements the document store, the secondary index and
// the raw-definition store over a single SQLite database. One structured
// document per record lives in the records table; index_rows carries one
// typed projection per indexed field so filtering and sorting work
// without native columns. Document writes and index rebuilds commit in
// the same transaction.
package sqlite

// Schema DDL. Records are keyed by (resource_key, record_id) with the id
// string-typed so int, guid and string logical keys share one schema.
// Every index row populates exactly one typed slot.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    resource_key TEXT NOT NULL,
    record_id TEXT NOT NULL,
    document TEXT NOT NULL,
    version TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (resource_key, record_id)
);`

	createIndexRows = `CREATE TABLE IF NOT EXISTS index_rows (
    resource_key TEXT NOT NULL,
    record_id TEXT NOT NULL,
    field_name TEXT NOT NULL,
    string_value TEXT,
    number_value REAL,
    datetime_value TEXT,
    bool_value INTEGER,
    guid_value TEXT,
    PRIMARY KEY (resource_key, record_id, field_name)
);`

	createIndexRowsLookup = `CREATE INDEX IF NOT EXISTS idx_index_rows_field
    ON index_rows (resource_key, field_name);`

	createDefinitions = `CREATE TABLE IF NOT EXISTS definitions (
    resource_key TEXT PRIMARY KEY,
    route TEXT NOT NULL UNIQUE,
    definition TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// schemaStatements lists the DDL executed on open, in order.
var schemaStatements = []string{
	createRecords,
	createIndexRows,
	createIndexRowsLookup,
	createDefinitions,
}
