package db

import (
	"fmt"
)

// TableExists reports whether the named table exists. A missing source table
// is a skip condition for the migration, not an error.
func (c *Connection) TableExists(name string) (bool, error) {
	var query string
	switch c.Type {
	case SQLite:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	case MySQL:
		query = "SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?"
	case PostgreSQL:
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1"
	default:
		return false, fmt.Errorf("unsupported database type: %s", c.Type)
	}

	var n int64
	if err := c.db.QueryRow(query, name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to probe table %s: %w", name, err)
	}
	return n > 0, nil
}

// RowCount returns the number of rows in a table. Used for progress
// estimates only; batch termination never depends on it.
func (c *Connection) RowCount(table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", escapeIdentifier(table, c.Type))
	var n int64
	if err := c.db.QueryRow(query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// MaxID returns the highest primary key in a table, or zero when the table
// is empty. Seeds the watermark so re-runs resume instead of rescanning.
func (c *Connection) MaxID(table, idCol string) (int64, error) {
	query := fmt.Sprintf(
		"SELECT COALESCE(MAX(%s), 0) FROM %s",
		escapeIdentifier(idCol, c.Type),
		escapeIdentifier(table, c.Type),
	)
	var id int64
	if err := c.db.QueryRow(query).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read max %s from %s: %w", idCol, table, err)
	}
	return id, nil
}
