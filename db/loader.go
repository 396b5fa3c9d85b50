package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqlshift/sqlshift/config"
)

// LoadBatch writes a batch of converted rows to the target as multi-row
// inserts, silently skipping rows whose primary key already exists
// (first-write-wins). Returns the number of rows actually written. A batch
// that fits the driver's bind-parameter cap goes out as one statement; a
// wider batch is split into chunks inside one transaction, so the batch
// still lands whole or not at all.
func (c *Connection) LoadBatch(spec *config.TableSpec, batch []Row) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	if c.db == nil {
		return 0, fmt.Errorf("sql: database is closed")
	}

	maxRows := c.bindLimit() / len(spec.Columns)
	if maxRows < 1 {
		maxRows = 1
	}
	if len(batch) <= maxRows {
		return c.insertRows(c.db, spec, batch)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var written int64
	for start := 0; start < len(batch); start += maxRows {
		end := start + maxRows
		if end > len(batch) {
			end = len(batch)
		}
		n, err := c.insertRows(tx, spec, batch[start:end])
		if err != nil {
			return 0, err
		}
		written += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return written, nil
}

// bindLimit returns the driver's bind-parameter cap per statement: a uint16
// on the postgres and mysql wire protocols, SQLITE_MAX_VARIABLE_NUMBER for
// sqlite.
func (c *Connection) bindLimit() int {
	if c.Type == SQLite {
		return 32766
	}
	return 65535
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// insertRows builds and runs one conflict-skipping multi-row insert.
func (c *Connection) insertRows(e execer, spec *config.TableSpec, batch []Row) (int64, error) {
	values := make([]interface{}, 0, len(batch)*len(spec.Columns))
	tuples := make([]string, 0, len(batch))
	for _, row := range batch {
		if len(row) != len(spec.Columns) {
			return 0, fmt.Errorf("row has %d values, table %s has %d columns",
				len(row), spec.Name, len(spec.Columns))
		}
		placeholders := make([]string, len(row))
		for i, val := range row {
			values = append(values, val)
			placeholders[i] = c.placeholder(len(values))
		}
		tuples = append(tuples, "("+strings.Join(placeholders, ", ")+")")
	}

	table := escapeIdentifier(spec.Name, c.Type)
	columns := strings.Join(escapeIdentifiers(spec.Columns, c.Type), ", ")
	valuesClause := strings.Join(tuples, ", ")

	var query string
	switch c.Type {
	case PostgreSQL:
		query = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO NOTHING",
			table, columns, valuesClause,
			escapeIdentifier(spec.PrimaryKey(), c.Type),
		)
	case MySQL:
		query = fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES %s", table, columns, valuesClause)
	case SQLite:
		query = fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES %s", table, columns, valuesClause)
	default:
		return 0, fmt.Errorf("unsupported database type: %s", c.Type)
	}

	if c.cfg.Verbose {
		fmt.Printf("Executing SQL: %s\n", query)
	}

	result, err := e.Exec(query, values...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %s, error: %w", query, err)
	}

	written, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected for %s: %w", spec.Name, err)
	}
	return written, nil
}
