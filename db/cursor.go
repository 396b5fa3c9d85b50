package db

import (
	"fmt"
	"strings"

	"github.com/sqlshift/sqlshift/config"
)

// Row is one table row, positionally aligned with the plan's column list.
type Row []interface{}

// Cursor pages through a source table in primary-key order. The watermark is
// the exclusive lower bound of the next batch and only ever moves forward.
type Cursor struct {
	conn      *Connection
	spec      *config.TableSpec
	batchSize int
	watermark int64
}

// NewCursor creates a cursor over one table, starting above watermark.
func NewCursor(conn *Connection, spec *config.TableSpec, batchSize int, watermark int64) *Cursor {
	return &Cursor{
		conn:      conn,
		spec:      spec,
		batchSize: batchSize,
		watermark: watermark,
	}
}

// NextBatch returns the next batch of rows with primary key above the
// watermark, in ascending key order. An empty batch means the table is
// exhausted; that is the sole termination signal.
func (c *Cursor) NextBatch() ([]Row, error) {
	pk := escapeIdentifier(c.spec.PrimaryKey(), c.conn.Type)
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s > %s ORDER BY %s ASC LIMIT %d",
		strings.Join(escapeIdentifiers(c.spec.Columns, c.conn.Type), ", "),
		escapeIdentifier(c.spec.Name, c.conn.Type),
		pk, c.conn.placeholder(1), pk, c.batchSize,
	)

	if c.conn.cfg.Verbose {
		fmt.Printf("Executing SQL: %s\n", query)
	}

	rows, err := c.conn.db.Query(query, c.watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", c.spec.Name, err)
	}
	defer rows.Close()

	batch := make([]Row, 0, c.batchSize)
	for rows.Next() {
		values := make([]interface{}, len(c.spec.Columns))
		valuePtrs := make([]interface{}, len(values))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row from table %s: %w", c.spec.Name, err)
		}
		batch = append(batch, Row(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of table %s: %w", c.spec.Name, err)
	}

	return batch, nil
}

// Advance moves the watermark past a durably written batch. Calling it
// before the batch is committed would skip rows on resume after a crash.
func (c *Cursor) Advance(lastID int64) {
	c.watermark = lastID
}

// Watermark returns the current exclusive lower bound.
func (c *Cursor) Watermark() int64 {
	return c.watermark
}
