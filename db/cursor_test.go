package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/frankban/quicktest"

	"github.com/sqlshift/sqlshift/config"
)

func logsSpec() *config.TableSpec {
	return &config.TableSpec{
		Name:    "logs",
		Columns: []string{"id", "created_at"},
	}
}

func TestCursor_PaginatesUntilEmpty(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	conn := &Connection{db: dbMock, Type: SQLite, cfg: &config.Config{}}
	cursor := NewCursor(conn, logsSpec(), 2, 0)

	cols := []string{"id", "created_at"}
	query := `SELECT "id", "created_at" FROM "logs" WHERE "id" > \? ORDER BY "id" ASC LIMIT 2`

	mock.ExpectQuery(query).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 100).AddRow(2, 200))
	mock.ExpectQuery(query).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, 300))
	mock.ExpectQuery(query).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols))

	batch, err := cursor.NextBatch()
	c.Assert(err, quicktest.IsNil)
	c.Assert(batch, quicktest.HasLen, 2)
	c.Assert(batch[0][0], quicktest.Equals, int64(1))
	c.Assert(batch[1][0], quicktest.Equals, int64(2))
	cursor.Advance(2)
	c.Assert(cursor.Watermark(), quicktest.Equals, int64(2))

	batch, err = cursor.NextBatch()
	c.Assert(err, quicktest.IsNil)
	c.Assert(batch, quicktest.HasLen, 1)
	cursor.Advance(3)

	batch, err = cursor.NextBatch()
	c.Assert(err, quicktest.IsNil)
	c.Assert(batch, quicktest.HasLen, 0)

	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestCursor_ResumesFromSeededWatermark(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	conn := &Connection{db: dbMock, Type: SQLite, cfg: &config.Config{}}
	cursor := NewCursor(conn, logsSpec(), 100, 5000)

	mock.ExpectQuery(`WHERE "id" > \? ORDER BY "id" ASC LIMIT 100`).
		WithArgs(int64(5000)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	batch, err := cursor.NextBatch()
	c.Assert(err, quicktest.IsNil)
	c.Assert(batch, quicktest.HasLen, 0)
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestCursor_PostgresPlaceholder(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	conn := &Connection{db: dbMock, Type: PostgreSQL, cfg: &config.Config{}}
	cursor := NewCursor(conn, logsSpec(), 10, 0)

	mock.ExpectQuery(`WHERE "id" > \$1 ORDER BY "id" ASC LIMIT 10`).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

	_, err = cursor.NextBatch()
	c.Assert(err, quicktest.IsNil)
	c.Assert(mock.ExpectationsWereMet(), quicktest.IsNil)
}

func TestCursor_QueryError(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	conn := &Connection{db: dbMock, Type: SQLite, cfg: &config.Config{}}
	cursor := NewCursor(conn, logsSpec(), 10, 0)

	mock.ExpectQuery(`FROM "logs"`).WillReturnError(errors.New("fail"))

	_, err = cursor.NextBatch()
	c.Assert(err, quicktest.ErrorMatches, "failed to query table logs: fail")
}

func TestCursor_RowError(t *testing.T) {
	c := quicktest.New(t)
	dbMock, mock, err := sqlmock.New()
	c.Assert(err, quicktest.IsNil)
	defer dbMock.Close()

	conn := &Connection{db: dbMock, Type: SQLite, cfg: &config.Config{}}
	cursor := NewCursor(conn, logsSpec(), 10, 0)

	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, 100)
	rows.RowError(0, errors.New("row error"))
	mock.ExpectQuery(`FROM "logs"`).WillReturnRows(rows)

	_, err = cursor.NextBatch()
	c.Assert(err, quicktest.ErrorMatches, "error iterating rows of table logs: row error")
}
