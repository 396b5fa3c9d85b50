package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/urfave/cli/v2"
	_ "modernc.org/sqlite"
)

// seedsource builds a small SQLite database shaped like sqlshift's built-in
// plan, so the migration can be tried end to end without real crawl data.
// Timestamps are stored as unix milliseconds and flags as 0/1 integers,
// matching the encodings the migration converts.

var tableDDL = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id INTEGER PRIMARY KEY,
		login TEXT,
		node_id TEXT,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY,
		last_org_id INTEGER,
		last_user_id INTEGER,
		last_org_repository_id INTEGER,
		last_user_repository_id INTEGER,
		created_at INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS issues (
		id INTEGER PRIMARY KEY,
		url TEXT,
		repository_id INTEGER,
		repository_url TEXT,
		node_id TEXT,
		number INTEGER,
		title TEXT,
		owner TEXT,
		owner_type TEXT,
		owner_id INTEGER,
		labels TEXT,
		state TEXT,
		locked INTEGER,
		comments INTEGER,
		created_at INTEGER,
		updated_at INTEGER,
		closed_at INTEGER,
		author_association TEXT,
		active_lock_reason TEXT,
		body TEXT,
		reactions TEXT,
		state_reason TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY,
		node_id TEXT,
		url TEXT,
		issue_id INTEGER,
		issue_url TEXT,
		user TEXT,
		created_at INTEGER,
		updated_at INTEGER,
		author_association TEXT,
		body TEXT,
		reactions TEXT
	)`,
}

func main() {
	var dbPath string
	var rowCount int
	var seed uint64

	app := &cli.App{
		Name:  "seedsource",
		Usage: "Generate a demo SQLite source database for sqlshift",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "db",
				Usage:       "Path of the SQLite database to create",
				Value:       "demo.db",
				Destination: &dbPath,
			},
			&cli.IntFlag{
				Name:        "rows",
				Aliases:     []string{"n"},
				Usage:       "Number of rows per table",
				Value:       1000,
				Destination: &rowCount,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "Random seed for reproducible data (0 = random)",
				Value:       0,
				Destination: &seed,
			},
		},
		Action: func(c *cli.Context) error {
			db, err := sql.Open("sqlite", dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			for _, ddl := range tableDDL {
				if _, err := db.Exec(ddl); err != nil {
					return fmt.Errorf("failed to create table: %w", err)
				}
			}

			faker := gofakeit.New(seed)
			if err := seedOrganizations(db, faker, rowCount); err != nil {
				return err
			}
			if err := seedLogs(db, faker, rowCount); err != nil {
				return err
			}
			if err := seedIssues(db, faker, rowCount); err != nil {
				return err
			}
			if err := seedComments(db, faker, rowCount); err != nil {
				return err
			}

			fmt.Printf("Seeded %d rows per table into %s\n", rowCount, dbPath)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedOrganizations(db *sql.DB, f *gofakeit.Faker, n int) error {
	return seedTable(db, "organizations",
		"INSERT OR IGNORE INTO organizations (id, login, node_id, description) VALUES (?, ?, ?, ?)",
		n, func(id int) []interface{} {
			return []interface{}{id, f.Username(), f.UUID(), f.Sentence(8)}
		})
}

func seedLogs(db *sql.DB, f *gofakeit.Faker, n int) error {
	return seedTable(db, "logs",
		`INSERT OR IGNORE INTO logs (id, last_org_id, last_user_id, last_org_repository_id,
			last_user_repository_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n, func(id int) []interface{} {
			return []interface{}{
				id, f.Number(1, n), f.Number(1, n), f.Number(1, n), f.Number(1, n),
				millis(f),
			}
		})
}

func seedIssues(db *sql.DB, f *gofakeit.Faker, n int) error {
	return seedTable(db, "issues",
		`INSERT OR IGNORE INTO issues (id, url, repository_id, repository_url, node_id, number,
			title, owner, owner_type, owner_id, labels, state, locked, comments, created_at,
			updated_at, closed_at, author_association, active_lock_reason, body, reactions,
			state_reason) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n, func(id int) []interface{} {
			created := millis(f)
			return []interface{}{
				id, f.URL(), f.Number(1, n), f.URL(), f.UUID(), f.Number(1, 9999),
				f.Sentence(6), f.Username(), "User", f.Number(1, n),
				labelsJSON(f), "open", f.Number(0, 1), f.Number(0, 30), created,
				created, nil, "CONTRIBUTOR", nil, f.Paragraph(1, 3, 10, " "),
				reactionsJSON(f), nil,
			}
		})
}

func seedComments(db *sql.DB, f *gofakeit.Faker, n int) error {
	return seedTable(db, "comments",
		`INSERT OR IGNORE INTO comments (id, node_id, url, issue_id, issue_url, user,
			created_at, updated_at, author_association, body, reactions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n, func(id int) []interface{} {
			created := millis(f)
			return []interface{}{
				id, f.UUID(), f.URL(), f.Number(1, n), f.URL(), f.Username(),
				created, created, "NONE", f.Paragraph(1, 2, 8, " "), reactionsJSON(f),
			}
		})
}

// seedTable inserts n generated rows inside one transaction.
func seedTable(db *sql.DB, table, query string, n int, row func(id int) []interface{}) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for id := 1; id <= n; id++ {
		if _, err := stmt.Exec(row(id)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

func millis(f *gofakeit.Faker) int64 {
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	return f.DateRange(start, time.Now()).UnixMilli()
}

func reactionsJSON(f *gofakeit.Faker) string {
	b, _ := json.Marshal(map[string]int{
		"+1":    f.Number(0, 50),
		"-1":    f.Number(0, 5),
		"laugh": f.Number(0, 10),
		"heart": f.Number(0, 10),
	})
	return string(b)
}

func labelsJSON(f *gofakeit.Faker) string {
	labels := make([]string, f.Number(0, 3))
	for i := range labels {
		labels[i] = f.Word()
	}
	b, _ := json.Marshal(labels)
	return string(b)
}
