package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sqlshift/sqlshift/config"
)

type DBType string

const (
	SQLite     DBType = "sqlite"
	MySQL      DBType = "mysql"
	PostgreSQL DBType = "postgres"
)

// Connection represents a database connection
type Connection struct {
	db   *sql.DB
	Type DBType
	cfg  *config.Config
}

// Connect establishes a database connection from a URL string
func Connect(dbURL string, cfg *config.Config) (*Connection, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	conn := Connection{cfg: cfg}
	var dsn string

	switch u.Scheme {
	case "sqlite", "file":
		conn.Type = SQLite
		// Accept both sqlite:path/to.db and sqlite:///abs/path.db
		dsn = u.Opaque
		if dsn == "" {
			dsn = u.Host + u.Path
		}

	case "mysql":
		conn.Type = MySQL
		// Convert URL format to DSN format
		// Remove leading '/' from path (database name)
		database := strings.TrimPrefix(u.Path, "/")
		dsn = fmt.Sprintf("%s@tcp(%s)/%s", u.User.String(), u.Host, database)

	case "postgres", "postgresql":
		conn.Type = PostgreSQL
		// PostgreSQL can use the URL directly
		dsn = dbURL

	default:
		return nil, fmt.Errorf("unsupported database type: %s", u.Scheme)
	}

	db, err := sql.Open(string(conn.Type), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.db = db
	return &conn, nil
}

// NewConnection wraps an existing database handle. Used by tests and callers
// that manage their own pool.
func NewConnection(sqlDB *sql.DB, dbType DBType, cfg *config.Config) *Connection {
	return &Connection{db: sqlDB, Type: dbType, cfg: cfg}
}

// Close closes the database connection
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// placeholder returns the n-th bind parameter marker for this database.
func (c *Connection) placeholder(n int) string {
	if c.Type == PostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func escapeIdentifier(identifier string, dbType DBType) string {
	switch dbType {
	case MySQL:
		return fmt.Sprintf("`%s`", identifier)
	case PostgreSQL, SQLite:
		return fmt.Sprintf(`"%s"`, identifier)
	default:
		return identifier
	}
}

func escapeIdentifiers(identifiers []string, dbType DBType) []string {
	escaped := make([]string, len(identifiers))
	for i, id := range identifiers {
		escaped[i] = escapeIdentifier(id, dbType)
	}
	return escaped
}
