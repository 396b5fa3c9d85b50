package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ConversionKind names the rule applied to one column's values while a row
// moves from source encoding to target encoding.
type ConversionKind string

const (
	ConvertNone   ConversionKind = ""
	ConvertJSON   ConversionKind = "json"
	ConvertMillis ConversionKind = "millis"
	ConvertBool   ConversionKind = "bool"
)

// TableSpec describes one table in the migration plan. The first column is
// the primary key, used for batch ordering and resuming.
type TableSpec struct {
	Name        string
	Columns     []string
	Conversions map[string]ConversionKind
}

// PrimaryKey returns the column used for ordering and watermarks.
func (t *TableSpec) PrimaryKey() string {
	return t.Columns[0]
}

// Validate checks the structural invariants of a table spec.
func (t *TableSpec) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("missing table name")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if seen[col] {
			return fmt.Errorf("table %s has duplicate column %s", t.Name, col)
		}
		seen[col] = true
	}
	for col := range t.Conversions {
		if !seen[col] {
			return fmt.Errorf("table %s has a conversion for unknown column %s", t.Name, col)
		}
	}
	if _, ok := t.Conversions[t.PrimaryKey()]; ok {
		return fmt.Errorf("table %s: primary key column %s cannot have a conversion", t.Name, t.PrimaryKey())
	}
	return nil
}

// Config holds the migration settings
type Config struct {
	SourceURL string
	DestURL   string
	PlanFile  string
	BatchSize int
	Workers   int
	Debug     bool
	Verbose   bool
	Plan      []TableSpec
}

// LoadPlan reads and parses a migration plan file. Each line declares one
// table as "table: col, col:kind, ..." where kind is json, millis or bool.
// The first column is the primary key.
func LoadPlan(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read plan file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue // Skip empty lines and comments
		}

		// Split on first colon
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid plan line format (expected 'table: columns'): %s", line)
		}

		tableName := strings.TrimSpace(parts[0])
		if tableName == "" {
			return fmt.Errorf("empty table name in plan line: %s", line)
		}

		spec := TableSpec{
			Name:        tableName,
			Conversions: make(map[string]ConversionKind),
		}

		for _, field := range strings.Split(parts[1], ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			name, kind, err := parseColumn(field)
			if err != nil {
				return fmt.Errorf("table %s: %w", tableName, err)
			}
			spec.Columns = append(spec.Columns, name)
			if kind != ConvertNone {
				spec.Conversions[name] = kind
			}
		}

		if err := spec.Validate(); err != nil {
			return fmt.Errorf("invalid plan: %w", err)
		}
		cfg.Plan = append(cfg.Plan, spec)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading plan file: %w", err)
	}

	return nil
}

// parseColumn splits a "name" or "name:kind" plan entry.
func parseColumn(field string) (string, ConversionKind, error) {
	parts := strings.SplitN(field, ":", 2)
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", ConvertNone, fmt.Errorf("empty column name in %q", field)
	}
	if len(parts) == 1 {
		return name, ConvertNone, nil
	}
	switch kind := ConversionKind(strings.TrimSpace(parts[1])); kind {
	case ConvertJSON, ConvertMillis, ConvertBool:
		return name, kind, nil
	default:
		return "", ConvertNone, fmt.Errorf("unknown conversion kind %q for column %s", parts[1], name)
	}
}

// DefaultPlan is the built-in plan for the GitHub crawl database this tool
// was originally written to move. Used when no plan file is given.
func DefaultPlan() []TableSpec {
	return []TableSpec{
		{
			Name: "comments",
			Columns: []string{
				"id", "node_id", "url", "issue_id", "issue_url", "user", "created_at",
				"updated_at", "author_association", "body", "reactions",
			},
			Conversions: map[string]ConversionKind{
				"created_at": ConvertMillis,
				"updated_at": ConvertMillis,
				"reactions":  ConvertJSON,
			},
		},
		{
			Name: "issues",
			Columns: []string{
				"id", "url", "repository_id", "repository_url", "node_id", "number",
				"title", "owner", "owner_type", "owner_id", "labels", "state", "locked",
				"comments", "created_at", "updated_at", "closed_at", "author_association",
				"active_lock_reason", "body", "reactions", "state_reason",
			},
			Conversions: map[string]ConversionKind{
				"labels":     ConvertJSON,
				"reactions":  ConvertJSON,
				"locked":     ConvertBool,
				"created_at": ConvertMillis,
				"updated_at": ConvertMillis,
				"closed_at":  ConvertMillis,
			},
		},
		{
			Name: "logs",
			Columns: []string{
				"id", "last_org_id", "last_user_id", "last_org_repository_id",
				"last_user_repository_id", "created_at",
			},
			Conversions: map[string]ConversionKind{
				"created_at": ConvertMillis,
			},
		},
		{
			Name:    "organizations",
			Columns: []string{"id", "login", "node_id", "description"},
		},
		{
			Name: "repositories",
			Columns: []string{
				"id", "node_id", "name", "full_name", "private", "owner", "owner_type",
				"owner_id", "html_url", "description", "fork", "url", "created_at",
				"updated_at", "pushed_at", "homepage", "size", "stargazers_count",
				"watchers_count", "language", "has_issues", "has_projects",
				"has_downloads", "has_wiki", "has_pages", "has_discussions",
				"forks_count", "mirror_url", "archived", "disabled", "open_issues_count",
				"license", "allow_forking", "is_template", "web_commit_signoff_required",
				"topics", "visibility", "forks", "open_issues", "watchers",
				"default_branch", "permissions",
			},
			Conversions: map[string]ConversionKind{
				"license":                     ConvertJSON,
				"topics":                      ConvertJSON,
				"permissions":                 ConvertJSON,
				"created_at":                  ConvertMillis,
				"updated_at":                  ConvertMillis,
				"pushed_at":                   ConvertMillis,
				"private":                     ConvertBool,
				"fork":                        ConvertBool,
				"has_issues":                  ConvertBool,
				"has_projects":                ConvertBool,
				"has_downloads":               ConvertBool,
				"has_wiki":                    ConvertBool,
				"has_pages":                   ConvertBool,
				"has_discussions":             ConvertBool,
				"archived":                    ConvertBool,
				"disabled":                    ConvertBool,
				"allow_forking":               ConvertBool,
				"is_template":                 ConvertBool,
				"web_commit_signoff_required": ConvertBool,
			},
		},
	}
}
