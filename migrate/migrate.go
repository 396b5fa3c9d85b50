package migrate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alitto/pond/v2"

	"github.com/sqlshift/sqlshift/config"
	"github.com/sqlshift/sqlshift/convert"
	"github.com/sqlshift/sqlshift/db"
)

// Status is the terminal state of one table's migration.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// TableResult reports the outcome of one table. A skipped table with a nil
// Err means the source table does not exist; a non-nil Err on a skipped
// table means setup failed before any rows moved. A failed table stopped at
// its last advanced watermark and is safe to re-run.
type TableResult struct {
	Table     string
	Status    Status
	Processed int64 // rows read from the source
	Written   int64 // rows newly written to the target
	Err       error
}

// Observer receives structured progress facts from the engine. The engine
// itself has no console dependency; the binary installs a printer.
type Observer interface {
	TableStarted(table string, totalRows int64)
	BatchLoaded(table string, written, processed, total int64)
	FieldDegraded(table, column, reason string)
	TableFinished(result TableResult)
}

// NopObserver discards all progress facts.
type NopObserver struct{}

func (NopObserver) TableStarted(string, int64)              {}
func (NopObserver) BatchLoaded(string, int64, int64, int64) {}
func (NopObserver) FieldDegraded(string, string, string)    {}
func (NopObserver) TableFinished(TableResult)               {}

// Dialer opens a store connection. Swapped in tests.
type Dialer func(dbURL string, cfg *config.Config) (*db.Connection, error)

// Migrator runs a migration plan table by table.
type Migrator struct {
	cfg     *config.Config
	obs     Observer
	connect Dialer
}

// New creates a migrator. A nil observer is replaced with a no-op one.
func New(cfg *config.Config, obs Observer) *Migrator {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Migrator{cfg: cfg, obs: obs, connect: db.Connect}
}

// Run migrates every table in the plan and returns one result per table, in
// plan order. A failing table never aborts the run.
func (m *Migrator) Run() []TableResult {
	results := make([]TableResult, len(m.cfg.Plan))

	if m.cfg.Workers > 1 {
		// Parallel tables are safe only for plans without cross-table
		// foreign keys. Each table is a single task, so no table is ever
		// migrated by two workers.
		pool := pond.NewPool(m.cfg.Workers)
		group := pool.NewGroup()
		for i := range m.cfg.Plan {
			i := i
			group.Submit(func() {
				results[i] = m.runTable(&m.cfg.Plan[i])
			})
		}
		group.Wait()
		pool.StopAndWait()
		return results
	}

	for i := range m.cfg.Plan {
		results[i] = m.runTable(&m.cfg.Plan[i])
	}
	return results
}

// runTable drives one table end to end: probe, seed the watermark from the
// target, then pull-transform-load batches until the source is exhausted.
// Both connections are scoped to this table and closed on every exit path.
func (m *Migrator) runTable(spec *config.TableSpec) TableResult {
	res := TableResult{Table: spec.Name}

	source, err := m.connect(m.cfg.SourceURL, m.cfg)
	if err != nil {
		return m.skip(res, fmt.Errorf("failed to connect to source database: %w", err))
	}
	defer source.Close()

	dest, err := m.connect(m.cfg.DestURL, m.cfg)
	if err != nil {
		return m.skip(res, fmt.Errorf("failed to connect to destination database: %w", err))
	}
	defer dest.Close()

	exists, err := source.TableExists(spec.Name)
	if err != nil {
		return m.skip(res, err)
	}
	if !exists {
		return m.skip(res, nil)
	}

	// Progress estimate only; termination never depends on it.
	total, err := source.RowCount(spec.Name)
	if err != nil {
		return m.skip(res, err)
	}

	// Resume from whatever already made it to the target.
	watermark, err := dest.MaxID(spec.Name, spec.PrimaryKey())
	if err != nil {
		return m.skip(res, err)
	}

	cursor := db.NewCursor(source, spec, m.cfg.BatchSize, watermark)
	m.obs.TableStarted(spec.Name, total)

	for {
		batch, err := cursor.NextBatch()
		if err != nil {
			return m.fail(res, err)
		}
		if len(batch) == 0 {
			break
		}

		lastRow := batch[len(batch)-1]
		lastID, err := primaryKeyValue(lastRow[0])
		if err != nil {
			return m.fail(res, fmt.Errorf("table %s: %w", spec.Name, err))
		}

		converted := make([]db.Row, len(batch))
		for i, row := range batch {
			out, issues := convert.Transform(spec, row)
			converted[i] = out
			for _, issue := range issues {
				m.obs.FieldDegraded(spec.Name, issue.Column, issue.Reason)
			}
		}

		written, err := dest.LoadBatch(spec, converted)
		if err != nil {
			return m.fail(res, err)
		}

		// The batch is committed; only now may the watermark move.
		cursor.Advance(lastID)
		res.Processed += int64(len(batch))
		res.Written += written
		m.obs.BatchLoaded(spec.Name, written, res.Processed, total)
	}

	res.Status = StatusCompleted
	m.obs.TableFinished(res)
	return res
}

func (m *Migrator) skip(res TableResult, err error) TableResult {
	res.Status = StatusSkipped
	res.Err = err
	m.obs.TableFinished(res)
	return res
}

func (m *Migrator) fail(res TableResult, err error) TableResult {
	res.Status = StatusFailed
	res.Err = err
	m.obs.TableFinished(res)
	return res
}

// primaryKeyValue coerces a scanned primary key to int64 for the watermark.
func primaryKeyValue(v interface{}) (int64, error) {
	switch id := v.(type) {
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	case int32:
		return int64(id), nil
	case uint64:
		return int64(id), nil
	case float64:
		return int64(id), nil
	case []byte:
		return parsePrimaryKey(string(id))
	case string:
		return parsePrimaryKey(id)
	default:
		return 0, fmt.Errorf("unsupported primary key type %T", v)
	}
}

func parsePrimaryKey(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-integer primary key %q", s)
	}
	return n, nil
}
