// Package sink implements ColumnWriter backends for the structured
// trajectory writer engine.
package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/structured-writer/internal/engine"
	"github.com/danielpatrickdp/structured-writer/internal/logging"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS cells (
	cell_id      TEXT PRIMARY KEY,
	episode_id   INTEGER NOT NULL,
	column_index INTEGER NOT NULL,
	step_index   INTEGER NOT NULL,
	value_json   TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	item_id         TEXT PRIMARY KEY,
	table_name      TEXT NOT NULL,
	priority        REAL NOT NULL,
	trajectory_json TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS episode_boundaries (
	episode_id    INTEGER PRIMARY KEY,
	clear_buffers INTEGER NOT NULL,
	ended_at      TEXT NOT NULL
);
`

// #endregion schema

// trajectoryColumnJSON is the on-disk shape of one TrajectoryColumn:
// an ordered list of cell IDs plus the squeeze flag.
type trajectoryColumnJSON struct {
	CellIDs  []string `json:"cell_ids"`
	Squeezed bool     `json:"squeezed"`
}

// #region sqlite-writer-struct
// SQLiteWriter is a ColumnWriter that persists every appended cell and
// every submitted item into a SQLite database. Every write commits
// synchronously, so Flush never has anything left to wait on.
type SQLiteWriter struct {
	db *sql.DB

	episodeID int64
	stepIndex int64
}

// #endregion sqlite-writer-struct

// #region constructor
// NewSQLiteWriter opens (or creates) a SQLite database at path and
// migrates it to the current schema.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(logging.Schema); err != nil {
		return nil, fmt.Errorf("migrate firing log: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Close closes the underlying database connection.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

// DB returns the underlying *sql.DB, for callers that query the items
// and firing_log tables directly.
func (w *SQLiteWriter) DB() *sql.DB {
	return w.db
}

// Logger returns a FiringLogger backed by this writer's database,
// ready to pass to engine.WithFiringLogger.
func (w *SQLiteWriter) Logger() logging.DBLogger {
	return logging.DBLogger{DB: w.db}
}

// #endregion constructor

// #region append
func (w *SQLiteWriter) Append(data []engine.Cell) ([]engine.CellRef, error) {
	refs, err := w.appendCells(data)
	if err != nil {
		return nil, err
	}
	w.stepIndex++
	return refs, nil
}

func (w *SQLiteWriter) AppendPartial(data []engine.Cell) ([]engine.CellRef, error) {
	return w.appendCells(data)
}

func (w *SQLiteWriter) appendCells(data []engine.Cell) ([]engine.CellRef, error) {
	refs := make([]engine.CellRef, len(data))

	tx, err := w.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, cell := range data {
		if !cell.Present {
			continue
		}
		valJSON, err := json.Marshal(cell.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal cell value: %w", err)
		}
		id := uuid.New().String()
		_, err = tx.Exec(
			`INSERT INTO cells (cell_id, episode_id, column_index, step_index, value_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, w.episodeID, i, w.stepIndex, string(valJSON), now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert cell: %w", err)
		}
		refs[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return refs, nil
}

// #endregion append

// #region create-item
func (w *SQLiteWriter) CreateItem(table string, priority float64, trajectory []engine.TrajectoryColumn) error {
	cols := make([]trajectoryColumnJSON, len(trajectory))
	for i, col := range trajectory {
		ids := make([]string, len(col.Refs))
		for j, ref := range col.Refs {
			id, ok := ref.(string)
			if !ok {
				return fmt.Errorf("create item: unexpected cell ref type %T", ref)
			}
			ids[j] = id
		}
		cols[i] = trajectoryColumnJSON{CellIDs: ids, Squeezed: col.Squeezed}
	}

	trajJSON, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("marshal trajectory: %w", err)
	}

	_, err = w.db.Exec(
		`INSERT INTO items (item_id, table_name, priority, trajectory_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), table, priority, string(trajJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// #endregion create-item

// #region end-episode
func (w *SQLiteWriter) EndEpisode(clearBuffers bool) error {
	clear := 0
	if clearBuffers {
		clear = 1
	}
	_, err := w.db.Exec(
		`INSERT INTO episode_boundaries (episode_id, clear_buffers, ended_at) VALUES (?, ?, ?)`,
		w.episodeID, clear, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert episode boundary: %w", err)
	}
	w.episodeID++
	w.stepIndex = 0
	return nil
}

// #endregion end-episode

// #region flush
// Flush is a no-op: every Append, CreateItem, and EndEpisode call above
// already commits its transaction before returning, so there is never an
// unconfirmed write left for timeout to wait out.
func (w *SQLiteWriter) Flush(ignoreLastNumItems int, timeout time.Duration) error {
	return nil
}

// #endregion flush
