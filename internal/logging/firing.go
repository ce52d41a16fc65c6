package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
// Schema is the firing_log table definition, left for a caller's store to
// include alongside its own migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS firing_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	episode_id     INTEGER NOT NULL,
	step_index     INTEGER NOT NULL,
	table_name     TEXT NOT NULL,
	fired          INTEGER NOT NULL,
	reason         TEXT,
	is_end_episode INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);
`

// #endregion schema

// #region log-firing
// LogFiring writes one firing-pass outcome to the firing_log table.
func LogFiring(db *sql.DB, entry FiringEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	fired := 0
	if entry.Fired {
		fired = 1
	}
	isEndEpisode := 0
	if entry.IsEndEpisode {
		isEndEpisode = 1
	}

	_, err := db.Exec(
		`INSERT INTO firing_log (episode_id, step_index, table_name, fired, reason, is_end_episode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.EpisodeID,
		entry.StepIndex,
		entry.Table,
		fired,
		nullIfEmpty(entry.Reason),
		isEndEpisode,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log firing: %w", err)
	}
	return nil
}

// #endregion log-firing

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
