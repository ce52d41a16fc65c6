package logging

import "database/sql"

// #region db-logger
// DBLogger satisfies engine.FiringLogger by writing every firing-pass
// outcome straight to firing_log.
type DBLogger struct {
	DB *sql.DB
}

func (l DBLogger) LogFiring(episodeID, stepIndex int64, table string, fired bool, reason string, isEndEpisode bool) error {
	return LogFiring(l.DB, FiringEntry{
		EpisodeID:    episodeID,
		StepIndex:    stepIndex,
		Table:        table,
		Fired:        fired,
		Reason:       reason,
		IsEndEpisode: isEndEpisode,
	})
}

// #endregion db-logger
