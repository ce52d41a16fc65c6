package logging

import "time"

// #region firing-entry
// FiringEntry is a single row in the firing_log table: the outcome of one
// pattern's firing pass for one step.
type FiringEntry struct {
	EpisodeID    int64
	StepIndex    int64
	Table        string
	Fired        bool
	Reason       string // "" | "condition_not_met" | "selection_unavailable"
	IsEndEpisode bool
	CreatedAt    time.Time
}

// #endregion firing-entry
