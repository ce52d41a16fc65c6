package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/structured-writer/internal/sink"
)

// #region main
func main() {
	dbPath := flag.String("db", "", "path to the SQLite database to inspect")
	last := flag.Int("last", 20, "number of most recent rows to show")
	table := flag.String("table", "", "filter by trajectory table name")
	episode := flag.Int64("episode", -1, "filter firing log rows by episode id; applies only with --firing (-1 means no filter)")
	firing := flag.Bool("firing", false, "inspect the firing log instead of written items")
	jsonOut := flag.Bool("json", false, "print rows as JSON instead of a table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/trajectories.db [--last N] [--table name] [--episode id] [--firing] [--json]")
		os.Exit(2)
	}

	writer, err := sink.NewSQLiteWriter(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer writer.Close()

	if *firing {
		os.Exit(runFiringMode(writer.DB(), *last, *table, *episode, *jsonOut))
	}
	os.Exit(runItemsMode(writer.DB(), *last, *table, *jsonOut))
}

// #endregion main

// #region items-mode
type itemRow struct {
	ItemID         string  `json:"item_id"`
	Table          string  `json:"table"`
	Priority       float64 `json:"priority"`
	TrajectoryJSON string  `json:"trajectory"`
	CreatedAt      string  `json:"created_at"`
}

func runItemsMode(db *sql.DB, last int, table string, jsonOut bool) int {
	query := `SELECT item_id, table_name, priority, trajectory_json, created_at FROM items`
	args := []interface{}{}
	if table != "" {
		query += ` WHERE table_name = ?`
		args = append(args, table)
	}
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, last)

	rows, err := db.Query(query, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query items: %v\n", err)
		return 1
	}
	defer rows.Close()

	var items []itemRow
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(&r.ItemID, &r.Table, &r.Priority, &r.TrajectoryJSON, &r.CreatedAt); err != nil {
			fmt.Fprintf(os.Stderr, "scan item: %v\n", err)
			return 1
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "iterate items: %v\n", err)
		return 1
	}

	if jsonOut {
		return printJSON(items)
	}
	return printItemsTable(items)
}

func printItemsTable(rows []itemRow) int {
	if len(rows) == 0 {
		fmt.Println("no items found")
		return 0
	}

	fmt.Printf("%-10s  %-10s  %8s  %-20s  %s\n", "Item", "Table", "Priority", "Created", "Trajectory")
	fmt.Printf("%-10s  %-10s  %8s  %-20s  %s\n", "----------", "----------", "--------", "--------------------", "----------")
	for _, r := range rows {
		fmt.Printf("%-10s  %-10s  %8.2f  %-20s  %s\n", shortID(r.ItemID), r.Table, r.Priority, r.CreatedAt, r.TrajectoryJSON)
	}
	return 0
}

// #endregion items-mode

// #region firing-mode
type firingRow struct {
	EpisodeID    int64  `json:"episode_id"`
	StepIndex    int64  `json:"step_index"`
	Table        string `json:"table"`
	Fired        bool   `json:"fired"`
	Reason       string `json:"reason,omitempty"`
	IsEndEpisode bool   `json:"is_end_episode"`
	CreatedAt    string `json:"created_at"`
}

func runFiringMode(db *sql.DB, last int, table string, episode int64, jsonOut bool) int {
	query := `SELECT episode_id, step_index, table_name, fired, COALESCE(reason, ''), is_end_episode, created_at FROM firing_log WHERE 1=1`
	args := []interface{}{}
	if table != "" {
		query += ` AND table_name = ?`
		args = append(args, table)
	}
	if episode >= 0 {
		query += ` AND episode_id = ?`
		args = append(args, episode)
	}
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, last)

	rows, err := db.Query(query, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query firing_log: %v\n", err)
		return 1
	}
	defer rows.Close()

	var entries []firingRow
	for rows.Next() {
		var r firingRow
		var fired int
		var endEp int
		if err := rows.Scan(&r.EpisodeID, &r.StepIndex, &r.Table, &fired, &r.Reason, &endEp, &r.CreatedAt); err != nil {
			fmt.Fprintf(os.Stderr, "scan firing_log row: %v\n", err)
			return 1
		}
		r.Fired = fired != 0
		r.IsEndEpisode = endEp != 0
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "iterate firing_log: %v\n", err)
		return 1
	}

	if jsonOut {
		return printJSON(entries)
	}
	return printFiringTable(entries)
}

func printFiringTable(rows []firingRow) int {
	if len(rows) == 0 {
		fmt.Println("no firing log entries found")
		return 0
	}

	fmt.Printf("%8s  %8s  %-10s  %-6s  %-20s  %-5s  %s\n", "Episode", "Step", "Table", "Fired", "Reason", "EndEp", "Created")
	fmt.Printf("%8s  %8s  %-10s  %-6s  %-20s  %-5s  %s\n", "--------", "--------", "----------", "------", "--------------------", "-----", "--------")
	for _, r := range rows {
		reason := r.Reason
		if reason == "" {
			reason = "—"
		}
		fmt.Printf("%8d  %8d  %-10s  %-6v  %-20s  %-5v  %s\n", r.EpisodeID, r.StepIndex, r.Table, r.Fired, reason, r.IsEndEpisode, r.CreatedAt)
	}
	return 0
}

// #endregion firing-mode

// #region output
func printJSON(v interface{}) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode json: %v\n", err)
		return 1
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
