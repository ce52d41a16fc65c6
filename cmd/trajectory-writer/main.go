package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/structured-writer/internal/engine"
	"github.com/danielpatrickdp/structured-writer/internal/replay"
	"github.com/danielpatrickdp/structured-writer/internal/sink"
)

// #region main
func main() {
	dbPath := flag.String("db", "", "path to the SQLite database to write trajectories into")
	patternsPath := flag.String("patterns", "", "path to a JSON pattern config file")
	stepsPath := flag.String("steps", "", "path to a JSON recorded step stream")
	jsonOut := flag.Bool("json", false, "print every emitted item as JSON instead of a table")
	flag.Parse()

	if *dbPath == "" || *patternsPath == "" || *stepsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: trajectory-writer --db path/to/trajectories.db --patterns path/to/patterns.json --steps path/to/steps.json [--json]")
		os.Exit(2)
	}

	os.Exit(run(*dbPath, *patternsPath, *stepsPath, *jsonOut))
}

// #endregion main

// #region run
func run(dbPath, patternsPath, stepsPath string, jsonOut bool) int {
	configs, err := replay.LoadPatternConfigs(patternsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load patterns: %v\n", err)
		return 2
	}

	steps, err := replay.LoadStepStream(stepsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load step stream: %v\n", err)
		return 2
	}

	writer, err := sink.NewSQLiteWriter(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 1
	}
	defer writer.Close()

	sw, err := engine.New(writer, configs, engine.WithFiringLogger(writer.Logger()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "construct writer: %v\n", err)
		return 2
	}

	var itemsBefore int64
	writer.DB().QueryRow(`SELECT COUNT(*) FROM items`).Scan(&itemsBefore)

	for i, step := range steps {
		cells := step.ToCells()
		if step.Partial {
			err = sw.AppendPartial(cells)
		} else {
			err = sw.Append(cells)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "step %d: %v\n", i, err)
			return 1
		}
		if step.EndEpisode {
			if err := sw.EndEpisode(step.ClearBuffers); err != nil {
				fmt.Fprintf(os.Stderr, "step %d end episode: %v\n", i, err)
				return 1
			}
		}
	}

	return printItems(writer, itemsBefore, jsonOut)
}

// #endregion run

// #region output
type itemRow struct {
	ItemID         string  `json:"item_id"`
	Table          string  `json:"table"`
	Priority       float64 `json:"priority"`
	TrajectoryJSON string  `json:"trajectory"`
}

func printItems(writer *sink.SQLiteWriter, since int64, jsonOut bool) int {
	rows, err := writer.DB().Query(
		`SELECT item_id, table_name, priority, trajectory_json FROM items ORDER BY rowid LIMIT -1 OFFSET ?`, since,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query items: %v\n", err)
		return 1
	}
	defer rows.Close()

	var items []itemRow
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(&r.ItemID, &r.Table, &r.Priority, &r.TrajectoryJSON); err != nil {
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
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			fmt.Fprintf(os.Stderr, "encode items: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("%-10s| %-12s| %s\n", "table", "priority", "trajectory")
	fmt.Printf("%-10s+%-12s+%s\n", "----------", "------------", "----------")
	for _, it := range items {
		fmt.Printf("%-10s| %-12.2f| %s\n", it.Table, it.Priority, it.TrajectoryJSON)
	}
	fmt.Printf("\n%d item(s) written\n", len(items))
	return 0
}

// #endregion output
