package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/structured-writer/internal/replay"
	"github.com/danielpatrickdp/structured-writer/internal/sink"
)

// #region main
func main() {
	fixturePath := flag.String("fixture", "", "path to a fixture JSON file with patterns, a step stream, and expected_items")
	dbPath := flag.String("db", "", "optional path to a SQLite database to persist the replayed items into")
	jsonOut := flag.Bool("json", false, "print the comparison as JSON instead of a table")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--db path/to/out.db] [--json]")
		os.Exit(2)
	}

	os.Exit(run(*fixturePath, *dbPath, *jsonOut))
}

// #endregion main

// #region run
func run(fixturePath, dbPath string, jsonOut bool) int {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	summary, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	if dbPath != "" {
		if err := persist(dbPath, summary.ItemsWritten); err != nil {
			fmt.Fprintf(os.Stderr, "persist to db: %v\n", err)
			return 1
		}
	}

	mismatches := replay.Diff(summary.ItemsWritten, f.ExpectedItems)
	printComparison(f, summary, mismatches, jsonOut)

	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

// #endregion run

// #region persist
// replayedColumn mirrors the trajectory_json shape a SQLiteWriter.CreateItem
// call would produce, with synthetic cell ids standing in for the real
// CellRefs a live engine run would have assigned.
type replayedColumn struct {
	CellIDs  []string `json:"cell_ids"`
	Squeezed bool     `json:"squeezed"`
}

func persist(dbPath string, items []replay.RecordedItem) error {
	writer, err := sink.NewSQLiteWriter(dbPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, item := range items {
		trajectory := make([]replayedColumn, 0, len(item.Columns))
		for _, col := range item.Columns {
			ids := make([]string, len(col.Values))
			for i, v := range col.Values {
				ids[i] = fmt.Sprintf("replayed:%d", v)
			}
			trajectory = append(trajectory, replayedColumn{CellIDs: ids, Squeezed: col.Squeezed})
		}
		payload, err := json.Marshal(trajectory)
		if err != nil {
			return err
		}
		if _, err := writer.DB().Exec(
			`INSERT INTO items (item_id, table_name, priority, trajectory_json, created_at) VALUES (lower(hex(randomblob(16))), ?, ?, ?, datetime('now'))`,
			item.Table, 1.0, string(payload),
		); err != nil {
			return err
		}
	}
	return nil
}

// #endregion persist

// #region output
type comparisonReport struct {
	Description  string   `json:"description"`
	TotalSteps   int      `json:"total_steps"`
	ItemsWritten int      `json:"items_written"`
	ItemsWanted  int      `json:"items_wanted"`
	Mismatches   []string `json:"mismatches,omitempty"`
	Passed       bool     `json:"passed"`
}

func printComparison(f *replay.Fixture, summary replay.ReplaySummary, mismatches []string, jsonOut bool) {
	report := comparisonReport{
		Description:  f.Description,
		TotalSteps:   summary.TotalSteps,
		ItemsWritten: len(summary.ItemsWritten),
		ItemsWanted:  len(f.ExpectedItems),
		Mismatches:   mismatches,
		Passed:       len(mismatches) == 0,
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		return
	}

	fmt.Printf("%s\n", report.Description)
	fmt.Printf("steps replayed : %d\n", report.TotalSteps)
	fmt.Printf("items written  : %d\n", report.ItemsWritten)
	fmt.Printf("items expected : %d\n", report.ItemsWanted)
	if report.Passed {
		fmt.Println("result         : PASS")
		return
	}
	fmt.Println("result         : FAIL")
	for _, m := range mismatches {
		fmt.Printf("  - %s\n", m)
	}
}

// #endregion output
