package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"go-content/builddb"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded build attempts for the project",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath := filepath.Join(flagProject, "database", "builds.db")
	db, err := builddb.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.AllRecords()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No recorded builds")
		return nil
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})

	for _, rec := range records {
		fmt.Printf("%s  %-8s  %s (%s)  built=%d failed=%d skipped=%d\n",
			rec.StartTime.Format(time.RFC3339),
			rec.Status,
			rec.Package, rec.Platform,
			rec.Counters.Success, rec.Counters.Errors, rec.Counters.Skipped)
	}
	return nil
}
