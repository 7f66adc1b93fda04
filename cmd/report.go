package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the attendance report",
	Long: `Print every attendance mark joined with student details, newest first.

Examples:
  face-attendance report
  face-attendance report --date 2025-01-01
  face-attendance report --json > attendance.json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("date", "", "Only show marks for this date (YYYY-MM-DD)")
	reportCmd.Flags().Bool("json", false, "Output as JSON")
}

// filterByDate keeps rows for date, or all rows when date is empty. The result
// is never nil.
func filterByDate(rows []database.AttendanceRow, date string) []database.AttendanceRow {
	out := make([]database.AttendanceRow, 0, len(rows))
	for _, row := range rows {
		if date == "" || row.Date == date {
			out = append(out, row)
		}
	}
	return out
}

func runReport(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.AttendanceView(ctx)
	if err != nil {
		return fmt.Errorf("failed to load attendance: %w", err)
	}
	rows = filterByDate(rows, date)

	if jsonOutput {
		return outputJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No attendance recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tROLL\tNAME\tPHONE\tEMAIL\tSTATUS")
	fmt.Fprintln(w, "----\t----\t----\t----\t-----\t-----\t------")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Date, r.Time, r.Roll, r.Name, r.Phone, r.Email, r.Status)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("\nTotal: %d marks\n", len(rows))
	return nil
}
