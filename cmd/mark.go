package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var markCmd = &cobra.Command{
	Use:   "mark <roll>",
	Short: "Mark a student present by roll number",
	Long: `Record attendance for one student without the camera. The same
once-per-day rule applies: a second mark on the same date is skipped.

Examples:
  face-attendance mark S01
  face-attendance mark S01 --date 2025-01-01 --time 09:15:00 --status Late`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().String("date", "", "Date to mark (YYYY-MM-DD, default today)")
	markCmd.Flags().String("time", "", "Time to mark (HH:MM:SS, default now)")
	markCmd.Flags().String("status", database.DefaultStatus, "Attendance status")
	markCmd.Flags().Bool("json", false, "Output as JSON")
}

// MarkResult is the JSON output of the mark command.
type MarkResult struct {
	Roll    string `json:"roll"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
}

// buildMarkRequest stamps now and applies any explicit overrides.
func buildMarkRequest(roll, date, clock, status string, now time.Time) database.MarkRequest {
	req := database.NewMarkRequest(roll, now)
	if date != "" {
		req.Date = date
	}
	if clock != "" {
		req.Time = clock
	}
	if status != "" {
		req.Status = status
	}
	return req
}

func runMark(cmd *cobra.Command, args []string) error {
	req := buildMarkRequest(args[0],
		mustGetString(cmd, "date"), mustGetString(cmd, "time"), mustGetString(cmd, "status"), time.Now())
	if _, err := req.Normalize(); err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.Load()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	outcome, err := store.Mark(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to mark %s: %w", req.Roll, err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(MarkResult{
			Roll: req.Roll, Date: req.Date, Time: req.Time, Status: req.Status, Outcome: outcome.String(),
		})
	}

	switch outcome {
	case database.Inserted:
		fmt.Printf("Marked %s %s on %s at %s\n", req.Roll, req.Status, req.Date, req.Time)
	case database.DuplicateSkipped:
		fmt.Printf("%s is already marked on %s\n", req.Roll, req.Date)
	case database.UnknownIdentity:
		fmt.Printf("No student with roll %s\n", req.Roll)
	}
	return nil
}
