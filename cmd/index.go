package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and publish the enrollment index",
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show what the enrollment store contains",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

var indexPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Copy the enrollment file into the PostgreSQL face_embeddings table",
	Long: `Replace the contents of face_embeddings with the records from the
enrollment file so that ENROLLMENT_SOURCE=postgres can serve them.

Requires DATABASE_BACKEND=postgres with the pgvector extension available.`,
	Args: cobra.NoArgs,
	RunE: runIndexPush,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexInfoCmd)
	indexCmd.AddCommand(indexPushCmd)

	indexCmd.PersistentFlags().String("file", "", "Enrollment file (default from ENROLLMENT_PATH)")
	indexInfoCmd.Flags().Bool("json", false, "Output as JSON")
}

// IndexInfo summarizes an enrollment index.
type IndexInfo struct {
	Source     string         `json:"source"`
	Records    int            `json:"records"`
	Dimension  int            `json:"dimension"`
	Students   int            `json:"students"`
	PerStudent map[string]int `json:"per_student"`
}

func describeIndex(source string, idx *enrollment.Index) IndexInfo {
	return IndexInfo{
		Source:     source,
		Records:    idx.Len(),
		Dimension:  idx.Dim(),
		Students:   len(idx.Labels()),
		PerStudent: idx.SamplesPerLabel(),
	}
}

// enrollmentConfig applies the --file flag. A file flag always selects the
// file source.
func enrollmentConfig(cmd *cobra.Command, cfg *config.Config) *config.EnrollmentConfig {
	ec := cfg.Enrollment
	if file := mustGetString(cmd, "file"); file != "" {
		ec.Source = "file"
		ec.Path = file
	}
	return &ec
}

func runIndexInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	ec := enrollmentConfig(cmd, cfg)

	var idx *enrollment.Index
	var err error
	source := ec.Path
	if ec.Source == "postgres" {
		store, openErr := openStore(ctx, cfg)
		if openErr != nil {
			return openErr
		}
		defer store.Close()
		source = "postgres:face_embeddings"
		idx, err = loadIndex(ctx, ec, store)
	} else {
		idx, err = loadIndex(ctx, ec, nil)
	}
	if err != nil {
		return err
	}

	info := describeIndex(source, idx)
	if mustGetBool(cmd, "json") {
		return outputJSON(info)
	}

	fmt.Printf("Source:     %s\n", info.Source)
	fmt.Printf("Records:    %d\n", info.Records)
	fmt.Printf("Dimension:  %d\n", info.Dimension)
	fmt.Printf("Students:   %d\n", info.Students)

	labels := make([]string, 0, len(info.PerStudent))
	for label := range info.PerStudent {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Printf("  %-16s %d samples\n", label, info.PerStudent[label])
	}
	return nil
}

func runIndexPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	ec := enrollmentConfig(cmd, cfg)

	idx, err := enrollment.LoadFile(ec.Path)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	pg, err := postgresStore(store)
	if err != nil {
		return err
	}

	records := idx.Records()
	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetDescription("Pushing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("embeddings"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	repo := postgres.NewEnrollmentRepository(pg.Pool())
	if err := repo.ReplaceAll(ctx, records, func() { _ = bar.Add(1) }); err != nil {
		return fmt.Errorf("failed to push embeddings: %w", err)
	}
	_ = bar.Finish()

	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count embeddings: %w", err)
	}
	fmt.Printf("\nface_embeddings now holds %d embeddings for %d students\n", n, len(idx.Labels()))
	return nil
}
