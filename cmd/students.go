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

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	Args:  cobra.NoArgs,
	RunE:  runStudents,
}

var studentsAddCmd = &cobra.Command{
	Use:   "add <roll>",
	Short: "Add or update a student record",
	Long: `Create the identity row a recognized label resolves to. Running it again
for the same roll updates the contact details.

Example:
  face-attendance students add S01 --name "Ana Novak" --email ana@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runStudentsAdd,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsAddCmd)

	studentsCmd.Flags().Bool("json", false, "Output as JSON")

	studentsAddCmd.Flags().String("name", "", "Student name")
	studentsAddCmd.Flags().String("phone", "", "Phone number")
	studentsAddCmd.Flags().String("email", "", "Email address")
}

func runStudents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	if mustGetBool(cmd, "json") {
		if ids == nil {
			ids = []database.Identity{}
		}
		return outputJSON(ids)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROLL\tNAME\tPHONE\tEMAIL")
	fmt.Fprintln(w, "----\t----\t-----\t-----")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id.Roll, id.Name, id.Phone, id.Email)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing students: %w", err)
	}
	fmt.Printf("\nTotal: %d students\n", len(ids))
	return nil
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id := database.Identity{
		Roll:  args[0],
		Name:  mustGetString(cmd, "name"),
		Phone: mustGetString(cmd, "phone"),
		Email: mustGetString(cmd, "email"),
	}
	n, err := store.SaveIdentity(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to save student %s: %w", id.Roll, err)
	}
	fmt.Printf("Saved student %s (id %d)\n", id.Roll, n)
	return nil
}
