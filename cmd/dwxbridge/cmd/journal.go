package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/dwxconnect/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite journal",
	Long: `Query messages and sent commands recorded by "dwxbridge run".

Examples:
  dwxbridge journal command <id>
  dwxbridge journal commands 2024-01-15
  dwxbridge journal messages today`,
}

var journalCommandCmd = &cobra.Command{
	Use:   "command <id>",
	Short: "Show one sent command",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalCommand,
}

var journalCommandsCmd = &cobra.Command{
	Use:   "commands <YYYY-MM-DD|today>",
	Short: "List commands sent on a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalCommands,
}

var journalMessagesCmd = &cobra.Command{
	Use:   "messages <YYYY-MM-DD|today>",
	Short: "List terminal messages received on a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalMessages,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalCommandCmd)
	journalCmd.AddCommand(journalCommandsCmd)
	journalCmd.AddCommand(journalMessagesCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./dwxbridge.sqlite", "path to SQLite journal DB")
}

func runJournalCommand(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetCommand(args[0])
	if err != nil {
		return fmt.Errorf("get command: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatCommandOrg(rec))
	return nil
}

func runJournalCommands(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListCommandsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query commands: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatCommandsOrg(recs))
	return nil
}

func runJournalMessages(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListMessagesBetween(start, end)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatMessagesOrg(recs))
	return nil
}

// dayBounds returns [midnight, next midnight) in loc. "today" means the
// current day in loc.
func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	if day == "today" {
		day = time.Now().In(loc).Format("2006-01-02")
	}
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
