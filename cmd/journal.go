package cmd

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/cwtone/internal/sink"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the most recent decoded events",
	Long:  `Show the newest events stored in the SQLite journal (journal_path), oldest first.`,
	Args:  cobra.NoArgs,
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntP("count", "n", 50, "number of events to show")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if settings.JournalPath == "" {
		return errors.New("journal_path is not set in the config file")
	}
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	j, err := sink.OpenJournal(settings.JournalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	events, err := j.Recent(count)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		text := e.Character
		if e.Kind == "unrecognized" {
			text = "[" + e.Code + "]"
		}
		fmt.Fprintf(out, "%s  %-12s %-6q %-8s %s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05.000"), e.Kind, text, e.Code, humanize.Time(e.Timestamp))
	}
	return nil
}
