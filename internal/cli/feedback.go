package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/librarian/internal/emoji"
	"github.com/yildizm/librarian/internal/formatter"
	"github.com/yildizm/librarian/internal/history"
	"github.com/yildizm/librarian/internal/prefs"
)

var historyLimit int

func newFeedbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record that you liked or disliked a title",
		Long: `Record a like or dislike for a title. Liked titles rank slightly higher
in later searches and disliked titles slightly lower. A title is never
both liked and disliked: the latest feedback wins.`,
	}

	cmd.AddCommand(newFeedbackSubcommand("like", true))
	cmd.AddCommand(newFeedbackSubcommand("dislike", false))

	return cmd
}

func newFeedbackSubcommand(name string, liked bool) *cobra.Command {
	return &cobra.Command{
		Use:     name + " [title]",
		Short:   fmt.Sprintf("Mark a title as %sd", name),
		Example: fmt.Sprintf("  librarian feedback %s \"The Hobbit\"", name),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title must not be empty")
			}

			store := prefs.NewStore(GetGlobalConfig().Storage.PrefsPath)
			set, err := store.RecordFeedback(title, liked)
			if err != nil {
				return fmt.Errorf("failed to record feedback: %w", err)
			}

			status(cmd.OutOrStdout(), name, "%sd %q (%d liked, %d disliked)",
				strings.ToUpper(name[:1])+name[1:], title, len(set.Liked), len(set.Disliked))
			return nil
		},
	}
}

func newPrefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect stored preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List liked and disliked titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := prefs.NewStore(GetGlobalConfig().Storage.PrefsPath)
			set, err := store.Load()
			if err != nil {
				return fmt.Errorf("failed to load preferences: %w", err)
			}

			if getOutputFormat() == "json" {
				data, err := json.MarshalIndent(set, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				return writeOutput(cmd.OutOrStdout(), append(data, '\n'))
			}

			return writeOutput(cmd.OutOrStdout(), []byte(formatPrefs(set, store.Path())))
		},
	})

	return cmd
}

func formatPrefs(set prefs.Set, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Preferences (%s)\n", path)

	sections := []struct {
		key    string
		label  string
		titles []string
	}{
		{"like", "Liked", set.Liked},
		{"dislike", "Disliked", set.Disliked},
	}
	for i, s := range sections {
		branch, indent := "├─", "│  "
		if i == len(sections)-1 {
			branch, indent = "└─", "   "
		}
		fmt.Fprintf(&b, "%s %s %s (%d)\n", branch, strings.TrimSpace(emoji.Prefix(s.key)), s.label, len(s.titles))
		for j, t := range s.titles {
			leaf := "├─"
			if j == len(s.titles)-1 {
				leaf = "└─"
			}
			fmt.Fprintf(&b, "%s%s %s\n", indent, leaf, t)
		}
	}
	return b.String()
}

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent recommendation calls",
		Long: `Show the latest rows of the interaction history: when a request was
made, what was asked, and which title was picked with its score.

Examples:
  librarian history
  librarian history -n 50 -o csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := history.NewLog(GetGlobalConfig().Storage.HistoryPath)
			entries, err := log.Last(historyLimit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			f, err := formatter.New(getOutputFormat(), colorEnabled())
			if err != nil {
				return err
			}
			out, err := f.FormatHistory(entries)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of rows to show (0 for all)")

	return cmd
}
