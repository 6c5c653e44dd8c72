package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yildizm/librarian/internal/ui"
)

var (
	chatTheme  string
	chatSpeech bool
	chatCover  bool
	chatK      int
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive librarian",
		Long: `Open a conversational terminal UI. Type a request and press enter to get a
recommendation, ctrl+l to like or ctrl+d to dislike the last picked title,
and esc to quit.

Examples:
  librarian chat
  librarian chat --theme minimal --cover`,
		RunE: runChat,
	}

	cmd.Flags().StringVar(&chatTheme, "theme", "default", fmt.Sprintf("color theme %v", ui.GetAvailableThemes()))
	cmd.Flags().BoolVar(&chatSpeech, "speech", false, "read every answer aloud into the assets directory")
	cmd.Flags().BoolVar(&chatCover, "cover", false, "generate a cover for every picked title")
	cmd.Flags().IntVarP(&chatK, "top-k", "k", 0, "number of candidates to retrieve (default from config)")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	theme, ok := ui.ThemeByName(chatTheme)
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %v)", chatTheme, ui.GetAvailableThemes())
	}

	cfg := GetGlobalConfig()
	ctx, stop := signalContext()
	defer stop()

	lib, err := setupLibrarian(ctx, cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	// the TUI owns the terminal; keep warnings out of the alternate screen
	if !isVerbose() {
		baseLogger.SetOutput(io.Discard)
	}

	return ui.RunChat(lib.orchestrator, lib.prefs, ui.ChatOptions{
		K:       chatK,
		Speech:  chatSpeech || cfg.Media.Speech,
		Cover:   chatCover || cfg.Media.Cover,
		Timeout: cfg.AI.Timeout * 2,
		Theme:   theme,
		Color:   colorEnabled(),
	})
}
