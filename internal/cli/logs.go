package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/yildizm/go-logparser"

	"github.com/yildizm/librarian/internal/emoji"
	"github.com/yildizm/librarian/internal/logscan"
)

var (
	logsFormat string
	logsRecent int
	logsFollow bool
)

func newLogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [file]",
		Short: "Summarize warnings and errors in a captured log",
		Long: `Parse a captured librarian log (text or logfmt, auto-detected by default)
and report how many warnings and errors each component raised, followed by
the most recent ones. Degraded side channels and selection fallbacks show
up here.

With --follow the file is watched and new warnings and errors are printed
as they are written. Press Ctrl+C to stop.

Examples:
  librarian recommend "magie" 2> librarian.log && librarian logs librarian.log
  librarian logs --recent 20 -o json librarian.log
  librarian logs --follow librarian.log`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE:        runLogs,
	}

	cmd.Flags().StringVarP(&logsFormat, "format", "f", "auto", "log format (auto, json, logfmt, text)")
	cmd.Flags().IntVarP(&logsRecent, "recent", "n", 10, "number of recent warnings and errors to show")
	cmd.Flags().BoolVar(&logsFollow, "follow", false, "watch the file for new warnings and errors")

	return cmd
}

func runLogs(cmd *cobra.Command, args []string) error {
	filename := args[0]
	if err := validateWatchFilePath(filename); err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}

	if logsFollow {
		return runFollow(cmd.OutOrStdout(), filename)
	}

	entries, err := logscan.ParseFile(filename, logsFormat)
	if err != nil {
		return err
	}
	report := logscan.Summarize(entries, logsRecent)

	out := cmd.OutOrStdout()
	if getOutputFormat() == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return writeOutput(out, append(data, '\n'))
	}
	return writeOutput(out, []byte(formatReport(report)))
}

// formatReport renders a report with tree-style sections
func formatReport(r *logscan.Report) string {
	var b strings.Builder

	b.WriteString(emoji.Prefix("statistics") + "Log Summary\n")
	fmt.Fprintf(&b, "├─ Entries: %d\n", r.Total)
	fmt.Fprintf(&b, "├─ Warnings: %d\n", r.Warnings)
	fmt.Fprintf(&b, "├─ Errors: %d\n", r.Errors)
	if !r.Start.IsZero() && !r.End.IsZero() {
		fmt.Fprintf(&b, "└─ Span: %s → %s\n\n", r.Start.Format("15:04:05"), r.End.Format("15:04:05"))
	} else {
		b.WriteString("└─ Span: N/A\n\n")
	}

	if len(r.Components) > 0 {
		b.WriteString(emoji.Prefix("warning") + "By Component\n")
		for i, c := range r.Components {
			branch := "├─"
			if i == len(r.Components)-1 {
				branch = "└─"
			}
			fmt.Fprintf(&b, "%s %s: %d warnings, %d errors\n", branch, c.Name, c.Warnings, c.Errors)
		}
		b.WriteString("\n")
	}

	if len(r.Recent) > 0 {
		b.WriteString(emoji.Prefix("history") + "Recent\n")
		for _, e := range r.Recent {
			b.WriteString(formatEntry(e))
		}
	} else {
		b.WriteString(emoji.Prefix("success") + "No warnings or errors\n")
	}

	return b.String()
}

func formatEntry(e logscan.Entry) string {
	key := "warning"
	if e.Level >= logscan.LevelError {
		key = "error"
	}
	when := fmt.Sprintf("line %d", e.Line)
	if !e.Timestamp.IsZero() {
		when = e.Timestamp.Format("15:04:05")
	}
	component := ""
	if e.Component != "" {
		component = "[" + e.Component + "] "
	}
	return fmt.Sprintf("%s[%s] %s: %s%s\n", emoji.Prefix(key), when, e.Level, component, e.Message)
}

// runFollow prints new warning-or-worse lines until interrupted
func runFollow(out io.Writer, filename string) error {
	watcher, file, cleanup, err := setupFileWatcher(filename)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	status(out, "watch", "Following %s (Ctrl+C to stop)", filename)
	return runWatchLoop(ctx, out, watcher, file)
}

// runWatchLoop reads appended lines on every write event
func runWatchLoop(ctx context.Context, out io.Writer, watcher *fsnotify.Watcher, file *os.File) error {
	var detectedParser logparser.Parser
	line := 1

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}
			updated, n, err := processNewLines(out, file, detectedParser, line)
			if err != nil {
				GetLogger("logs").Debug("error processing new lines: %v", err)
				continue
			}
			detectedParser = updated
			line += n

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			GetLogger("logs").Debug("watcher error: %v", err)
		}
	}
}

// processNewLines parses what was appended since the last read and prints
// the entries that deserve attention. It returns the parser to reuse and
// the number of lines consumed.
func processNewLines(out io.Writer, file *os.File, detectedParser logparser.Parser, firstLine int) (logparser.Parser, int, error) {
	scanner := bufio.NewScanner(file)

	var newLines []string
	for scanner.Scan() {
		if l := scanner.Text(); l != "" {
			newLines = append(newLines, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return detectedParser, 0, fmt.Errorf("scanner error: %w", err)
	}
	if len(newLines) == 0 {
		return detectedParser, 0, nil
	}

	if detectedParser == nil {
		p, err := logscan.ParseFormat(logsFormat)
		if err != nil {
			return nil, 0, err
		}
		detectedParser = p
	}

	entries, err := logscan.Parse(detectedParser, strings.Join(newLines, "\n"), firstLine)
	if err != nil {
		return detectedParser, len(newLines), err
	}
	for _, e := range entries {
		if e.Important() {
			fmt.Fprint(out, formatEntry(e))
		}
	}
	return detectedParser, len(newLines), nil
}

// createWatcher creates and configures a new file system watcher
func createWatcher(filename string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filename); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch file: %w", err)
	}

	return watcher, nil
}

// openWatchFile opens the file positioned at its end
func openWatchFile(filename string) (*os.File, error) {
	// #nosec G304 - path is validated by caller
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to seek to end of file: %w", err)
	}

	return file, nil
}

// setupFileWatcher creates and configures file watcher
func setupFileWatcher(filename string) (*fsnotify.Watcher, *os.File, func(), error) {
	watcher, err := createWatcher(filename)
	if err != nil {
		return nil, nil, nil, err
	}

	file, err := openWatchFile(filename)
	if err != nil {
		_ = watcher.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := watcher.Close(); err != nil {
			GetLogger("logs").Debug("failed to close watcher: %v", err)
		}
		if err := file.Close(); err != nil {
			GetLogger("logs").Debug("failed to close file: %v", err)
		}
	}

	return watcher, file, cleanup, nil
}

// validateWatchFilePath validates that a file path is safe to read
func validateWatchFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot read directory, must be a file")
	}

	return nil
}
