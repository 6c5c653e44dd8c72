package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yildizm/librarian/internal/config"
	"github.com/yildizm/librarian/internal/emoji"
	"github.com/yildizm/librarian/internal/logger"
)

// skipConfig marks commands that must run without a valid configuration
const skipConfig = "skip-config"

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	noEmoji   bool
	outputFmt string

	globalConfig *config.Config
	baseLogger   = logger.NewWithCallback("cli", isVerbose)
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "librarian",
		Short: "Smart Librarian - grounded book recommendations",
		Long: `Smart Librarian recommends books from a local catalog. A request is matched
against the indexed summaries, the model picks exactly one title from the
closest candidates, and the answer is justified with the stored summary.

Likes and dislikes nudge future rankings, every call is logged to a CSV
history, and answers can optionally be read aloud or get a generated cover.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}
			emoji.SetEmojiDisabled(noEmoji)

			if skipsConfig(cmd) {
				return nil
			}
			return initConfig(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json, markdown, csv)")

	// Add subcommands
	rootCmd.AddCommand(newRecommendCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newLookupCommand())
	rootCmd.AddCommand(newFeedbackCommand())
	rootCmd.AddCommand(newPrefsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newIndexCommand())
	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newTranscribeCommand())
	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// initConfig loads .env and the configuration, then applies the output
// settings that were not given as flags
func initConfig(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	globalConfig = cfg

	if !cmd.Flag("output").Changed && cfg.Output.DefaultFormat != "" {
		outputFmt = cfg.Output.DefaultFormat
	}
	if !cmd.Flag("verbose").Changed && cfg.Output.Verbose {
		verbose = true
	}
	if !cmd.Flag("no-emoji").Changed && !cfg.Output.ShowEmoji {
		noEmoji = true
		emoji.SetEmojiDisabled(true)
	}

	format, err := logger.ParseFormat(cfg.Output.LogFormat)
	if err != nil {
		return err
	}
	baseLogger.SetFormat(format)
	return nil
}

func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfig] == "true" {
			return true
		}
	}
	return false
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Long:        "Display version number, build commit, date, and runtime information",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Smart Librarian %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// Global helpers
func isVerbose() bool {
	return verbose
}

func getOutputFormat() string {
	return strings.ToLower(outputFmt)
}

// GetGlobalConfig returns the loaded configuration, or defaults before load
func GetGlobalConfig() *config.Config {
	if globalConfig == nil {
		return config.DefaultConfig()
	}
	return globalConfig
}

// GetLogger returns a component logger sharing the CLI sink
func GetLogger(component string) *logger.Logger {
	return baseLogger.WithComponent(component)
}

// colorEnabled resolves --no-color, NO_COLOR and output.color_mode
func colorEnabled() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch GetGlobalConfig().Output.ColorMode {
	case "never":
		return false
	case "always":
		return true
	default:
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}
