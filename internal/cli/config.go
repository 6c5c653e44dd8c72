package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/config"
	"github.com/yildizm/librarian/internal/emoji"
)

// newConfigCommand creates the config command with subcommands
func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage librarian configuration",
		Long: `Manage librarian configuration files and settings.

The config command provides subcommands for initializing, viewing,
validating, and locating configuration files.`,
		Annotations: map[string]string{skipConfig: "true"},
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigPathCommand())

	return configCmd
}

// newConfigInitCommand creates the config init subcommand
func newConfigInitCommand() *cobra.Command {
	var (
		outputPath string
		minimal    bool
		force      bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new configuration file",
		Long: `Initialize a new configuration file with default values.

By default, creates a full configuration file with all options and comments.
Use --minimal for a compact configuration with only essential settings.`,
		Example: `  # Create full config in current directory
  librarian config init

  # Create minimal config
  librarian config init --minimal

  # Create config at specific path
  librarian config init --path ~/.config/librarian/config.yaml

  # Overwrite existing config
  librarian config init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath == "" {
				outputPath = ".librarian.yaml"
			}

			if !force && fileExists(outputPath) {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", outputPath)
			}

			dir := filepath.Dir(outputPath)
			if dir != "." && dir != "/" {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}

			content := config.SampleConfig()
			if minimal {
				content = config.MinimalSampleConfig()
			}

			if err := os.WriteFile(outputPath, []byte(content), 0o600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			status(out, "success", "Configuration file created at: %s", outputPath)
			if minimal {
				status(out, "info", "Created minimal configuration with essential settings")
			} else {
				status(out, "info", "Created full configuration with all options and documentation")
			}
			return nil
		},
	}

	// -o is the global output format, so the destination gets its own flag
	initCmd.Flags().StringVarP(&outputPath, "path", "p", "", "output path for config file (default: .librarian.yaml)")
	initCmd.Flags().BoolVarP(&minimal, "minimal", "m", false, "create minimal configuration")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing config file")

	return initCmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration after loading from all sources:
defaults, config files, .env and environment variable overrides.

The API key is masked.`,
		Example: `  # Show config in YAML format
  librarian config show

  # Show config in JSON format
  librarian config show --format json

  # Show config from specific file
  librarian config show --config /path/to/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			shown := *cfg
			shown.AI.APIKey = maskSecret(cfg.AI.APIKey)

			var data []byte
			switch format {
			case "json":
				data, err = json.MarshalIndent(&shown, "", "  ")
				data = append(data, '\n')
			case "yaml":
				data, err = yaml.Marshal(&shown)
			default:
				return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), data)
		},
	}

	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")

	return showCmd
}

// newConfigValidateCommand creates the config validate subcommand
func newConfigValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the configuration for syntax and semantic errors.

Checks for:
- Valid YAML syntax
- Required paths
- Valid values for enums (provider, metric, formats)
- Numeric ranges`,
		Example: `  # Validate current config
  librarian config validate

  # Validate specific config file
  librarian config validate --config /path/to/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				status(out, "error", "Configuration validation failed:")
				fmt.Fprintf(out, "   %v\n", err)
				return err
			}

			status(out, "success", "Configuration is valid")
			status(out, "statistics", "Configuration summary:")
			fmt.Fprintf(out, "   Version: %s\n", cfg.Version)
			fmt.Fprintf(out, "   AI Provider: %s (%s, %s)\n", cfg.AI.Provider, cfg.AI.ChatModel, cfg.AI.EmbedModel)
			registerProviders()
			if caps, err := ai.GlobalRegistry().Capabilities(cfg.AI.Provider); err == nil {
				fmt.Fprintf(out, "   Capabilities: %s\n", caps)
			}
			if cfg.Storage.Memory {
				fmt.Fprintf(out, "   Store: memory (%s)\n", cfg.Storage.Metric)
			} else {
				fmt.Fprintf(out, "   Store: %s [%s, %s]\n", cfg.Storage.DBPath, cfg.Storage.Collection, cfg.Storage.Metric)
			}
			fmt.Fprintf(out, "   Catalog: %s\n", cfg.Storage.CatalogPath)
			fmt.Fprintf(out, "   Output Format: %s\n", cfg.Output.DefaultFormat)
			return nil
		},
	}

	return validateCmd
}

// newConfigPathCommand creates the config path subcommand
func newConfigPathCommand() *cobra.Command {
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file search paths",
		Long: `Display the list of paths searched for configuration files.

Shows the search order and indicates which files exist.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			status(out, "index", "Configuration file search paths (in priority order):")
			fmt.Fprintln(out)

			priority := []string{"Highest", "Medium", "Lowest"}
			for i, path := range config.GetConfigPaths() {
				exists := " (not found)"
				if fileExists(path) {
					exists = " " + emoji.GetEmoji("success") + " (exists)"
				}

				fmt.Fprintf(out, "  %d. %s%s\n", i+1, path, exists)
				if i < len(priority) {
					fmt.Fprintf(out, "     Priority: %s\n", priority[i])
				}
				fmt.Fprintln(out)
			}

			if current, found := config.FindConfigFile(); found {
				status(out, "info", "Current config file: %s", current)
			} else {
				status(out, "info", "No config file found, using defaults")
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Environment variables with the LIBRARIAN_ prefix override file settings;")
			fmt.Fprintln(out, "OPENAI_API_KEY, DATA_JSON and the other deployment variables are honored too.")
		},
	}

	return pathCmd
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:3] + "****" + s[len(s)-4:]
}

// Helper function to check if file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
