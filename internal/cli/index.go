package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/librarian/internal/index"
	"github.com/yildizm/librarian/internal/vectorstore"
)

var (
	indexWatch bool
	indexReset bool
)

func newIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and inspect the vector catalog",
	}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the catalog into the vector store",
		Long: `Read the catalog JSON, embed every record in batches and store the vectors
with their metadata. With --watch the catalog is rebuilt every time the file
is saved, until interrupted.

Examples:
  librarian index build
  librarian index build --reset=false
  librarian index build --watch`,
		RunE: runIndexBuild,
	}
	buildCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "rebuild whenever the catalog file changes")
	buildCmd.Flags().BoolVar(&indexReset, "reset", true, "drop the collection before rebuilding (default from config)")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show store location, collection and record count",
		RunE:  runIndexInfo,
	}

	cmd.AddCommand(buildCmd)
	cmd.AddCommand(infoCmd)

	return cmd
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg := *GetGlobalConfig()
	if cmd.Flags().Changed("reset") {
		cfg.Index.Reset = indexReset
	}
	if cfg.Storage.Memory {
		return fmt.Errorf("storage.memory is enabled; the in-memory store is indexed on every start")
	}

	ctx, stop := signalContext()
	defer stop()

	provider, err := createAIProvider(&cfg)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Close() }()

	store, err := openStore(ctx, &cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	log := GetLogger("index")
	builder := newIndexBuilder(&cfg, provider, store, log)
	out := cmd.OutOrStdout()

	res, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	if err := printBuildResult(out, res); err != nil {
		return err
	}

	if !indexWatch {
		return nil
	}

	status(out, "watch", "Watching %s for changes (Ctrl+C to stop)", builder.CatalogPath())
	err = builder.Watch(ctx, cfg.Index.Debounce, func(res *index.Result, err error) {
		if err != nil {
			log.Error("rebuild failed: %v", err)
			return
		}
		if perr := printBuildResult(out, res); perr != nil {
			log.Warn("%v", perr)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printBuildResult(w io.Writer, res *index.Result) error {
	if getOutputFormat() == "json" {
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return writeOutput(w, append(data, '\n'))
	}

	status(w, "success", "Indexed %d records from %s in %s (%d batches, %d in store)",
		res.Indexed, res.Catalog, res.Duration.Round(time.Millisecond), res.Batches, res.Count)
	return nil
}

func runIndexInfo(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	ctx, stop := signalContext()
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	info := vectorstore.Info{Collection: cfg.Storage.Collection, Metric: store.Metric()}
	if d, ok := store.(vectorstore.Describer); ok {
		if info, err = d.Info(ctx); err != nil {
			return fmt.Errorf("failed to describe store: %w", err)
		}
	} else if info.Count, err = store.Count(ctx); err != nil {
		return fmt.Errorf("failed to count records: %w", err)
	}

	out := cmd.OutOrStdout()
	if getOutputFormat() == "json" {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return writeOutput(out, append(data, '\n'))
	}

	status(out, "index", "Vector catalog")
	fmt.Fprintf(out, "├─ Backend: %s\n", info.Backend)
	if info.Path != "" {
		fmt.Fprintf(out, "├─ Path: %s\n", info.Path)
	}
	fmt.Fprintf(out, "├─ Collection: %s\n", info.Collection)
	fmt.Fprintf(out, "├─ Metric: %s\n", info.Metric)
	fmt.Fprintf(out, "└─ Records: %d\n", info.Count)
	return nil
}
