package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yildizm/librarian/internal/catalog"
	"github.com/yildizm/librarian/internal/emoji"
	"github.com/yildizm/librarian/internal/formatter"
	"github.com/yildizm/librarian/internal/monitor"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
)

var (
	recommendK           int
	recommendTemperature float64
	recommendSpeech      bool
	recommendCover       bool
	recommendStats       bool

	searchK           int
	searchPersonalize bool
)

func newRecommendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend [query]",
		Short: "Recommend one book for a request",
		Long: `Recommend exactly one book from the indexed catalog.

The closest candidates are retrieved, the model picks one title among them,
and the answer is justified with the stored summary. Requests that are not
about finding a book are refused; requests to write a book are turned into
a search for books on that subject.

Examples:
  librarian recommend "vreau o carte despre prietenie și magie"
  librarian recommend --cover --speech "ceva despre libertate"
  librarian recommend -o json "distopie și control social"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRecommend,
	}

	cmd.Flags().IntVarP(&recommendK, "top-k", "k", 0, "number of candidates to retrieve (default from config)")
	cmd.Flags().Float64Var(&recommendTemperature, "temperature", 0, "title selection temperature (default from config)")
	cmd.Flags().BoolVar(&recommendSpeech, "speech", false, "read the answer aloud into the assets directory")
	cmd.Flags().BoolVar(&recommendCover, "cover", false, "generate a cover image for the picked title")
	cmd.Flags().BoolVar(&recommendStats, "stats", false, "print per-step timings to stderr")

	return cmd
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	ctx, stop := signalContext()
	defer stop()

	lib, err := setupLibrarian(ctx, cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	req := recommend.Request{
		Query:  strings.Join(args, " "),
		K:      recommendK,
		Speech: recommendSpeech || cfg.Media.Speech,
		Cover:  recommendCover || cfg.Media.Cover,
	}
	if cmd.Flags().Changed("temperature") {
		t := recommendTemperature
		req.Temperature = &t
	}

	var res *recommend.Result
	err = lib.metrics.TrackOperationWithError(monitor.OperationRecommend, func() error {
		var err error
		res, err = lib.orchestrator.Recommend(ctx, req)
		return err
	})
	if recommendStats {
		defer func() {
			if serr := writeStats(cmd.ErrOrStderr(), lib.metrics); serr != nil {
				GetLogger("recommend").Warn("failed to print timings: %v", serr)
			}
		}()
	}
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	f, err := formatter.New(getOutputFormat(), colorEnabled())
	if err != nil {
		return err
	}
	out, err := f.FormatRecommendation(res)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), out)
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the ranked candidates for a query",
		Long: `Show the catalog candidates closest to a query with their distances and
similarity scores, without asking the model to pick one.

Examples:
  librarian search "război și supraviețuire"
  librarian search -k 10 --personalize -o csv "aventură"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of candidates (default from config)")
	cmd.Flags().BoolVar(&searchPersonalize, "personalize", false, "apply likes and dislikes to the ranking")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetGlobalConfig()
	ctx, stop := signalContext()
	defer stop()

	lib, err := setupLibrarian(ctx, cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	query := strings.Join(args, " ")
	candidates, err := lib.retriever.Search(ctx, query, searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchPersonalize {
		set, err := lib.prefs.Load()
		if err != nil {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		retrieval.Personalize(candidates, retrieval.Preferences{Liked: set.Liked, Disliked: set.Disliked}, cfg.Retrieval.Delta)
	}

	f, err := formatter.New(getOutputFormat(), colorEnabled())
	if err != nil {
		return err
	}
	out, err := f.FormatCandidates(query, candidates)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), out)
}

func newLookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [title]",
		Short: "Print the stored summary for a title",
		Long: `Print the full stored summary for a title. Matching ignores case,
diacritics and punctuation, then falls back to a partial match.

Examples:
  librarian lookup "The Hobbit"
  librarian lookup "mandrie si prejudecata"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lookup := catalog.NewFileLookup(GetGlobalConfig().Storage.CatalogPath)
			summary, err := lookup.SummaryByTitle(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), []byte(summary+"\n"))
		},
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func writeOutput(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// status prints an emoji-prefixed line
func status(w io.Writer, key, format string, args ...interface{}) {
	fmt.Fprintf(w, emoji.Prefix(key)+format+"\n", args...)
}
