package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/librarian/internal/formatter"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/monitor"
	"github.com/yildizm/librarian/internal/recommend"
)

var transcribeRecommend bool

func newTranscribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe [audio-file]",
		Short: "Transcribe a recorded request",
		Long: `Convert a recorded spoken request to text using the provider's speech
recognition. With --recommend the transcript is used as the request for a
recommendation.

Examples:
  librarian transcribe request.m4a
  librarian transcribe --recommend request.wav`,
		Args: cobra.ExactArgs(1),
		RunE: runTranscribe,
	}

	cmd.Flags().BoolVarP(&transcribeRecommend, "recommend", "r", false, "recommend a book for the transcript")

	return cmd
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot access audio file: %w", err)
	}

	cfg := GetGlobalConfig()
	ctx, stop := signalContext()
	defer stop()

	lib, err := setupLibrarian(ctx, cfg)
	if err != nil {
		return err
	}
	defer lib.Close()

	if !lib.media.CanTranscribe() {
		return fmt.Errorf("provider %s cannot transcribe audio", cfg.AI.Provider)
	}

	start := time.Now()
	outcome := lib.media.Transcribe(ctx, path)
	lib.metrics.Record(monitor.OperationTranscribe, time.Since(start), outcome.Status == media.StatusFailed)
	GetLogger("transcribe").Debug("transcribed %s in %s", path, time.Since(start).Round(time.Millisecond))
	if outcome.Status != media.StatusProduced {
		return fmt.Errorf("transcription failed: %s", outcome.Reason())
	}

	out := cmd.OutOrStdout()
	if !transcribeRecommend {
		if getOutputFormat() == "json" {
			data, err := json.Marshal(map[string]string{"file": path, "transcript": outcome.Text})
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			return writeOutput(out, append(data, '\n'))
		}
		return writeOutput(out, []byte(outcome.Text+"\n"))
	}

	if outcome.Text == "" {
		return fmt.Errorf("transcript is empty")
	}
	if getOutputFormat() == "text" {
		status(out, "mic", "%s", outcome.Text)
	}

	res, err := lib.orchestrator.Recommend(ctx, recommend.Request{
		Query:  outcome.Text,
		Speech: cfg.Media.Speech,
		Cover:  cfg.Media.Cover,
	})
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	f, err := formatter.New(getOutputFormat(), colorEnabled())
	if err != nil {
		return err
	}
	data, err := f.FormatRecommendation(res)
	if err != nil {
		return err
	}
	return writeOutput(out, data)
}
