// Package media produces the optional audio, cover image and transcript
// side channels of a recommendation. Failures never propagate: they are
// reported as Outcome values so callers can tell "off" from "broken".
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/logger"
)

const (
	// DefaultAssetsDir is where audio and covers are written
	DefaultAssetsDir = "./assets/covers"

	// DefaultSpeechFormat is the audio container requested from the provider
	DefaultSpeechFormat = "mp3"

	// CoverFilename is the fixed name of the generated cover
	CoverFilename = "cover.png"

	coverPromptFormat = "Minimalist symbolic book cover that fits the themes of '%s'."
)

// ErrNoTitle is the failure reason for a cover requested without a picked title
var ErrNoTitle = errors.New("no title was picked")

// Status of a side channel
type Status string

const (
	StatusDisabled Status = "disabled"
	StatusProduced Status = "produced"
	StatusFailed   Status = "failed"
)

// Outcome is the result of one side channel. Path is set for produced
// files, Text for produced transcripts, Err for failures.
type Outcome struct {
	Status Status `json:"status"`
	Path   string `json:"path,omitempty"`
	Text   string `json:"text,omitempty"`
	Err    error  `json:"-"`
}

// Produced reports whether the side channel delivered its artifact
func (o Outcome) Produced() bool {
	return o.Status == StatusProduced
}

// Reason returns the failure text or an empty string
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Disabled is the outcome for a side channel that was not requested or
// has no backing capability
func Disabled() Outcome {
	return Outcome{Status: StatusDisabled}
}

func failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}

// Options configures the service
type Options struct {
	AssetsDir          string
	SpeechModel        string
	Voice              string
	SpeechFormat       string
	ImageModel         string
	ImageSize          string
	TranscriptionModel string
	Language           string
}

// Service wraps the optional provider capabilities. Any of them may be nil.
type Service struct {
	speaker     ai.Speaker
	images      ai.ImageGenerator
	transcriber ai.Transcriber
	opts        Options
	log         *logger.Logger
}

// NewService discovers media capabilities on provider by type assertion
func NewService(provider any, opts Options, log *logger.Logger) *Service {
	s := &Service{opts: opts}
	s.speaker, _ = provider.(ai.Speaker)
	s.images, _ = provider.(ai.ImageGenerator)
	s.transcriber, _ = provider.(ai.Transcriber)
	return s.init(log)
}

// NewServiceWith builds a service from explicit capabilities
func NewServiceWith(speaker ai.Speaker, images ai.ImageGenerator, transcriber ai.Transcriber, opts Options, log *logger.Logger) *Service {
	s := &Service{speaker: speaker, images: images, transcriber: transcriber, opts: opts}
	return s.init(log)
}

func (s *Service) init(log *logger.Logger) *Service {
	if s.opts.AssetsDir == "" {
		s.opts.AssetsDir = DefaultAssetsDir
	}
	if s.opts.SpeechFormat == "" {
		s.opts.SpeechFormat = DefaultSpeechFormat
	}
	if log == nil {
		log = logger.Nop()
	}
	s.log = log.WithComponent("media")
	return s
}

// CanSpeak reports whether text-to-speech is available
func (s *Service) CanSpeak() bool { return s != nil && s.speaker != nil }

// CanDrawCovers reports whether image generation is available
func (s *Service) CanDrawCovers() bool { return s != nil && s.images != nil }

// CanTranscribe reports whether speech-to-text is available
func (s *Service) CanTranscribe() bool { return s != nil && s.transcriber != nil }

// Speak renders text to recommendation.<format> in the assets directory
func (s *Service) Speak(ctx context.Context, text string) Outcome {
	if !s.CanSpeak() {
		return Disabled()
	}
	if strings.TrimSpace(text) == "" {
		return failed(errors.New("nothing to speak"))
	}

	audio, err := s.speaker.Speak(ctx, &ai.SpeechRequest{
		Model:  s.opts.SpeechModel,
		Voice:  s.opts.Voice,
		Format: s.opts.SpeechFormat,
		Text:   text,
	})
	if err != nil {
		s.log.Warn("speech failed: %v", err)
		return failed(err)
	}

	return s.save("recommendation."+s.opts.SpeechFormat, audio)
}

// CoverPrompt is the image prompt used for title
func CoverPrompt(title string) string {
	return fmt.Sprintf(coverPromptFormat, title)
}

// Cover generates a cover image for title and saves it as cover.png
func (s *Service) Cover(ctx context.Context, title string) Outcome {
	if !s.CanDrawCovers() {
		return Disabled()
	}
	if strings.TrimSpace(title) == "" {
		return failed(ErrNoTitle)
	}

	img, err := s.images.GenerateImage(ctx, &ai.ImageRequest{
		Model:  s.opts.ImageModel,
		Prompt: CoverPrompt(title),
		Size:   s.opts.ImageSize,
	})
	if err != nil {
		s.log.Warn("cover generation failed: %v", err)
		return failed(err)
	}

	return s.save(CoverFilename, img)
}

// Transcribe converts an audio file to text
func (s *Service) Transcribe(ctx context.Context, path string) Outcome {
	if !s.CanTranscribe() {
		return Disabled()
	}
	if _, err := os.Stat(path); err != nil {
		return failed(fmt.Errorf("audio file: %w", err))
	}

	text, err := s.transcriber.Transcribe(ctx, &ai.TranscriptionRequest{
		Model:    s.opts.TranscriptionModel,
		FilePath: path,
		Language: s.opts.Language,
	})
	if err != nil {
		s.log.Warn("transcription failed: %v", err)
		return failed(err)
	}

	return Outcome{Status: StatusProduced, Text: strings.TrimSpace(text)}
}

func (s *Service) save(name string, data []byte) Outcome {
	if len(data) == 0 {
		return failed(errors.New("provider returned no data"))
	}
	if err := os.MkdirAll(s.opts.AssetsDir, 0o755); err != nil {
		return failed(fmt.Errorf("failed to create assets directory: %w", err))
	}

	path := filepath.Join(s.opts.AssetsDir, name)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return failed(fmt.Errorf("failed to save %s: %w", name, err))
	}

	s.log.Debug("saved %s (%d bytes)", path, len(data))
	return Outcome{Status: StatusProduced, Path: path}
}
