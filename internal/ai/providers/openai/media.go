package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/yildizm/librarian/internal/ai"
)

// Speak renders text through /v1/audio/speech and returns the audio bytes
func (p *Provider) Speak(ctx context.Context, req *ai.SpeechRequest) ([]byte, error) {
	if req == nil || req.Text == "" {
		return nil, ai.NewValidationError("text", "", "speech text is required")
	}

	speechReq := &SpeechRequest{
		Model:          firstNonEmpty(req.Model, p.config.SpeechModel),
		Input:          req.Text,
		Voice:          firstNonEmpty(req.Voice, p.config.Voice),
		ResponseFormat: req.Format,
	}

	body, err := json.Marshal(speechReq)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal request", "openai", err)
	}

	resp, err := p.post(ctx, "/v1/audio/speech", "application/json", body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to read audio", "openai", err)
	}
	return audio, nil
}

// GenerateImage renders one image through /v1/images/generations
func (p *Provider) GenerateImage(ctx context.Context, req *ai.ImageRequest) ([]byte, error) {
	if req == nil || req.Prompt == "" {
		return nil, ai.NewValidationError("prompt", "", "image prompt is required")
	}

	imgReq := &ImageGenerationRequest{
		Model:  firstNonEmpty(req.Model, p.config.ImageModel),
		Prompt: req.Prompt,
		N:      1,
		Size:   firstNonEmpty(req.Size, DefaultImageSize),
	}

	var imgResp ImageGenerationResponse
	if err := p.postJSON(ctx, "/v1/images/generations", imgReq, &imgResp); err != nil {
		return nil, err
	}

	if len(imgResp.Data) == 0 {
		return nil, ai.NewProviderError(ai.ErrTypeProvider, "image response contained no data", "openai")
	}

	data := imgResp.Data[0]
	switch {
	case data.B64JSON != "":
		raw, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode image", "openai", err)
		}
		return raw, nil
	case data.URL != "":
		return p.download(ctx, data.URL)
	default:
		return nil, ai.NewProviderError(ai.ErrTypeProvider, "image response had neither data nor url", "openai")
	}
}

// Transcribe uploads an audio file to /v1/audio/transcriptions
func (p *Provider) Transcribe(ctx context.Context, req *ai.TranscriptionRequest) (string, error) {
	if req == nil || req.FilePath == "" {
		return "", ai.NewValidationError("file_path", "", "audio file is required")
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return "", ai.NewProviderErrorWithCause(ai.ErrTypeValidation, "cannot open audio file", "openai", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return "", ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to build upload", "openai", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to read audio file", "openai", err)
	}

	fields := map[string]string{
		"model":           firstNonEmpty(req.Model, p.config.TranscriptionModel),
		"response_format": "json",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to build upload", "openai", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to build upload", "openai", err)
	}

	resp, err := p.post(ctx, "/v1/audio/transcriptions", w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var tr TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode transcription", "openai", err)
	}
	return tr.Text, nil
}

func (p *Provider) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to create download request", "openai", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "image download failed", "openai", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, ai.StatusError("openai", resp.StatusCode, "image download failed")
	}

	return io.ReadAll(resp.Body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
