// Package transcribe is the boundary to the remote speech-to-text service.
// It converts provider-specific failures into apierr sentinels so the
// scheduler can classify them without knowing the provider.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-scribe/internal/apierr"
)

// Request carries per-run transcription parameters from the manifest.
type Request struct {
	Model          string
	ResponseFormat string
	Prompt         string
}

// Transcriber transcribes a single audio chunk to text.
type Transcriber interface {
	// Transcribe converts an audio file to text.
	// audioPath must be a file in a format accepted by the provider.
	Transcribe(ctx context.Context, audioPath string, req Request) (string, error)
}

// audioTranscriber is an internal interface for OpenAI audio transcription.
// *openai.Client implements this implicitly.
// This allows injecting mocks in tests.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber      = (*OpenAITranscriber)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAITranscriber transcribes audio using OpenAI's transcription API.
// Retries are owned by the scheduler, not the transcriber: each Transcribe
// call is a single attempt.
type OpenAITranscriber struct {
	client audioTranscriber
}

// NewOpenAITranscriber creates a new OpenAITranscriber.
// The client is injected to enable testing with mocks.
func NewOpenAITranscriber(client *openai.Client) *OpenAITranscriber {
	return &OpenAITranscriber{client: client}
}

// newWithClient constructs a transcriber around any audioTranscriber.
// Used by tests via export_test.go.
func newWithClient(client audioTranscriber) *OpenAITranscriber {
	return &OpenAITranscriber{client: client}
}

// Transcribe performs one transcription attempt against OpenAI's API.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string, req Request) (string, error) {
	format := openai.AudioResponseFormatJSON
	if req.ResponseFormat == "text" {
		format = openai.AudioResponseFormatText
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    req.Model,
		FilePath: audioPath,
		Format:   format,
		Prompt:   req.Prompt,
	})
	if err != nil {
		return "", classifyError(err)
	}
	return resp.Text, nil
}

// classifyError maps OpenAI API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// Distinguish between temporary rate limit and quota exceeded (billing issue).
			// Quota exceeded should not be retried - it requires user action.
			if strings.Contains(apiErr.Message, "quota") ||
				strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrServerError)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
