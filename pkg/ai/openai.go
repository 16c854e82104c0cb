package ai

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

// Generator is the text-generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var _ Generator = (*Service)(nil)

// Service talks to an OpenAI-compatible completions endpoint.
type Service struct {
	client *openai.Client
	logger *log.Logger
	model  string
}

func NewOpenAIService(logger *log.Logger, apiKey string, baseURL string, model string) *Service {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &Service{
		client: &client,
		logger: logger,
		model:  model,
	}
}

func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: s.model,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("backend returned no completion choices")
	}

	return completion.Choices[0].Message.Content, nil
}

// classifyError maps a transport error onto the taxonomy the retry loop
// understands. Only quota backpressure gets special treatment.
func classifyError(err error) error {
	var apierr *openai.Error
	if !errors.As(err, &apierr) || apierr.StatusCode != http.StatusTooManyRequests {
		return err
	}

	var hint time.Duration
	if apierr.Response != nil {
		if v := apierr.Response.Header.Get("Retry-After"); v != "" {
			if secs, perr := strconv.Atoi(v); perr == nil {
				hint = time.Duration(secs) * time.Second
			}
		}
	}
	if hint == 0 {
		hint = parseRetryHint(err.Error())
	}

	return &RateLimitedError{RetryAfter: hint, Err: err}
}
