package suggestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-anon-inbox/internal/domain"
)

const separator = "||"

const prompt = "Create a list of three open-ended and engaging questions formatted as a single string. " +
	"Each question should be separated by '||'. These questions are for an anonymous social messaging platform " +
	"and should be suitable for a diverse audience. Avoid personal or sensitive topics, focusing instead on " +
	"universal themes that encourage friendly interaction. For example: " +
	"'What's a hobby you've recently started?||If you could have dinner with any historical figure, who would it be?||" +
	"What's a simple thing that makes you happy?'. Reply with the questions only."

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service interface {
	Suggest(ctx context.Context) ([]string, error)
}

type service struct {
	gen Generator
}

// NewService wires the suggestion feature. A nil generator leaves it switched off.
func NewService(gen Generator) Service {
	return &service{gen: gen}
}

func (s *service) Suggest(ctx context.Context) ([]string, error) {
	if s.gen == nil {
		return nil, fmt.Errorf("suggest: not configured: %w", domain.ErrSuggestionUnavailable)
	}
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "suggestion generator failed", "err", err)
		return nil, fmt.Errorf("suggest: %v: %w", err, domain.ErrSuggestionUnavailable)
	}
	questions := Split(text)
	if len(questions) == 0 {
		return nil, fmt.Errorf("suggest: empty output: %w", domain.ErrSuggestionUnavailable)
	}
	return questions, nil
}

// Split breaks generator output on "||" and drops blanks and wrapping quotes.
func Split(text string) []string {
	var out []string
	for _, part := range strings.Split(text, separator) {
		q := strings.TrimSpace(part)
		q = strings.Trim(q, `'"`)
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}
