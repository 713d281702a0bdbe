package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryosukesatoh/daily-arxiv/internal/config"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

// Summarizer produces the Chinese translations and analyses of a run. Every
// call is rate limited and retried.
type Summarizer struct {
	completer Completer
	retry     retry.Config
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewSummarizer allows requestsPerMinute calls per minute; zero disables
// the limit.
func NewSummarizer(c Completer, retryCfg retry.Config, requestsPerMinute int, logger *slog.Logger) *Summarizer {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &Summarizer{
		completer: c,
		retry:     retryCfg,
		limiter:   limiter,
		logger:    logging.OrDiscard(logger).With("component", "summarizer"),
	}
}

// New creates a summarizer for the configured provider.
func New(cfg *config.Config, logger *slog.Logger) (*Summarizer, error) {
	var c Completer
	llm := cfg.LLM
	switch llm.Provider {
	case "openai":
		c = NewOpenAICompleter(llm.APIKey, llm.BaseURL, llm.Model, llm.MaxTokens, llm.Temperature, llm.Timeout)
	case "anthropic":
		c = NewAnthropicCompleter(llm.APIKey, llm.BaseURL, llm.Model, llm.MaxTokens, llm.Temperature, llm.Timeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, llm.Provider)
	}
	retryCfg := retry.Config{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay, MaxDelay: cfg.Retry.MaxDelay}
	return NewSummarizer(c, retryCfg, llm.RequestsPerMinute, logger), nil
}

// ErrUnsupportedProvider is returned when an unsupported LLM provider is specified
var ErrUnsupportedProvider = fmt.Errorf("unsupported llm provider")

func (s *Summarizer) complete(ctx context.Context, task, prompt string) (string, error) {
	var answer string
	err := retry.WithBackoff(ctx, s.retry, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		out, err := s.completer.Complete(ctx, prompt)
		if err != nil {
			s.logger.Warn("llm call failed", "task", task, "error", err)
			return err
		}
		answer = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: %s: %w", task, err)
	}
	return answer, nil
}

// TranslateTitle returns the Chinese title.
func (s *Summarizer) TranslateTitle(ctx context.Context, title string) (string, error) {
	return s.complete(ctx, "translate title", titlePrompt(title))
}

// TranslateAbstract returns the Chinese abstract.
func (s *Summarizer) TranslateAbstract(ctx context.Context, abstract string) (string, error) {
	return s.complete(ctx, "translate abstract", abstractPrompt(abstract))
}

// DetailedReport analyses the paper from its extracted text.
func (s *Summarizer) DetailedReport(ctx context.Context, p fetcher.Paper, text string) (*digest.DetailedReport, error) {
	answer, err := s.complete(ctx, "detailed report", reportPrompt(p, text))
	if err != nil {
		return nil, err
	}
	report := parseReport(answer)
	if report.Empty() {
		return nil, fmt.Errorf("summarizer: detailed report for %s has no recognisable sections", p.ID)
	}
	return report, nil
}

// BasicSummary is the one-paragraph fallback when no PDF text is used.
func (s *Summarizer) BasicSummary(ctx context.Context, p fetcher.Paper) (string, error) {
	return s.complete(ctx, "basic summary", basicSummaryPrompt(p))
}

// PeriodSummary writes the overview of a weekly or monthly report.
func (s *Summarizer) PeriodSummary(ctx context.Context, in PeriodInput) (string, error) {
	return s.complete(ctx, string(in.Kind)+" summary", periodPrompt(in))
}
