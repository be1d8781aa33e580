package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var (
	ErrSummarizerFailure     = errors.New("summarization failed")
	ErrSummarizerUnavailable = errors.New("summarizer temporarily unavailable")
)

// warmupText is summarized once at startup so the remote model gets loaded.
const warmupText = "A book catalog stores titles, authors and genres of books together with " +
	"the reviews written by readers. Each review carries a rating and a short text."

// specialTokens are removed from generated text.
var specialTokens = []string{"<pad>", "</s>", "<unk>", "<s>"}

// Summarizer produces a short abstractive summary of a text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type generationParameters struct {
	MinLength     int     `json:"min_length"`
	MaxLength     int     `json:"max_length"`
	NumBeams      int     `json:"num_beams"`
	LengthPenalty float64 `json:"length_penalty"`
	EarlyStopping bool    `json:"early_stopping"`
}

type inferenceRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
	Options    map[string]bool      `json:"options,omitempty"`
}

type inferenceResult struct {
	SummaryText   string `json:"summary_text"`
	GeneratedText string `json:"generated_text"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// HTTPSummarizer calls a seq2seq model served behind an inference endpoint
// speaking the Hugging Face inference API format. Calls go through a circuit
// breaker shared by all requests.
type HTTPSummarizer struct {
	logger *zap.Logger
	config SummarizerConfig
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPSummarizer provides an instance of HTTPSummarizer.
func NewHTTPSummarizer(logger *zap.Logger, config SummarizerConfig, client *http.Client) *HTTPSummarizer {
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	url := strings.TrimRight(config.Endpoint, "/")
	if len(config.Model) != 0 {
		url = url + "/models/" + config.Model
	}

	s := &HTTPSummarizer{
		logger: logger,
		config: config,
		url:    url,
		client: client,
	}

	s.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "summarizer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// cancelled or expired caller contexts are not failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			SummarizerBreakerState.Set(breakerStateToFloat(to))
		},
	})
	return s
}

// Summarize prefixes and truncates the text, asks the model for a summary
// then cleans and caps the generated output.
func (s *HTTPSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return "", ErrEmptyText
	}

	payload := inferenceRequest{
		Inputs: truncateWords(s.config.Prefix+text, s.config.MaxInputTokens),
		Parameters: generationParameters{
			MinLength:     s.config.MinLength,
			MaxLength:     s.config.MaxLength,
			NumBeams:      s.config.NumBeams,
			LengthPenalty: s.config.LengthPenalty,
			EarlyStopping: s.config.EarlyStopping,
		},
		Options: map[string]bool{"wait_for_model": true},
	}

	start := time.Now()
	body, err := s.cb.Execute(func() ([]byte, error) {
		return s.call(ctx, payload)
	})
	SummarizerDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			SummarizerErrors.WithLabelValues("unavailable").Inc()
			return "", fmt.Errorf("%w: %v", ErrSummarizerUnavailable, err)
		}
		SummarizerErrors.WithLabelValues("call").Inc()
		return "", err
	}

	summary, err := decodeSummary(body)
	if err != nil {
		SummarizerErrors.WithLabelValues("decode").Inc()
		return "", err
	}
	summary = truncateWords(cleanGeneratedText(summary), s.config.MaxLength)
	if len(summary) == 0 {
		SummarizerErrors.WithLabelValues("empty").Inc()
		return "", fmt.Errorf("%w: empty model output", ErrSummarizerFailure)
	}
	return summary, nil
}

func (s *HTTPSummarizer) call(ctx context.Context, payload inferenceRequest) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrSummarizerFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrSummarizerFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if len(s.config.Token) != 0 {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrSummarizerFailure, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrSummarizerFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrSummarizerFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		var ie inferenceError
		if json.Unmarshal(body, &ie) == nil && len(ie.Error) != 0 {
			return nil, fmt.Errorf("%w: status %d: %s", ErrSummarizerFailure, resp.StatusCode, ie.Error)
		}
		return nil, fmt.Errorf("%w: status %d", ErrSummarizerFailure, resp.StatusCode)
	}
	return body, nil
}

// Warmup runs one summarization on a fixed text. Failures are only logged.
func (s *HTTPSummarizer) Warmup(ctx context.Context) {
	start := time.Now()
	if _, err := s.Summarize(ctx, warmupText); err != nil {
		s.logger.Warn("summarizer warmup failed", zap.Error(err))
		return
	}
	s.logger.Info("summarizer warmup done", zap.Duration("duration", time.Since(start)))
}

// decodeSummary accepts a list or a single object of generation results.
func decodeSummary(body []byte) (string, error) {
	var results []inferenceResult
	if err := json.Unmarshal(body, &results); err != nil {
		var single inferenceResult
		if err2 := json.Unmarshal(body, &single); err2 != nil {
			return "", fmt.Errorf("%w: decoding response: %v", ErrSummarizerFailure, err)
		}
		results = []inferenceResult{single}
	}

	for _, r := range results {
		if len(r.SummaryText) != 0 {
			return r.SummaryText, nil
		}
		if len(r.GeneratedText) != 0 {
			return r.GeneratedText, nil
		}
	}
	return "", fmt.Errorf("%w: empty model output", ErrSummarizerFailure)
}

func cleanGeneratedText(text string) string {
	for _, tok := range specialTokens {
		text = strings.ReplaceAll(text, tok, "")
	}
	return strings.TrimSpace(text)
}

// truncateWords keeps at most limit whitespace separated words.
func truncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if limit <= 0 || len(words) <= limit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:limit], " ")
}
