package insight

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/resilience"
)

const systemPrompt = `You are an Amazon marketplace analyst. You receive one audit ` +
	`recommendation with its computed metrics. Write two or three plain sentences ` +
	`explaining the recommendation to a brand manager. Use only the numbers given. ` +
	`Percentages are fractions (0.25 means 25%).`

// modelPricing holds per-million-token pricing {input, output} for known models.
var modelPricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
}

// AnthropicSummarizer generates insights with the Anthropic Messages API.
type AnthropicSummarizer struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	backoff   resilience.Backoff
	breaker   *resilience.Breaker
}

// NewAnthropic creates a summarizer limited to ic.RequestsPerMinute. Rate
// limits and server errors are retried; after ic.BreakerFailures
// consecutive failures calls fail fast for a minute. Extra request options
// are passed to the SDK client.
func NewAnthropic(cfg config.AnthropicConfig, ic config.InsightConfig, opts ...option.RequestOption) *AnthropicSummarizer {
	rpm := ic.RequestsPerMinute
	if rpm <= 0 {
		rpm = 50
	}
	backoff := resilience.DefaultBackoff()
	if ic.MaxAttempts > 0 {
		backoff.Attempts = ic.MaxAttempts
	}
	failures := ic.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	// Summarize retries; the SDK does not.
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.Key), option.WithMaxRetries(0)}, opts...)
	return &AnthropicSummarizer{
		client:    sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		backoff:   backoff,
		breaker:   resilience.NewBreaker("anthropic", failures, time.Minute),
	}
}

// Summarize implements Summarizer.
func (a *AnthropicSummarizer) Summarize(ctx context.Context, req Request) (string, error) {
	text, err := resilience.Call(ctx, a.breaker, func(ctx context.Context) (string, error) {
		return resilience.Retry(ctx, a.backoff, retryable, func(ctx context.Context) (string, error) {
			return a.send(ctx, req)
		})
	})
	if err != nil {
		return "", eris.Wrapf(err, "insight: summarize %s", req.Subject)
	}
	return text, nil
}

func (a *AnthropicSummarizer) send(ctx context.Context, req Request) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "rate limit wait")
	}

	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt(req)))},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	logUsage(a.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	return strings.TrimSpace(sb.String()), nil
}

// retryable accepts rate limits, overload and server errors from the API
// and transient network failures.
func retryable(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return resilience.TransientStatus(apiErr.StatusCode)
	}
	return resilience.Transient(err)
}

func prompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Subject: " + req.Subject + "\n")
	sb.WriteString("Action: " + req.Action + "\n")
	if req.Reason != "" {
		sb.WriteString("Reason: " + req.Reason + "\n")
	}
	sb.WriteString("Metrics: " + formatMetrics(req.Metrics))
	return sb.String()
}

// estimateCost returns the USD cost of a call, 0 for unknown models.
func estimateCost(model string, in, out int64) float64 {
	p, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return float64(in)/1e6*p[0] + float64(out)/1e6*p[1]
}

func logUsage(model string, in, out int64) {
	zap.L().Debug("insight: token usage",
		zap.String("model", model),
		zap.Int64("input_tokens", in),
		zap.Int64("output_tokens", out),
		zap.Float64("estimated_cost_usd", estimateCost(model, in, out)),
	)
}
