package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/hurttlocker/nuggets/internal/retry"
)

// DefaultZeroShotURL is the hosted BART-MNLI zero-shot endpoint.
const DefaultZeroShotURL = "https://api-inference.huggingface.co/models/facebook/bart-large-mnli"

const (
	defaultAttemptTimeout = 30 * time.Second
	defaultMaxAttempts    = 3
	defaultBaseDelay      = time.Second
	defaultScoreThreshold = 0.5
	maxErrorBody          = 512
)

// CandidateLabels are offered to the remote classifier on every call.
var CandidateLabels = []string{
	"philosophy", "motivation", "productivity", "history", "science", "psychology",
	"self-improvement", "business", "fiction", "art", "nature", "spirituality",
	"learning", "wisdom", "courage", "mindfulness", "health", "relationships",
	"technology", "creativity", "writing", "reading", "future", "past", "present",
	"emotions", "happiness", "sadness", "joy", "anger", "fear", "love", "friendship",
	"family", "society", "politics", "economy", "environment", "travel", "culture",
	"food", "exercise", "sleep", "meditation", "habit", "discipline", "focus",
}

// ZeroShotConfig configures the remote classification client.
type ZeroShotConfig struct {
	URL            string
	APIKey         string
	Labels         []string      // default CandidateLabels
	AttemptTimeout time.Duration // per request, default 30s
	MaxAttempts    int           // default 3
	BaseDelay      time.Duration // backoff unit, default 1s
	Threshold      float64       // keep labels scoring above this, default 0.5
	HTTPClient     *http.Client
	Sleep          retry.Sleeper
	Logger         *zap.Logger
}

// ZeroShotClient calls a hosted zero-shot classification model. It never
// returns an error; failures degrade to marker tags.
type ZeroShotClient struct {
	url       string
	apiKey    string
	labels    []string
	timeout   time.Duration
	policy    retry.Policy
	threshold float64
	client    *http.Client
	sleep     retry.Sleeper
	logger    *zap.Logger
}

type zsRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters zsParameters `json:"parameters"`
}

type zsParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type zsResponse struct {
	Labels *[]string  `json:"labels"`
	Scores *[]float64 `json:"scores"`
}

// statusError is a non-2xx reply from the classifier.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("classifier returned status %d: %s", e.Code, e.Body)
}

// transportError wraps request-level failures that are worth retrying.
type transportError struct {
	Timeout bool
	Err     error
}

func (e *transportError) Error() string {
	if e.Timeout {
		return "classifier request timed out: " + e.Err.Error()
	}
	return "classifier request failed: " + e.Err.Error()
}

func (e *transportError) Unwrap() error { return e.Err }

// NewZeroShotClient builds a client, filling defaults.
func NewZeroShotClient(cfg ZeroShotConfig) *ZeroShotClient {
	if cfg.URL == "" {
		cfg.URL = DefaultZeroShotURL
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = CandidateLabels
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultScoreThreshold
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.AttemptTimeout}
	}
	if cfg.Sleep == nil {
		cfg.Sleep = retry.Sleep
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &ZeroShotClient{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		labels:    cfg.Labels,
		timeout:   cfg.AttemptTimeout,
		threshold: cfg.Threshold,
		client:    cfg.HTTPClient,
		sleep:     cfg.Sleep,
		logger:    cfg.Logger,
	}
	c.policy = retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     c.backoff(cfg.BaseDelay),
	}
	return c
}

// Policy returns the retry policy in use.
func (c *ZeroShotClient) Policy() retry.Policy { return c.policy }

func (c *ZeroShotClient) backoff(base time.Duration) func(int, error) (time.Duration, retry.Decision) {
	return func(attempt int, err error) (time.Duration, retry.Decision) {
		var se *statusError
		if errors.As(err, &se) {
			switch se.Code {
			case http.StatusTooManyRequests:
				wait := retry.Exponential(base, attempt, base)
				c.logger.Warn("classifier rate limited", zap.Int("attempt", attempt+1), zap.Duration("wait", wait))
				return wait, retry.Retry
			case http.StatusServiceUnavailable:
				wait := retry.Exponential(base, attempt, 2*base)
				c.logger.Warn("classifier unavailable", zap.Int("attempt", attempt+1), zap.Duration("wait", wait))
				return wait, retry.Retry
			default:
				c.logger.Warn("classifier http error", zap.Int("attempt", attempt+1), zap.Int("status", se.Code))
				return retry.Exponential(base, attempt, 0), retry.Retry
			}
		}
		var te *transportError
		if errors.As(err, &te) {
			c.logger.Warn("classifier request error", zap.Int("attempt", attempt+1), zap.Bool("timeout", te.Timeout), zap.Error(te.Err))
			return retry.Exponential(base, attempt, 0), retry.Retry
		}
		c.logger.Error("unexpected classifier error", zap.Error(err))
		return 0, retry.Abort
	}
}

// Classify returns the lowercase labels scoring above the threshold.
// It yields ["untagged"] when none qualify, ["untagged", "api-format-error"]
// for a response without labels/scores, and ["untagged", "api-error"] when
// the call fails.
func (c *ZeroShotClient) Classify(ctx context.Context, text string) []string {
	tags, err := retry.Do(ctx, c.policy, c.sleep, func(ctx context.Context, attempt int) ([]string, error) {
		return c.attempt(ctx, text)
	})
	if err != nil {
		c.logger.Error("classifier gave up", zap.Int("max_attempts", c.policy.MaxAttempts), zap.Error(err))
		return []string{TagUntagged, TagAPIError}
	}
	return tags
}

func (c *ZeroShotClient) attempt(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(zsRequest{
		Inputs:     text,
		Parameters: zsParameters{CandidateLabels: c.labels, MultiLabel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transportError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{Timeout: isTimeout(err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(respBody))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &statusError{Code: resp.StatusCode, Body: snippet}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	var out zsResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.Labels == nil || out.Scores == nil {
		c.logger.Warn("unexpected classifier response format", zap.ByteString("body", truncate(respBody, maxErrorBody)))
		return []string{TagUntagged, TagAPIFormatError}, nil
	}

	return c.selectLabels(*out.Labels, *out.Scores), nil
}

func (c *ZeroShotClient) selectLabels(labels []string, scores []float64) []string {
	n := len(labels)
	if len(scores) < n {
		n = len(scores)
	}
	var tags []string
	for i := 0; i < n; i++ {
		if scores[i] > c.threshold {
			tags = append(tags, strings.ToLower(labels[i]))
		}
	}
	tags = lo.Uniq(tags)
	if len(tags) == 0 {
		return []string{TagUntagged}
	}
	return tags
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
