package similarity

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
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// ClientConfig configures the remote similarity backend.
type ClientConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	Retry            RetryConfig
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// Client talks to an HTTP similarity service. Every call goes through a
// circuit breaker so a dead backend fails fast instead of stalling a request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	breaker    *gobreaker.CircuitBreaker[float64]
	logger     *logrus.Logger
}

func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenDelay <= 0 {
		cfg.BreakerOpenDelay = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry:  cfg.Retry,
		logger: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:    "similarity",
		Timeout: cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Similarity circuit breaker changed state")
		},
	})

	return c
}

func (c *Client) ScoreQuery(ctx context.Context, query string, movie models.Movie) (float64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, nil
	}
	return c.score(ctx, "/score/query", QueryScoreRequest{Query: query, Movie: toDocument(movie)})
}

func (c *Client) ScoreUserProfile(ctx context.Context, userID int, movie models.Movie) (float64, error) {
	return c.score(ctx, "/score/user", UserScoreRequest{UserID: userID, Movie: toDocument(movie)})
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.makeRequest(ctx, http.MethodGet, "/health", nil, nil)
}

// BreakerState reports the circuit breaker state for health checks.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) score(ctx context.Context, endpoint string, payload interface{}) (float64, error) {
	score, err := c.breaker.Execute(func() (float64, error) {
		var resp ScoreResponse
		err := c.retryOperation(ctx, func() error {
			return c.makeRequest(ctx, http.MethodPost, endpoint, payload, &resp)
		})
		return resp.Score, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %s: %v", models.ErrDependencyFailure, endpoint, err)
	}
	return Clamp(score), nil
}

// statusError is a non-2xx answer from the backend.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.code, e.body)
}

// retryable reports whether another attempt might succeed.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"method":        method,
		"url":           url,
		"response_size": len(responseBody),
	}).Debug("Similarity API response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, body: string(responseBody)}
	}

	if result != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

func toDocument(m models.Movie) MovieDocument {
	return MovieDocument{
		ID:     m.ID,
		Title:  m.Title,
		Genres: m.Genres,
		Year:   m.Year,
		Text:   m.WikipediaIntro,
	}
}
