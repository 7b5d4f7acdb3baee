// Package backend talks to the admissions REST API. A Client carries the
// transport concerns shared by every operator (rate limit, retries, circuit
// breaker) and a Session carries the bearer token of one operator.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/slidingwindow"
	"github.com/goccy/go-json"
	"golang.org/x/net/publicsuffix"
)

// ClientConfig holds the transport settings of a Client.
type ClientConfig struct {
	Name    string
	BaseURL string
	Timeout time.Duration

	RateLimitCalls   int
	RateLimitSeconds int

	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	MaxRetries   int
	RetryBackoff time.Duration

	UserAgent        string
	DisableTLSVerify bool
}

// ConfigFromSettings maps the [backend] section of config.toml.
func ConfigFromSettings(cfg *config.BackendConfig) ClientConfig {
	return ClientConfig{
		Name:                    "backend",
		BaseURL:                 strings.TrimRight(cfg.BaseURL, "/"),
		Timeout:                 time.Duration(cfg.TimeoutSeconds) * time.Second,
		RateLimitCalls:          cfg.LimiterCalls,
		RateLimitSeconds:        cfg.LimiterSeconds,
		CircuitBreakerThreshold: cfg.CircuitBreakerFailures,
		CircuitBreakerTimeout:   time.Duration(cfg.CircuitBreakerResetSeconds) * time.Second,
		MaxRetries:              cfg.RetryCount,
		RetryBackoff:            500 * time.Millisecond,
		DisableTLSVerify:        cfg.DisableTLSVerify,
	}
}

// ClientStats tracks request statistics.
type ClientStats struct {
	RequestsTotal     int64
	SuccessCount      int64
	FailureCount      int64
	AvgResponseTimeMs int64
	LastRequestAt     time.Time
	LastErrorAt       time.Time
	LastErrorMessage  string

	CircuitBreakerState string

	totalResponseTimeMs int64
}

// Client sends requests to the backend.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *slidingwindow.Limiter
	breaker    *apperrors.CircuitBreaker

	statsMu sync.Mutex
	stats   ClientStats
}

// NewClient builds a Client with a pooled transport.
func NewClient(cfg ClientConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.DisableTLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opt-in for self signed dev backends
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "backend"
	}

	// keeps sticky load balancer cookies of the backend
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport, Jar: jar},
		breaker: apperrors.NewCircuitBreaker(
			cfg.Name, cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout, 1),
	}
	if cfg.RateLimitCalls > 0 && cfg.RateLimitSeconds > 0 {
		c.limiter = slidingwindow.NewLimiter(
			time.Duration(cfg.RateLimitSeconds)*time.Second, int64(cfg.RateLimitCalls))
	}

	logger.Logtype(logger.StatusInfo, 0).
		Str("client", cfg.Name).
		Str("base_url", cfg.BaseURL).
		Msg("backend client initialized")
	return c
}

// Name returns the client name used in logs.
func (c *Client) Name() string {
	return c.config.Name
}

// GetStats returns a copy of the request statistics.
func (c *Client) GetStats() ClientStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s := c.stats
	s.CircuitBreakerState = c.breaker.GetState().String()
	return s
}

// URL joins endpoint to the base url. Absolute endpoints are kept.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.config.BaseURL + endpoint
}

// Do sends body as JSON to endpoint and decodes the answer into target.
// sess may be nil for unauthenticated calls such as the login. operation
// names the call in returned errors. Only GET and HEAD are retried; writes
// are sent once.
func (c *Client) Do(
	ctx context.Context,
	sess *Session,
	operation, method, endpoint string,
	body any,
	target any,
) error {
	if !c.breaker.CanMakeRequest() {
		logger.Logtype(logger.StatusDebug, 0).
			Str("client", c.config.Name).
			Str("circuit_state", c.breaker.GetState().String()).
			Int("failure_count", c.breaker.GetFailureCount()).
			Msg("Circuit breaker blocked request")
		return c.breaker.OpenError()
	}

	var authHeader string
	if sess != nil {
		h, err := sess.AuthorizationHeader()
		if err != nil {
			return err
		}
		authHeader = h
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrClassValidation, operation, err)
		}
	}

	url := c.URL(endpoint)
	start := time.Now()

	var (
		resp   *http.Response
		reqErr error
	)
	retries := 0
	if method == http.MethodGet || method == http.MethodHead {
		retries = c.config.MaxRetries
	}
	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.Wrap(apperrors.ErrClassNetwork, operation, err)
		}
		resp, reqErr = c.send(ctx, method, url, payload, authHeader)
		if reqErr == nil && resp.StatusCode < 500 {
			break
		}
		if attempt == retries || ctx.Err() != nil {
			break
		}
		if resp != nil {
			drain(resp)
		}
		backoff := c.config.RetryBackoff * time.Duration(attempt+1)
		logger.Logtype(logger.StatusDebug, 0).
			Err(reqErr).
			Str("url", url).
			Str("client", c.config.Name).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying request")
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
	}
	duration := time.Since(start)

	if reqErr != nil {
		c.breaker.RecordFailure()
		c.recordStats(false, duration, reqErr.Error())
		return apperrors.WrapWithMessage(apperrors.ErrClassNetwork, operation,
			"Le serveur est injoignable.", reqErr).WithContext("url", url)
	}
	defer drain(resp)

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		msg := ExtractMessage(bodyBytes)

		// server errors and rejected tokens count against the circuit
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusRequestTimeout {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		c.recordStats(false, duration, "HTTP "+strconv.Itoa(resp.StatusCode)+": "+msg)

		if resp.StatusCode == http.StatusTooManyRequests && c.limiter != nil {
			if secs := logger.StringToInt(resp.Header.Get("Retry-After")); secs > 0 {
				c.limiter.WaitTill(time.Now().Add(time.Duration(secs) * time.Second))
			}
		}

		class := apperrors.ErrClassBackend
		if resp.StatusCode == http.StatusUnauthorized {
			class = apperrors.ErrClassAuth
		}
		return apperrors.WrapWithMessage(class, operation, msg, &StatusError{Code: resp.StatusCode}).
			WithContext("url", url)
	}

	c.breaker.RecordSuccess()
	c.recordStats(true, duration, "")

	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.WrapWithMessage(apperrors.ErrClassBackend, operation,
			"Réponse du serveur illisible.", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, url string, payload []byte, authHeader string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return c.httpClient.Do(req)
}

func (c *Client) recordStats(success bool, duration time.Duration, errorMsg string) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	c.stats.RequestsTotal++
	c.stats.LastRequestAt = time.Now()
	c.stats.totalResponseTimeMs += duration.Milliseconds()
	c.stats.AvgResponseTimeMs = c.stats.totalResponseTimeMs / c.stats.RequestsTotal
	if success {
		c.stats.SuccessCount++
		return
	}
	c.stats.FailureCount++
	c.stats.LastErrorAt = c.stats.LastRequestAt
	c.stats.LastErrorMessage = errorMsg
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

// StatusError is the cause of an error built from a non-2xx answer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "HTTP " + strconv.Itoa(e.Code) + " " + http.StatusText(e.Code)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// ExtractMessage returns the human readable message of an error body. The
// message, error and detail keys are tried in that order; nested objects and
// lists of validation details are flattened. An empty string means the body
// carried nothing readable.
func ExtractMessage(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s := messageOf(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func messageOf(v any) string {
	switch tt := v.(type) {
	case string:
		return strings.TrimSpace(tt)
	case map[string]any:
		for _, key := range []string{"message", "msg", "error", "detail"} {
			if s := messageOf(tt[key]); s != "" {
				return s
			}
		}
	case []any:
		parts := make([]string, 0, len(tt))
		for _, item := range tt {
			if s := messageOf(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}
