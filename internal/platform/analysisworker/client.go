package analysisworker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/actionsummary-backend/internal/platform/envutil"
	"github.com/yungbote/actionsummary-backend/internal/platform/logger"
)

const (
	DefaultEndpoint  = "http://localhost:8000/analysis/action-summary"
	maxResponseBytes = 32 << 20
)

type Options struct {
	// Endpoint is the full URL of the action-summary route on the primary worker.
	Endpoint string
	// FallbackHosts are tried in order when the primary is unreachable.
	// Entries are "host:port" or a base URL; the endpoint path is kept.
	FallbackHosts []string
	APIKey        string
	// Timeout bounds each attempt. Zero means no deadline.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	log        *logger.Logger
	endpoints  []string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

func New(log *logger.Logger, opts Options) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	primary := strings.TrimSpace(opts.Endpoint)
	if primary == "" {
		primary = DefaultEndpoint
	}
	u, err := url.Parse(primary)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid analysis worker endpoint %q", primary)
	}

	endpoints := []string{u.String()}
	seen := map[string]struct{}{u.String(): {}}
	for _, host := range opts.FallbackHosts {
		alt, err := withHost(u, host)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[alt]; dup {
			continue
		}
		seen[alt] = struct{}{}
		endpoints = append(endpoints, alt)
	}

	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		log:        log.With("client", "AnalysisWorkerClient"),
		endpoints:  endpoints,
		apiKey:     strings.TrimSpace(opts.APIKey),
		timeout:    timeout,
		httpClient: hc,
	}, nil
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	return New(log, Options{
		Endpoint:      envutil.String("ACTION_SUMMARY_WORKER_URL", DefaultEndpoint),
		FallbackHosts: envutil.List("ACTION_SUMMARY_WORKER_FALLBACK_HOSTS"),
		APIKey:        envutil.String("ACTION_SUMMARY_WORKER_API_KEY", ""),
		Timeout:       envutil.Seconds("ACTION_SUMMARY_WORKER_TIMEOUT_SECONDS", 0),
	})
}

func (c *Client) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// RunActionSummary submits one analysis and waits for the worker's answer.
// Errors are *HTTPError when a worker answered, *TransportError otherwise.
func (c *Client) RunActionSummary(ctx context.Context, req ActionSummaryRequest) (*ActionSummaryResponse, error) {
	ctx, span := otel.Tracer("analysisworker").Start(ctx, "analysisworker.RunActionSummary")
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode action summary request: %w", err)
	}

	var lastErr error
	for i, endpoint := range c.endpoints {
		resp, err := c.post(ctx, endpoint, payload)
		if err == nil {
			span.SetAttributes(attribute.String("worker.endpoint", endpoint), attribute.Int("worker.attempts", i+1))
			return resp, nil
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			span.SetAttributes(attribute.String("worker.endpoint", endpoint), attribute.Int("http.status_code", httpErr.StatusCode))
			span.SetStatus(codes.Error, httpErr.Message)
			return nil, httpErr
		}
		lastErr = err
		if !isRetryableNetworkError(ctx, err) {
			break
		}
		if i+1 < len(c.endpoints) {
			c.log.Warn("analysis worker unreachable; trying fallback",
				"endpoint", endpoint,
				"next", c.endpoints[i+1],
				"error", err,
			)
		}
	}

	terr := &TransportError{Endpoints: c.Endpoints(), Err: lastErr}
	span.RecordError(terr)
	span.SetStatus(codes.Error, terr.Error())
	return nil, terr
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) (*ActionSummaryResponse, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(attemptCtx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	c.log.Debug("analysis worker responded",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(resp.StatusCode, raw)
	}

	var out ActionSummaryResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &HTTPError{
			StatusCode: http.StatusBadGateway,
			Message:    "analysis worker returned an unreadable response",
			Body:       truncate(string(raw), 512),
		}
	}
	return &out, nil
}

// isRetryableNetworkError allows fallback only for failures that say nothing
// reached the worker (or it never answered): refused, reset, unreachable,
// DNS and per-attempt timeouts. A cancelled caller context is never retried.
func isRetryableNetworkError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func withHost(primary *url.URL, host string) (string, error) {
	host = strings.TrimSpace(host)
	alt := *primary
	if strings.Contains(host, "://") {
		hu, err := url.Parse(host)
		if err != nil || hu.Host == "" {
			return "", fmt.Errorf("invalid analysis worker fallback host %q", host)
		}
		alt.Scheme = hu.Scheme
		alt.Host = hu.Host
		return alt.String(), nil
	}
	if host == "" || strings.ContainsAny(host, "/?#") {
		return "", fmt.Errorf("invalid analysis worker fallback host %q", host)
	}
	alt.Host = host
	return alt.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
