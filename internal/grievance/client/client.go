// Package client talks to the PM-KISAN grievance service. Every request body
// is sealed by the aead envelope; every response is a service envelope whose
// output is sealed the same way.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pmkisan/internal/grievance/aead"
	"pmkisan/internal/grievance/envelope"
	"pmkisan/internal/grievance/models"
	"pmkisan/internal/platform/metrics"
	dErrors "pmkisan/pkg/domain-errors"
	"pmkisan/pkg/platform/circuit"
	"pmkisan/pkg/requestcontext"
)

// Upstream endpoints.
const (
	PathAadhaarToken   = "/GrievanceAadhaarToken"
	PathLodgeGrievance = "/LodgeGrievance"
	PathStatusCheck    = "/GrievanceStatusCheck"
)

const (
	DefaultConnectTimeout = 20 * time.Second
	DefaultReadTimeout    = 30 * time.Second

	maxResponseBytes = 1 << 20
	logBodyLimit     = 500

	retryWaitMin = 200 * time.Millisecond
	retryWaitMax = 2 * time.Second
)

// ServiceUnavailableError reports a non-200 upstream status.
type ServiceUnavailableError struct {
	Status int
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("grievance service returned HTTP %d", e.Status)
}

// Config carries the connection settings of a Client.
type Config struct {
	BaseURL        string
	Token          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// Retries is the number of extra attempts on connection errors and 5xx
	// answers. Zero sends each request once.
	Retries int
}

// Client posts encrypted requests to the grievance service.
type Client struct {
	baseURL     string
	token       string
	crypto      *aead.Envelope
	http        *http.Client
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	breaker     *circuit.Breaker
	readTimeout time.Duration

	// callBudget bounds a whole PostEncrypted, retries included.
	callBudget time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreaker stops calling the service while the breaker is open. Transport
// failures and timeouts count against it; any answer from the service,
// including a malformed one, counts as success.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithHTTPClient replaces the retrying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New constructs a Client.
func New(cfg Config, crypto *aead.Envelope, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			"grievance service base URL not configured; set GRIEVANCE_BASE_URL")
	}
	if crypto == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			"grievance crypto keys not configured; set GRIEVANCE_KEY_1 and GRIEVANCE_KEY_2")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	retries := max(cfg.Retries, 0)
	attempt := cfg.ConnectTimeout + cfg.ReadTimeout
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		crypto:      crypto,
		logger:      slog.Default(),
		tracer:      otel.Tracer("pmkisan/internal/grievance/client"),
		readTimeout: cfg.ReadTimeout,
		callBudget:  time.Duration(retries+1)*attempt + time.Duration(retries)*retryWaitMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = newRetryingHTTPClient(cfg, c.logger)
	}
	return c, nil
}

func newRetryingHTTPClient(cfg Config, logger *slog.Logger) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport}
	rc.RetryMax = max(cfg.Retries, 0)
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	// The library logger prints full URLs; log retries by path only.
	rc.Logger = nil
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.WarnContext(req.Context(), "retrying grievance request", "path", req.URL.Path, "attempt", attempt)
		}
	}
	// Hand the last response back so non-200 statuses are reported by
	// PostEncrypted rather than swallowed as a generic retry error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return rc.StandardClient()
}

// Token is the static service token sent as TokenNo.
func (c *Client) Token() string {
	return c.token
}

// PostEncrypted seals body, posts it to path and returns the parsed service
// envelope. Only the sealed wrapper is ever logged.
//
// Cancelling ctx does not abort a request once sent: the call runs until it
// completes or the connect/read timeouts expire. Values on ctx (request ID,
// span) are kept.
func (c *Client) PostEncrypted(ctx context.Context, path string, body any) (*envelope.ServiceEnvelope, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callBudget)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "grievance.post", trace.WithAttributes(attribute.String("grievance.endpoint", path)))
	defer span.End()

	if c.breaker != nil && !c.breaker.Allow() {
		err := dErrors.New(dErrors.CodeTransport, "grievance service circuit open")
		c.metrics.IncrementUpstreamRejected(path)
		span.SetStatus(codes.Error, "circuit_open")
		return nil, err
	}

	start := time.Now()
	env, status, err := c.post(ctx, path, body)
	c.metrics.ObserveUpstream(path, outcome(err), time.Since(start))
	c.record(ctx, err)

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	return env, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*envelope.ServiceEnvelope, int, error) {
	wrapped, err := c.crypto.Encrypt(body)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt grievance request")
	}
	payload, err := json.Marshal(wrapped)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode grievance request")
	}

	reqCtx, cancelReq := context.WithCancel(ctx)
	defer cancelReq()

	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid grievance service URL")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	c.logger.InfoContext(ctx, "grievance api request",
		"path", path,
		"body", string(payload),
		"request_id", requestID,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, classifyTransportError(ctx, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "can not close grievance response body", "error", err)
		}
	}()

	raw, stalled, err := readWithIdleTimeout(io.LimitReader(resp.Body, maxResponseBytes), c.readTimeout, cancelReq)
	if err != nil {
		if stalled {
			return nil, resp.StatusCode, dErrors.Wrap(err, dErrors.CodeTimeout, "grievance service timed out")
		}
		return nil, resp.StatusCode, classifyTransportError(ctx, err)
	}
	c.logger.InfoContext(ctx, "grievance api response",
		"path", path,
		"status", resp.StatusCode,
		"body", truncate(raw, logBodyLimit),
		"request_id", requestID,
	)

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "grievance api returned non-200",
			"path", path,
			"status", resp.StatusCode,
		)
		return nil, resp.StatusCode, dErrors.Wrap(&ServiceUnavailableError{Status: resp.StatusCode}, dErrors.CodeTransport,
			fmt.Sprintf("Grievance service unavailable (HTTP %d).", resp.StatusCode))
	}

	env, err := envelope.Parse(raw)
	if err != nil {
		c.logger.ErrorContext(ctx, "invalid grievance envelope", "path", path, "error", err)
		return nil, resp.StatusCode, err
	}
	return env, resp.StatusCode, nil
}

func (c *Client) record(ctx context.Context, err error) {
	if c.breaker == nil {
		return
	}
	var change circuit.StateChange
	switch dErrors.CodeOf(err) {
	case dErrors.CodeTransport, dErrors.CodeTimeout:
		change = c.breaker.RecordFailure()
	default:
		change = c.breaker.RecordSuccess()
	}
	if change.Opened {
		c.logger.WarnContext(ctx, "grievance circuit opened", "breaker", c.breaker.Name())
	}
	if change.Closed {
		c.logger.InfoContext(ctx, "grievance circuit closed", "breaker", c.breaker.Name())
	}
}

// Call posts body and decrypts the answer into out.
func (c *Client) Call(ctx context.Context, path string, body, out any) error {
	env, err := c.PostEncrypted(ctx, path, body)
	if err != nil {
		return err
	}
	if err := env.Unwrap(c.crypto, out); err != nil {
		c.logger.ErrorContext(ctx, "failed to open grievance envelope", "path", path, "error", err)
		return err
	}
	return nil
}

// CallRaw posts body and returns the decrypted JSON answer untyped.
func (c *Client) CallRaw(ctx context.Context, path string, body any) (json.RawMessage, error) {
	env, err := c.PostEncrypted(ctx, path, body)
	if err != nil {
		return nil, err
	}
	plaintext, err := c.crypto.Decrypt(env.D.Output)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to open grievance envelope", "path", path, "error", err)
		return nil, err
	}
	return plaintext, nil
}

// AadhaarToken exchanges an Aadhaar number for a service token.
func (c *Client) AadhaarToken(ctx context.Context, aadhaar string) (*models.AadhaarTokenResponse, error) {
	var resp models.AadhaarTokenResponse
	if err := c.Call(ctx, PathAadhaarToken, models.NewAadhaarTokenRequest(c.token, aadhaar), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LodgeGrievance submits a grievance and returns the decrypted answer.
func (c *Client) LodgeGrievance(ctx context.Context, req models.CreateGrievanceRequest) (json.RawMessage, error) {
	return c.CallRaw(ctx, PathLodgeGrievance, req)
}

// StatusCheck queries grievances and returns the decrypted answer.
func (c *Client) StatusCheck(ctx context.Context, req models.StatusRequest) (json.RawMessage, error) {
	return c.CallRaw(ctx, PathStatusCheck, req)
}

// readWithIdleTimeout reads r to EOF, calling abort when no Read returns for
// idle. stalled reports whether abort fired.
func readWithIdleTimeout(r io.Reader, idle time.Duration, abort context.CancelFunc) (data []byte, stalled bool, err error) {
	var fired atomic.Bool
	timer := time.AfterFunc(idle, func() {
		fired.Store(true)
		abort()
	})
	defer timer.Stop()

	data, err = io.ReadAll(&idleReader{r: r, timer: timer, idle: idle})
	return data, err != nil && fired.Load(), err
}

type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.idle)
	}
	return n, err
}

func classifyTransportError(ctx context.Context, err error) error {
	if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "grievance service timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeTransport, "unable to reach grievance service")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
