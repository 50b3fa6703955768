// Package catalog fetches bibliographic records from Symphony, the upstream
// MARC catalog, and resolves item barcodes to catalog keys.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dor/internal/platform/config"
	"dor/pkg/platform/circuit"
)

// FramingOverhead is the number of bytes by which the Content-Length Symphony
// declares exceeds the JSON body it actually sends. Symphony closes the
// connection after the shorter body, so a complete record arrives as a short
// read of exactly declared-5 bytes.
const FramingOverhead = 5

const maxBodyBytes = 32 << 20

const (
	opFetchBib       = "fetch_bib"
	opResolveBarcode = "resolve_barcode"
)

// Client talks to the Symphony JSON API and the barcode search service.
// Calls are never retried; timeouts and outages surface as UpstreamError.
type Client struct {
	httpClient *http.Client
	jsonURL    string
	barcodeURL string
	headers    map[string]string
	timeout    time.Duration
	breaker    *circuit.Breaker
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// WithBreaker replaces the breaker built from the configuration.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func New(cfg config.Catalog, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		jsonURL:    cfg.JSONURL,
		barcodeURL: cfg.BarcodeSearchURL,
		headers:    cfg.Headers,
		timeout:    cfg.Timeout,
		breaker: circuit.New("symphony",
			circuit.WithFailureThreshold(cfg.BreakerFailures),
			circuit.WithSuccessThreshold(cfg.BreakerSuccesses),
			circuit.WithCooldown(cfg.BreakerCooldown),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer("dor/internal/catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchBib retrieves the bib record for catkey and checks that the body is
// complete.
func (c *Client) FetchBib(ctx context.Context, catkey string) (*Bib, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.FetchBib", trace.WithAttributes(attribute.String("catkey", catkey)))
	defer span.End()

	endpoint := expand(c.jsonURL, "{catkey}", catkey)
	body, resp, err := c.get(ctx, opFetchBib, catkey, endpoint, true)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	if err := checkComplete(catkey, resp, body); err != nil {
		c.logger.WarnContext(ctx, "incomplete symphony response",
			"catkey", catkey,
			"error", err,
		)
		recordSpanError(span, err)
		return nil, err
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		err = &UpstreamError{Category: ErrorBadData, Catkey: catkey, Status: resp.StatusCode, Message: "malformed bib JSON", Underlying: err}
		recordSpanError(span, err)
		return nil, err
	}
	if parsed.Fields.Bib == nil {
		return &Bib{}, nil
	}
	return parsed.Fields.Bib, nil
}

// ResolveBarcode looks up the catalog key for an item barcode.
func (c *Client) ResolveBarcode(ctx context.Context, barcode string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.ResolveBarcode", trace.WithAttributes(attribute.String("barcode", barcode)))
	defer span.End()

	endpoint := expand(c.barcodeURL, "{barcode}", barcode)
	body, resp, err := c.get(ctx, opResolveBarcode, "", endpoint, false)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}

	var parsed BarcodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		err = &UpstreamError{Category: ErrorBadData, Status: resp.StatusCode, Message: "malformed barcode search JSON", Underlying: err}
		recordSpanError(span, err)
		return "", err
	}
	if strings.TrimSpace(parsed.ID) == "" {
		err = &UpstreamError{Category: ErrorNotFound, Status: resp.StatusCode, Message: "No catkey found for barcode: " + barcode}
		recordSpanError(span, err)
		return "", err
	}
	return parsed.ID, nil
}

// FetchByBarcode resolves barcode and fetches the resulting record.
func (c *Client) FetchByBarcode(ctx context.Context, barcode string) (string, *Bib, error) {
	catkey, err := c.ResolveBarcode(ctx, barcode)
	if err != nil {
		return "", nil, err
	}
	bib, err := c.FetchBib(ctx, catkey)
	if err != nil {
		return catkey, nil, err
	}
	return catkey, bib, nil
}

// get performs one GET. With allowShort, a body that ends before its declared
// Content-Length is returned as read instead of failing; the caller is then
// responsible for judging completeness.
func (c *Client) get(ctx context.Context, operation, catkey, endpoint string, allowShort bool) ([]byte, *http.Response, error) {
	if !c.breaker.Allow() {
		c.metrics.ObserveFetch(operation, "breaker_open", 0)
		return nil, nil, &UpstreamError{
			Category: ErrorProviderOutage,
			Catkey:   catkey,
			Message:  "circuit breaker open",
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		uerr := classifyTransportError(ctx, catkey, err)
		if !errors.Is(err, context.Canceled) {
			c.recordFailure(ctx)
		}
		c.metrics.ObserveFetch(operation, string(uerr.Category), time.Since(start))
		c.logger.WarnContext(ctx, "catalog request failed",
			"operation", operation,
			"catkey", catkey,
			"category", uerr.Category,
			"error", err,
		)
		return nil, nil, uerr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil && allowShort && errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil {
		uerr := classifyTransportError(ctx, catkey, err)
		c.recordFailure(ctx)
		c.metrics.ObserveFetch(operation, string(uerr.Category), time.Since(start))
		return nil, nil, uerr
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.recordSuccess(ctx)
		c.metrics.ObserveFetch(operation, string(ErrorNotFound), time.Since(start))
		msg := "Record not found in Symphony: " + catkey
		if catkey == "" {
			msg = "Record not found: " + endpoint
		}
		return nil, resp, &UpstreamError{Category: ErrorNotFound, Catkey: catkey, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if resp.StatusCode >= 500 {
			c.recordFailure(ctx)
		} else {
			c.recordSuccess(ctx)
		}
		c.metrics.ObserveFetch(operation, string(ErrorHTTP), time.Since(start))
		return nil, resp, &UpstreamError{
			Category: ErrorHTTP,
			Catkey:   catkey,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("Got HTTP Status-Code %d retrieving %s from Symphony: %s", resp.StatusCode, catkey, truncate(string(body), 200)),
		}
	}

	c.recordSuccess(ctx)
	c.metrics.ObserveFetch(operation, "ok", time.Since(start))
	return body, resp, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.metrics.SetBreakerOpen(true)
		c.logger.WarnContext(ctx, "symphony circuit breaker opened")
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.metrics.SetBreakerOpen(false)
		c.logger.InfoContext(ctx, "symphony circuit breaker closed")
	}
}

// checkComplete requires the received body to be exactly FramingOverhead bytes
// shorter than the declared Content-Length.
func checkComplete(catkey string, resp *http.Response, body []byte) error {
	declared := int64(-1)
	if raw := resp.Header.Get("Content-Length"); raw != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return &UpstreamError{Category: ErrorBadData, Catkey: catkey, Status: resp.StatusCode, Message: "unparseable Content-Length " + strconv.Quote(raw)}
		}
		declared = n
	} else if resp.ContentLength >= 0 {
		declared = resp.ContentLength
	}
	if declared < 0 {
		return &UpstreamError{Category: ErrorBadData, Catkey: catkey, Status: resp.StatusCode, Message: "response from Symphony for " + catkey + " has no Content-Length"}
	}

	expected := declared - FramingOverhead
	actual := int64(len(body))
	if actual != expected {
		return &RecordIncompleteError{Catkey: catkey, Declared: declared, Expected: expected, Actual: actual}
	}
	return nil
}

func classifyTransportError(ctx context.Context, catkey string, err error) *UpstreamError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &UpstreamError{Category: ErrorTimeout, Catkey: catkey, Message: "timed out calling Symphony", Underlying: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &UpstreamError{Category: ErrorTimeout, Catkey: catkey, Message: "timed out calling Symphony", Underlying: err}
	default:
		return &UpstreamError{Category: ErrorProviderOutage, Catkey: catkey, Message: "unable to reach Symphony", Underlying: err}
	}
}

func expand(template, placeholder, value string) string {
	return strings.ReplaceAll(template, placeholder, url.PathEscape(value))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
