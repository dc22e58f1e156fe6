// Package transport issues requests to the Chat Analyzer backend.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/pkg/logger"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

const tracerName = "github.com/chat-analyzer/gateway/internal/transport"

var absoluteURL = regexp.MustCompile(`(?i)^https?://`)

// Requester is the request surface the stores depend on.
type Requester interface {
	Do(ctx context.Context, path string, opts Options) (*Body, error)
}

// Options describes one request.
type Options struct {
	Method string
	Header http.Header
	// Body is marshalled as JSON unless it is already a []byte or string.
	Body any
	// Form, when set, is sent as multipart/form-data and Body is ignored.
	Form *Form
}

// Client sends requests to the backend with a persistent cookie jar so the
// session cookie set at login is sent on every later call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its jar is kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.httpClient.Jar
		}
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.logger = log
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: jar},
		tracer:     otel.Tracer(tracerName),
		logger:     logger.Global(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("transport")
	return c
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL joins a relative path to the base URL. Absolute http(s) URLs are
// returned unchanged.
func (c *Client) ResolveURL(path string) string {
	if absoluteURL.MatchString(path) {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Do sends one request. A non-2xx response fails with *RequestError.
func (c *Client) Do(ctx context.Context, path string, opts Options) (*Body, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.ResolveURL(path)

	ctx, span := c.tracer.Start(ctx, "transport.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", url),
	)

	body, contentType, err := encodeBody(opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Caller headers replace defaults per canonical key, except that a
	// multipart body keeps its boundary content type.
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range canonicalHeader(opts.Header) {
		if opts.Form != nil && key == "Content-Type" {
			continue
		}
		req.Header[key] = values
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordBackendRequest(method, "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("Backend request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	metrics.RecordBackendRequest(method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{StatusCode: resp.StatusCode, Body: string(raw)}
		span.SetStatus(codes.Error, reqErr.Error())
		c.logger.Debug("Backend returned error status",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, reqErr
	}

	return &Body{contentType: resp.Header.Get("Content-Type"), raw: raw}, nil
}

// Get is shorthand for a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Body, error) {
	return c.Do(ctx, path, Options{Method: http.MethodGet})
}

// SendJSON sends payload as a JSON body with the given method.
func (c *Client) SendJSON(ctx context.Context, method, path string, payload any) (*Body, error) {
	return c.Do(ctx, path, Options{Method: method, Body: payload})
}

func encodeBody(opts Options) (io.Reader, string, error) {
	if opts.Form != nil {
		return opts.Form.encode()
	}
	switch b := opts.Body.(type) {
	case nil:
		return nil, "application/json", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	case string:
		return strings.NewReader(b), "application/json", nil
	case io.Reader:
		return b, "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// Field is one multipart text field.
type Field struct {
	Name  string
	Value string
}

// Form is a multipart body with ordered text fields and at most one file.
type Form struct {
	Fields    []Field
	FileField string
	FileName  string
	File      io.Reader
}

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range f.Fields {
		if err := w.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", field.Name, err)
		}
	}
	if f.File != nil {
		name := f.FileField
		if name == "" {
			name = "file"
		}
		part, err := w.CreateFormFile(name, f.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, f.File); err != nil {
			return nil, "", fmt.Errorf("failed to write form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// canonicalHeader merges h under canonical keys, so literal maps such as
// http.Header{"content-type": ...} behave like ones built with Set.
func canonicalHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for key, values := range h {
		for _, v := range values {
			out.Add(key, v)
		}
	}
	return out
}
