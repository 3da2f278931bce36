// Package gateway is the single entry point for backend calls. Every call
// comes back either as decoded data or as a classified *apierror.Error, and an
// unauthorized outcome ends the local session exactly once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"admin-console/internal/envelope"
	"admin-console/internal/event"
	"admin-console/internal/session"
	"admin-console/pkg/apierror"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultRateLimit      = 10
	defaultRateLimitBurst = 20
	defaultUserAgent      = "admin-console/1.0"
	defaultLoginView      = "login"
	maxBodyBytes          = 8 << 20

	HeaderRequestID = "X-Request-ID"
)

// Options configures the client behavior.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	Codes          envelope.Codes
	Scheme         string
	RateLimit      rate.Limit
	RateLimitBurst int
	UserAgent      string
	// LoginView is the redirect target carried by the session-expired event.
	LoginView string
	Logger    *slog.Logger
	// Transport replaces the HTTP transport; tests use it to simulate drops.
	Transport http.RoundTripper
}

// Caller is what typed endpoints need from the gateway.
type Caller interface {
	Call(ctx context.Context, method, path string, body any, query url.Values) (json.RawMessage, error)
}

type Client struct {
	base      *url.URL
	http      *http.Client
	jar       *resettableJar
	codes     envelope.Codes
	scheme    string
	limiter   *rate.Limiter
	store     *session.Store
	bus       event.Bus
	userAgent string
	loginView string
	logger    *slog.Logger
	tracer    trace.Tracer
}

func New(opts Options, store *session.Store, bus event.Bus) (*Client, error) {
	if store == nil {
		return nil, errors.New("gateway: session store is required")
	}
	if bus == nil {
		return nil, errors.New("gateway: event bus is required")
	}

	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base URL %q", opts.BaseURL)
	}

	nopts := normalizeOptions(opts)
	if err := nopts.Codes.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	c := &Client{
		base:      base,
		codes:     nopts.Codes,
		scheme:    nopts.Scheme,
		limiter:   rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		store:     store,
		bus:       bus,
		userAgent: nopts.UserAgent,
		loginView: nopts.LoginView,
		logger:    nopts.Logger.With("component", "gateway"),
		tracer:    otel.Tracer("admin-console/gateway"),
	}

	c.http = &http.Client{
		Timeout:   nopts.Timeout,
		Transport: nopts.Transport,
	}
	if store.Mode() == session.ModeCookie {
		c.jar = newResettableJar()
		c.http.Jar = c.jar
		c.seedCookies(store.Get())
	}

	return c, nil
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Codes == (envelope.Codes{}) {
		opts.Codes = envelope.DefaultCodes
	}
	if strings.TrimSpace(opts.Scheme) == "" {
		opts.Scheme = "Bearer"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.LoginView == "" {
		opts.LoginView = defaultLoginView
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	return opts
}

// Call issues one request and classifies its outcome. There is no caching
// and no retry: two calls are two network attempts.
func (c *Client) Call(ctx context.Context, method, path string, body any, query url.Values) (json.RawMessage, error) {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "gateway.call", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("request.id", requestID),
	)

	start := time.Now()
	status, raw, transportErr := c.roundTrip(ctx, method, path, body, query, requestID)
	data, err := c.codes.Decode(envelope.Transport{Status: status, Body: raw, Err: transportErr})
	duration := time.Since(start)

	outcome := outcomeOK
	if err != nil {
		if apiErr, ok := apierror.As(err); ok {
			apiErr.RequestID = requestID
		}
		outcome = outcomeOf(err)
	}
	recordCall(method, outcome, duration)

	if status > 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	c.logger.Debug("gateway call",
		"method", method,
		"path", path,
		"request_id", requestID,
		"status", status,
		"duration", duration,
		"outcome", outcome,
	)

	if outcome == outcomeUnauthorized {
		c.expire(method, path, requestID)
	}

	return data, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, query url.Values, requestID string) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	u := c.resolve(path, query)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, nil, err
	}
	c.applyHeaders(req, requestID, body != nil)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) applyHeaders(req *http.Request, requestID string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderRequestID, requestID)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.store.Mode() != session.ModeBearer {
		return
	}
	cred := c.store.Get().Credential
	if cred.Token == "" {
		return
	}
	scheme := cred.Scheme
	if scheme == "" {
		scheme = c.scheme
	}
	req.Header.Set("Authorization", scheme+" "+cred.Token)
}

func (c *Client) resolve(path string, query url.Values) *url.URL {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

// expire clears the local session and announces it. It runs once per failing
// call; the caller still receives the unauthorized error.
func (c *Client) expire(method, path, requestID string) {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("clear session", "error", err)
	}
	if c.jar != nil {
		c.jar.Reset()
	}
	sessionExpiredTotal.Inc()

	c.logger.Warn("session expired", "method", method, "path", path, "request_id", requestID)
	c.bus.Publish(event.Event{
		Type: event.TypeSessionExpired,
		Payload: event.SessionExpired{
			Redirect:  c.loginView,
			Method:    method,
			Path:      path,
			RequestID: requestID,
		},
	})
}

// SessionCookies returns the cookies the jar would send to the backend, so a
// cookie-mode login can persist them. It is nil in bearer mode.
func (c *Client) SessionCookies() []session.Cookie {
	if c.jar == nil {
		return nil
	}
	return session.CookiesFromHTTP(c.jar.Cookies(c.base))
}

func (c *Client) ResetCookies() {
	if c.jar != nil {
		c.jar.Reset()
	}
}

func (c *Client) seedCookies(s session.Session) {
	if !s.Present || len(s.Credential.Cookies) == 0 {
		return
	}

	cookies := make([]*http.Cookie, 0, len(s.Credential.Cookies))
	for _, stored := range s.Credential.Cookies {
		ck := stored.HTTP()
		if ck.Path == "" {
			ck.Path = "/"
		}
		cookies = append(cookies, ck)
	}
	c.jar.SetCookies(c.base, cookies)
}

func outcomeOf(err error) string {
	switch apierror.KindOf(err) {
	case apierror.KindBusiness:
		return outcomeBusiness
	case apierror.KindUnauthorized:
		return outcomeUnauthorized
	default:
		return outcomeNetwork
	}
}

// Do calls the gateway and decodes the success data into T.
func Do[T any](ctx context.Context, c Caller, method, path string, body any, query url.Values) (T, error) {
	raw, err := c.Call(ctx, method, path, body, query)
	if err != nil {
		var zero T
		return zero, err
	}
	return envelope.Into[T](raw)
}

// Exec calls the gateway for an operation whose data is irrelevant.
func Exec(ctx context.Context, c Caller, method, path string, body any) error {
	_, err := c.Call(ctx, method, path, body, nil)
	return err
}
