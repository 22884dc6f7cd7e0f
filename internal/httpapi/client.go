package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
	"github.com/adoptipet/adoptipet-client/pkg/logger"
	"github.com/adoptipet/adoptipet-client/pkg/metrics"
	"github.com/adoptipet/adoptipet-client/pkg/types"
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token with a nil error means "not logged in".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures the API client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Tokens     TokenSource
	Logger     *logger.Logger
	Metrics    *metrics.RequestMetrics
	HTTPClient *http.Client
}

// Client issues JSON requests against the AdoptiPet backend and normalizes
// every failure into a coded error. It never retries: failures surface to the
// caller synchronously.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    TokenSource
	logg      *logger.Logger
	metrics   *metrics.RequestMetrics
	userAgent string
}

func New(opts Options) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url must be absolute, got %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "adoptipet-client"
	}

	return &Client{
		baseURL:   parsed,
		http:      httpClient,
		tokens:    opts.Tokens,
		logg:      opts.Logger,
		metrics:   opts.Metrics,
		userAgent: userAgent,
	}, nil
}

// Do performs an authenticated call. Without a stored token it fails with an
// authentication error before any network traffic.
func (c *Client) Do(ctx context.Context, op, method, path string, body, out any) error {
	return c.do(ctx, op, method, path, body, out, true)
}

// DoPublic performs a call on an endpoint that does not require a session
// (login, catalog browsing). A token is still attached when one is available.
func (c *Client) DoPublic(ctx context.Context, op, method, path string, body, out any) error {
	return c.do(ctx, op, method, path, body, out, false)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any, authRequired bool) error {
	start := time.Now()
	err := c.roundTrip(ctx, op, method, path, body, out, authRequired)
	elapsed := time.Since(start)

	c.metrics.ObserveDuration(op, elapsed)
	if err != nil {
		c.metrics.IncFailure(op, string(pkgerrors.CodeOf(err)))
		return err
	}
	c.metrics.IncSuccess(op)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body, out any, authRequired bool) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}
	if authRequired && token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "veuillez vous connecter")
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		payload = bytes.NewReader(raw)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	endpoint := c.baseURL.JoinPath(ref.Path)
	endpoint.RawQuery = ref.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.logg != nil {
		logCtx := c.logg.WithRequestID(ctx, requestID)
		logCtx = c.logg.WithOperation(logCtx, op)
		c.logg.Debug(logCtx, fmt.Sprintf("%s %s", method, endpoint.Path))
		ctx = logCtx
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if c.logg != nil {
			c.logg.Warn(ctx, "api request failed: "+err.Error())
		}
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "impossible de contacter le serveur")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.normalizeFailure(ctx, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reponse du serveur illisible")
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reponse du serveur illisible")
	}
	return nil
}

// normalizeFailure converts a non-2xx response into a coded error, preferring
// the server's structured message over a generic one.
func (c *Client) normalizeFailure(ctx context.Context, resp *http.Response) error {
	code := pkgerrors.CodeForStatus(resp.StatusCode)
	message := fmt.Sprintf("le serveur a renvoye une erreur (%d)", resp.StatusCode)

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr == nil && len(raw) > 0 {
		var envelope types.ErrorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
	}

	err := pkgerrors.New(code, message).WithDetails(map[string]any{
		"status": resp.StatusCode,
	})
	if c.logg != nil {
		c.logg.Warn(ctx, "api error response: "+message)
	}
	return err
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lecture du jeton de session")
	}
	return strings.TrimSpace(token), nil
}
