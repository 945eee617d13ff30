package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/dmitrijs2005/blogclient/internal/logging"
	"github.com/google/uuid"
)

// Gateway is the transport contract the stores depend on.
type Gateway interface {
	// Send performs one request. body, when non-nil, is sent as JSON; out,
	// when non-nil, receives the envelope's data member.
	Send(ctx context.Context, method, path string, body any, query url.Values, out any) error
}

// CredentialSource supplies the bearer token and is cleared on a 401.
type CredentialSource interface {
	Token() string
	Clear(ctx context.Context) error
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

type HTTPGateway struct {
	baseURL string
	client  *http.Client
	creds   CredentialSource
	log     logging.Logger

	mu        sync.Mutex
	listeners []func()
}

// NewHTTPGateway builds a gateway for the service rooted at baseURL
// (e.g. "http://localhost:5000/api"). timeout bounds each request; zero
// means no client-side limit.
func NewHTTPGateway(baseURL string, timeout time.Duration, creds CredentialSource, log logging.Logger) (*HTTPGateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", baseURL)
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(u.String(), "/"),
		client:  &http.Client{Timeout: timeout},
		creds:   creds,
		log:     logging.OrNop(log).With("component", "gateway"),
	}, nil
}

// OnUnauthorized registers fn to run after a 401 has cleared the credential.
func (g *HTTPGateway) OnUnauthorized(fn func()) {
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

func (g *HTTPGateway) Send(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	req, reqID, err := g.newRequest(ctx, method, path, body, query)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn(ctx, "request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return &HTTPError{Message: err.Error(), err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	g.log.Debug(ctx, "request done",
		"method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start), "request_id", reqID)

	if resp.StatusCode == http.StatusUnauthorized {
		msg := readMessage(resp.Body, resp.StatusCode)
		g.escalateUnauthorized(ctx)
		return NewHTTPError(resp.StatusCode, msg)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewHTTPError(resp.StatusCode, readMessage(resp.Body, resp.StatusCode))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeData(resp, out)
}

func (g *HTTPGateway) newRequest(ctx context.Context, method, path string, body any, query url.Values) (*http.Request, string, error) {
	target := g.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.creds != nil {
		if tok := g.creds.Token(); tok != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
		}
	}
	return req, reqID, nil
}

// escalateUnauthorized clears the credential and tells every listener, even
// if the original request's context is already done.
func (g *HTTPGateway) escalateUnauthorized(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if g.creds != nil {
		if err := g.creds.Clear(ctx); err != nil {
			g.log.Error(ctx, "clear credential after 401", "error", err)
		}
	}
	g.log.Info(ctx, "session rejected by server, credential cleared")

	g.mu.Lock()
	listeners := append([]func(){}, g.listeners...)
	g.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func decodeData(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &HTTPError{Status: resp.StatusCode, Message: err.Error(), err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &HTTPError{Status: resp.StatusCode, Message: "malformed response from server", err: err}
	}
	data := env.Data
	if len(data) == 0 || string(data) == "null" {
		// Some endpoints answer without the envelope.
		data = raw
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &HTTPError{Status: resp.StatusCode, Message: "malformed response from server", err: err}
	}
	return nil
}

// readMessage extracts the service's error message, falling back to the
// status text.
func readMessage(r io.Reader, status int) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	var alt struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &alt); err == nil && alt.Error != "" {
		return alt.Error
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

var _ Gateway = (*HTTPGateway)(nil)

// IsUnauthorized reports whether err came from a 401 escalation.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
