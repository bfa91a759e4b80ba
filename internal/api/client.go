// Package api is the HTTP client for the chat backend's REST/JSON API.
//
// Every call returns either a typed value or an error that matches one of
// domain.ErrUnauthenticated, domain.ErrNetwork, domain.ErrMalformedResponse
// (via errors.Is) or a *domain.APIError (via errors.As). Nothing is retried.
package api

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
	"unicode/utf8"

	"github.com/google/uuid"

	"client_go/internal/domain"
)

const (
	maxResponseBytes = 4 << 20
	maxErrorText     = 200

	// IdempotencyHeader carries the client-generated key attached to every send.
	IdempotencyHeader = "Idempotency-Key"
)

// Authorizer supplies the session for authenticated calls. It returns
// domain.ErrUnauthenticated when there is none.
type Authorizer interface {
	Current(ctx context.Context) (*domain.Session, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	auth    Authorizer
	now     func() time.Time
	newKey  func() string
}

// NewClient builds a client for baseURL. timeout bounds each exchange;
// expiry surfaces as domain.ErrNetwork.
func NewClient(baseURL string, timeout time.Duration, auth Authorizer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		auth:    auth,
		now:     time.Now,
		newKey:  uuid.NewString,
	}
}

// request describes one exchange.
type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	authed  bool
	headers map[string]string
	// optionalBody tolerates an empty or unparseable success body, leaving out untouched.
	optionalBody bool
}

// do performs the exchange and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var token string
	if req.authed {
		sess, err := c.auth.Current(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", req.op, err)
		}
		token = sess.Token
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", req.op, err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", req.op, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w: %w", req.op, domain.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w", req.op, &domain.APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, raw),
		})
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if req.optionalBody {
			return nil
		}
		return fmt.Errorf("%s: empty body: %w", req.op, domain.ErrMalformedResponse)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if req.optionalBody {
			return nil
		}
		return fmt.Errorf("%s: %w: %v", req.op, domain.ErrMalformedResponse, err)
	}
	return nil
}

// errorMessage extracts a display message from an error body. JSON bodies
// are searched for "message" then "error"; plain text is used verbatim.
func errorMessage(status int, raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(raw))
	if text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		if len(text) > maxErrorText {
			cut := maxErrorText
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		return text
	}
	return http.StatusText(status)
}

func wrapOp(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
