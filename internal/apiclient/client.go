// Package apiclient talks to the CitizenConnect REST API. Every method issues
// exactly one HTTP request and unwraps the {success, message, data} envelope.
package apiclient

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

	"citizenconnect/webclient/internal/domain"
)

type Options struct {
	BaseURL string
	// HTTP defaults to a plain *http.Client with no timeout.
	HTTP Doer
	// Timeout bounds each request; zero means no timeout.
	Timeout    time.Duration
	Middleware []Middleware
}

type Client struct {
	baseURL string
	doer    Doer
	timeout time.Duration

	Auth     *AuthAPI
	Users    *UsersAPI
	Issues   *IssuesAPI
	Feedback *FeedbackAPI
	Updates  *UpdatesAPI
	Comments *CommentsAPI
	Files    *FilesAPI
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", opts.BaseURL)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("api timeout must not be negative")
	}

	var doer Doer = opts.HTTP
	if doer == nil {
		doer = &http.Client{}
	}
	for i := len(opts.Middleware) - 1; i >= 0; i-- {
		if opts.Middleware[i] != nil {
			doer = opts.Middleware[i](doer)
		}
	}

	c := &Client{baseURL: base, doer: doer, timeout: opts.Timeout}
	c.Auth = &AuthAPI{c: c}
	c.Users = &UsersAPI{c: c}
	c.Issues = &IssuesAPI{c: c}
	c.Feedback = &FeedbackAPI{c: c}
	c.Updates = &UpdatesAPI{c: c}
	c.Comments = &CommentsAPI{c: c}
	c.Files = &FilesAPI{c: c}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	raw, _, err := c.send(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	return decodeData(raw, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, http.Header, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s %s response: %w", ErrNetwork, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, newAPIError(resp.StatusCode, raw)
	}
	return raw, resp.Header, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func decodeData(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func idPath(format string, ids ...int64) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return fmt.Sprintf(format, args...)
}
