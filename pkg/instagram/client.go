package instagram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"socialingest/pkg/auth"
	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Client is an HTTP client for the Instagram web API, optionally carrying an
// authenticated session's cookies. Attaching a session mid-flight is safe:
// the session and header map are guarded against concurrent requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     logger.Logger

	mu      sync.RWMutex
	headers map[string]string
	session *auth.Session
}

// NewClient creates an Instagram API client
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":       userAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-Requested-With": "XMLHttpRequest",
			"X-IG-App-ID":      "936619743392459",
		},
		baseURL: BaseURL,
		logger:  log,
	}
}

// SetBaseURL overrides the API base URL, used by tests
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// SetSession attaches an authenticated session's cookies to every request
func (c *Client) SetSession(session *auth.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	if session != nil && session.UserAgent != "" {
		c.headers["User-Agent"] = session.UserAgent
	}
}

// Session returns the currently attached session, nil when unauthenticated
func (c *Client) Session() *auth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// userAgent returns the User-Agent header currently in effect
func (c *Client) userAgent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers["User-Agent"]
}

// applyHeaders sets the configured headers and session cookies on a request
func (c *Client) applyHeaders(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.session != nil {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.session.SessionID})
		if c.session.CSRFToken != "" {
			req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.session.CSRFToken})
			req.Header.Set("X-CSRFToken", c.session.CSRFToken)
		}
		if c.session.UserID != "" {
			req.AddCookie(&http.Cookie{Name: "ds_user_id", Value: c.session.UserID})
		}
	}
}

// doRequest performs one HTTP round trip with logging
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	c.applyHeaders(req)

	start := time.Now()
	c.logger.DebugWithFields("sending Instagram request", map[string]interface{}{
		"method": req.Method,
		"path":   req.URL.Path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("Instagram request failed", map[string]interface{}{
			"method":   req.Method,
			"path":     req.URL.Path,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errs.New(errs.ErrorTypeNetwork, "network error: %v", err)
	}

	c.logger.DebugWithFields("Instagram request completed", map[string]interface{}{
		"method":   req.Method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response into target
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, target)
}

// PostForm performs a POST with form-encoded values and decodes the response
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, target)
}

// ResponseCookie returns a cookie value set by the last response
func ResponseCookie(resp *http.Response, name string) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// decodeResponse checks the status, reads the body and unmarshals JSON.
// Instagram signals throttling both with 429 and with a 200 "fail" payload
// asking the caller to wait; both map to a rate-limit error.
func (c *Client) decodeResponse(resp *http.Response, target interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.NewWithCode(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := c.checkStatus(resp.StatusCode, body); err != nil {
		return err
	}
	if target == nil {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse Instagram response", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.NewWithCode(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	if IsWaitMessage(failMessage(body)) {
		return errs.NewWithCode(errs.ErrorTypeRateLimit, resp.StatusCode, "platform asked to wait")
	}
	return nil
}

// checkStatus maps an HTTP status to a pipeline error
func (c *Client) checkStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return errs.NewWithCode(errs.ErrorTypeRateLimit, status, "too many requests")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.NewWithCode(errs.ErrorTypeAuth, status, "authentication required")
	case status == http.StatusNotFound:
		return errs.NewWithCode(errs.ErrorTypeNotFound, status, "not found")
	case status >= 500:
		return errs.NewWithCode(errs.ErrorTypeServerError, status, "server returned status %d", status)
	default:
		if msg := failMessage(body); msg != "" {
			return errs.NewWithCode(errs.ErrorTypeUnknown, status, "request failed: %s", msg)
		}
		return errs.NewWithCode(errs.ErrorTypeUnknown, status, "unexpected status %d", status)
	}
}

// failMessage extracts the message of a {"status":"fail"} payload
func failMessage(body []byte) string {
	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Status == "fail" {
		return payload.Message
	}
	return ""
}

// IsWaitMessage reports whether a platform message is the throttling
// "please wait" rejection.
func IsWaitMessage(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "please wait") || strings.Contains(m, "wait a few minutes")
}

// IsRateLimitError reports whether an error is the platform's rate-limit signal
func IsRateLimitError(err error) bool {
	apiErr, ok := err.(*errs.Error)
	return ok && apiErr.Type == errs.ErrorTypeRateLimit
}
