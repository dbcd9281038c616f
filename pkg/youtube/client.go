package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
)

// Client is an HTTP client for the YouTube Data API v3
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a YouTube API client
func NewClient(apiKey string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:  apiKey,
		baseURL: BaseURL,
		logger:  log,
	}
}

// SetBaseURL overrides the API base URL, used by tests
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// GetJSON performs a GET request and decodes the JSON response into target
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.DebugWithFields("sending YouTube API request", map[string]interface{}{
		"url": req.URL.Path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("YouTube API request failed", map[string]interface{}{
			"url":      req.URL.Path,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return errs.New(errs.ErrorTypeNetwork, "network error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.NewWithCode(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	c.logger.DebugWithFields("YouTube API request completed", map[string]interface{}{
		"url":      req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode != http.StatusOK {
		return c.classifyError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse YouTube API response", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.NewWithCode(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

// classifyError maps an API error response to a pipeline error type
func (c *Client) classifyError(status int, body []byte) error {
	var envelope errorResponse
	message := http.StatusText(status)
	reason := ""
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
		if len(envelope.Error.Errors) > 0 {
			reason = envelope.Error.Errors[0].Reason
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return errs.NewWithCode(errs.ErrorTypeRateLimit, status, "rate limited: %s", message)
	case status == http.StatusForbidden && isQuotaReason(reason):
		return errs.NewWithCode(errs.ErrorTypeRateLimit, status, "quota exhausted: %s", message)
	case status == http.StatusForbidden, status == http.StatusUnauthorized:
		return errs.NewWithCode(errs.ErrorTypeAuth, status, "access denied: %s", message)
	case status == http.StatusBadRequest && reason == "keyInvalid":
		return errs.NewWithCode(errs.ErrorTypeAuth, status, "invalid API key")
	case status == http.StatusNotFound:
		return errs.NewWithCode(errs.ErrorTypeNotFound, status, "not found: %s", message)
	case status >= 500:
		return errs.NewWithCode(errs.ErrorTypeServerError, status, "server error: %s", message)
	default:
		return errs.NewWithCode(errs.ErrorTypeUnknown, status, "unexpected status: %s", message)
	}
}

func isQuotaReason(reason string) bool {
	return strings.Contains(reason, "quota") || strings.Contains(reason, "rateLimit")
}
