package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialingest/pkg/auth"
	errs "socialingest/pkg/errors"
)

// FetchCSRFToken primes the login flow by requesting the landing page and
// reading the csrftoken cookie it sets.
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", errs.New(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	token := ResponseCookie(resp, "csrftoken")
	if token == "" {
		return "", errs.New(errs.ErrorTypeAuth, "no csrf token in landing response")
	}
	return token, nil
}

// Login performs the credential login flow and returns the resulting session.
// A "please wait" rejection maps to a rate-limit error so the caller can
// record it against the limiter; any other rejection is an auth error.
func (c *Client) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	csrf, err := c.FetchCSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, LoginURL(c.baseURL), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrf)
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: csrf})

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewWithCode(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read login response: %v", err)
	}

	var login LoginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return nil, errs.NewWithCode(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse login response: %v", err)
	}

	if IsWaitMessage(login.Message) || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errs.NewWithCode(errs.ErrorTypeRateLimit, resp.StatusCode, "login throttled: %s", login.Message)
	}
	if !login.Authenticated {
		return nil, errs.NewWithCode(errs.ErrorTypeAuth, resp.StatusCode, "login rejected for %s", username)
	}

	sessionID := ResponseCookie(resp, "sessionid")
	if sessionID == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "login succeeded but no session cookie set")
	}
	if token := ResponseCookie(resp, "csrftoken"); token != "" {
		csrf = token
	}

	session := &auth.Session{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrf,
		UserID:    login.UserID,
		UserAgent: c.userAgent(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return session, nil
}
