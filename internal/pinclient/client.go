// Package pinclient is the HTTP client for the gate's two remote operations.
// Responses are normalized into tagged results at this boundary so the state
// machine never inspects raw payload fields.
package pinclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

type Outcome string

const (
	OutcomeGranted     Outcome = "granted"
	OutcomeInvalidPIN  Outcome = "invalid_pin"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeLocked      Outcome = "locked"
)

// AttemptsUnknown marks a response that carried no attempt budget.
const AttemptsUnknown = -1

type Status struct {
	AttemptsLeft int
	LockedUntil  *time.Time
}

type Result struct {
	Outcome      Outcome
	SessionID    string
	ExpiresAt    time.Time
	AttemptsLeft int
	LockedUntil  *time.Time
	Message      string
}

type Client struct {
	baseURL    string
	clientKey  string
	httpClient *http.Client
}

func New(baseURL, clientKey string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL:   baseURL,
		clientKey: clientKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}, nil
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details struct {
		AttemptsLeft *int   `json:"attemptsLeft"`
		LockedUntil  string `json:"lockedUntil"`
	} `json:"details"`
}

type wireEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		SessionID    string `json:"sessionId"`
		ExpiresAt    string `json:"expiresAt"`
		AttemptsLeft *int   `json:"attemptsLeft"`
		LockedUntil  string `json:"lockedUntil"`
	} `json:"data"`
	Error *wireError `json:"error"`
}

func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/pin-status", nil)
	if err != nil {
		return Status{}, err
	}
	req.Header.Set("X-Client-Key", c.clientKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	var env wireEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Status{}, fmt.Errorf("decode pin status: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return Status{}, fmt.Errorf("pin status returned %d", resp.StatusCode)
	}

	status := Status{AttemptsLeft: AttemptsUnknown}
	if env.Data.AttemptsLeft != nil {
		status.AttemptsLeft = *env.Data.AttemptsLeft
	}
	status.LockedUntil = parseTimestamp(env.Data.LockedUntil)
	return status, nil
}

// Validate submits a PIN. Expected rejections (wrong PIN, lock, rate limit)
// come back as Results; only transport and decode problems are errors. The
// error-scope header keeps rejections out of any global error handling.
func (c *Client) Validate(ctx context.Context, pin string) (Result, error) {
	body, err := json.Marshal(map[string]string{"pin": pin})
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/validate-pin", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Key", c.clientKey)
	req.Header.Set("X-Error-Scope", "local")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var env wireEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Result{}, fmt.Errorf("decode validate response: %w", err)
	}
	return c.mapValidate(resp.StatusCode, env)
}

// Logout asks the server to revoke the current session. Safe to call without
// one; the server treats that as already logged out.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Client-Key", c.clientKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout returned %d", resp.StatusCode)
	}
	return nil
}

// HasSessionCookie reports whether the jar holds a session cookie from a
// previous grant, the alternate already-has-a-session signal at bootstrap.
func (c *Client) HasSessionCookie() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == "pin_session" && cookie.Value != "" {
			return true
		}
	}
	return false
}

func (c *Client) mapValidate(statusCode int, env wireEnvelope) (Result, error) {
	if statusCode == http.StatusOK && env.Success {
		expiresAt := parseTimestamp(env.Data.ExpiresAt)
		if env.Data.SessionID == "" || expiresAt == nil {
			return Result{}, fmt.Errorf("grant response missing session fields")
		}
		return Result{
			Outcome:      OutcomeGranted,
			SessionID:    env.Data.SessionID,
			ExpiresAt:    *expiresAt,
			AttemptsLeft: AttemptsUnknown,
		}, nil
	}

	res := Result{AttemptsLeft: AttemptsUnknown}
	if env.Error != nil {
		res.Message = env.Error.Message
		if env.Error.Details.AttemptsLeft != nil {
			res.AttemptsLeft = *env.Error.Details.AttemptsLeft
		}
		res.LockedUntil = parseTimestamp(env.Error.Details.LockedUntil)
	}

	// A lockedUntil in any rejection means locked, whatever the status code.
	if res.LockedUntil != nil {
		res.Outcome = OutcomeLocked
		return res, nil
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		res.Outcome = OutcomeRateLimited
		return res, nil
	case statusCode == http.StatusUnauthorized:
		res.Outcome = OutcomeInvalidPIN
		return res, nil
	case env.Error != nil && env.Error.Code == "LOCKED":
		res.Outcome = OutcomeLocked
		return res, nil
	}
	return Result{}, fmt.Errorf("validate returned %d", statusCode)
}

func parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
