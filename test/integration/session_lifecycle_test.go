package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func sessionCheck(t *testing.T, baseURL string, cookies []*http.Cookie) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+"/auth/session", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var env envelope
	_ = json.Unmarshal(raw, &env)
	return resp, env
}

func TestSessionLifecycleGrantCheckLogout(t *testing.T) {
	srv := newGateServer(t)

	// no cookie yet
	resp, env := sessionCheck(t, srv.URL, nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "NO_SESSION" {
		t.Fatalf("expected NO_SESSION before grant, got %d %+v", resp.StatusCode, env.Error)
	}

	grant, genv, raw := postValidate(t, srv.URL, "device-lifecycle", testPin, nil)
	if grant.StatusCode != http.StatusOK || !genv.Success {
		t.Fatalf("grant failed: %d %s", grant.StatusCode, raw)
	}
	cookies := grant.Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie on grant")
	}

	resp, env = sessionCheck(t, srv.URL, cookies)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session check after grant = %d", resp.StatusCode)
	}
	var sess struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(env.Data, &sess); err != nil || sess.SessionID == "" {
		t.Fatalf("unexpected session payload: %s err=%v", env.Data, err)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/logout", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	out, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	out.Body.Close()
	if out.StatusCode != http.StatusOK {
		t.Fatalf("logout = %d", out.StatusCode)
	}

	// the revoked token no longer passes the session check
	resp, env = sessionCheck(t, srv.URL, cookies)
	if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "NO_SESSION" {
		t.Fatalf("expected NO_SESSION after logout, got %d %+v", resp.StatusCode, env.Error)
	}
}

func TestAttemptHistoryAcrossRequests(t *testing.T) {
	srv := newGateServer(t)

	postValidate(t, srv.URL, "device-history", "000000", nil)
	postValidate(t, srv.URL, "device-history", testPin, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/pin-attempts", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Client-Key", "device-history")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pin-attempts = %d: %s", resp.StatusCode, raw)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatal(err)
	}
	var rows []struct {
		Success      bool `json:"success"`
		AttemptsLeft int  `json:"attemptsLeft"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		t.Fatalf("decode rows: %v: %s", err, raw)
	}
	if len(rows) != 2 || !rows[0].Success || rows[1].Success {
		t.Fatalf("unexpected attempt rows: %s", raw)
	}
}
