package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestValidateDefaultEnvelopeOnWrongPin(t *testing.T) {
	srv := newGateServer(t)

	resp, env, _ := postValidate(t, srv.URL, "envelope-client", "000000", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Fatalf("content type = %q", got)
	}
	if env.Error == nil || env.Error.Code != "INVALID_PIN" {
		t.Fatalf("error = %+v, want INVALID_PIN", env.Error)
	}
	var attemptsLeft int
	if err := json.Unmarshal(env.Error.Details["attemptsLeft"], &attemptsLeft); err != nil || attemptsLeft != 2 {
		t.Fatalf("details.attemptsLeft = %s (err %v), want 2", env.Error.Details["attemptsLeft"], err)
	}
}

func TestValidateProblemJSONNegotiation(t *testing.T) {
	srv := newGateServer(t)

	resp, _, raw := postValidate(t, srv.URL, "problem-client", "not-a-pin", map[string]string{
		"Accept": "application/problem+json",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); !strings.HasPrefix(got, "application/problem+json") {
		t.Fatalf("content type = %q, want problem+json", got)
	}

	var problem struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Status int    `json:"status"`
	}
	if err := json.Unmarshal([]byte(raw), &problem); err != nil {
		t.Fatalf("unmarshal problem: %v; raw=%q", err, raw)
	}
	if problem.Type != "urn:problem:pingate:bad-request" {
		t.Fatalf("type = %q", problem.Type)
	}
	if problem.Status != http.StatusBadRequest {
		t.Fatalf("status field = %d", problem.Status)
	}
}

func TestLockedResponseCarriesLockedUntil(t *testing.T) {
	srv := newGateServer(t)

	for i := 0; i < 2; i++ {
		postValidate(t, srv.URL, "locked-client", "000000", nil)
	}
	resp, env, _ := postValidate(t, srv.URL, "locked-client", "000000", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "LOCKED" {
		t.Fatalf("error = %+v, want LOCKED", env.Error)
	}
	if _, ok := env.Error.Details["lockedUntil"]; !ok {
		t.Fatalf("details missing lockedUntil: %+v", env.Error.Details)
	}
}
