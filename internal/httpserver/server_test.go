package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/freespacenet/fsn-rewards/internal/engine"
	"github.com/freespacenet/fsn-rewards/internal/ledger/memory"
	"github.com/freespacenet/fsn-rewards/internal/rules"
	userstoresqlite "github.com/freespacenet/fsn-rewards/internal/userstore/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ledgerStore := memory.New()
	identity, err := userstoresqlite.New(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("identity store: %v", err)
	}
	t.Cleanup(func() { _ = identity.Close() })

	eng := engine.New(rules.Defaults(), ledgerStore, engine.WithIdentity(identity))
	srv := httptest.NewServer(New(eng, ledgerStore, identity).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" || body["version"] == "" {
		t.Fatalf("health body = %v", body)
	}
}

func TestVaultUploadEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/events/vault-upload", map[string]string{"user_id": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result struct {
		UserID    string `json:"user_id"`
		XPGranted bool   `json:"xp_granted"`
		TotalXP   int64  `json:"total_xp"`
		Signal    string `json:"signal"`
	}
	decodeBody(t, resp, &result)
	if !result.XPGranted || result.TotalXP != 50 {
		t.Fatalf("upload result = %+v", result)
	}
	if result.Signal != "none" {
		t.Fatalf("signal at 50 XP = %s, want none", result.Signal)
	}
}

func TestEventRejectedQuietly(t *testing.T) {
	srv := newTestServer(t)

	// dailyLogin caps at 1/day; the second call still returns 200.
	postJSON(t, srv.URL+"/api/v1/events/login", map[string]string{"user_id": "u1"}).Body.Close()
	resp := postJSON(t, srv.URL+"/api/v1/events/login", map[string]string{"user_id": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("denied grant status = %d, want 200", resp.StatusCode)
	}
	var result struct {
		XPGranted bool   `json:"xp_granted"`
		Reason    string `json:"reason"`
	}
	decodeBody(t, resp, &result)
	if result.XPGranted || result.Reason != "daily_cap" {
		t.Fatalf("denied result = %+v", result)
	}
}

func TestEventMissingUserID(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/events/login", map[string]string{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGenericEventUnknownAction(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/events/retiredAction", map[string]string{"user_id": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var att struct {
		Granted bool   `json:"granted"`
		Reason  string `json:"reason"`
	}
	decodeBody(t, resp, &att)
	if att.Granted || att.Reason != "unknown_action" {
		t.Fatalf("attempt = %+v", att)
	}
}

func TestGenericEventRefusesInternalAction(t *testing.T) {
	// The referral payout is minted only by the engine's own orchestration;
	// reporting it directly must never award XP.
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/v1/events/referral", map[string]string{"user_id": "u1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	statusResp, err := http.Get(srv.URL + "/api/v1/users/u1/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var snap struct {
		TotalXP int64 `json:"total_xp"`
	}
	decodeBody(t, statusResp, &snap)
	if snap.TotalXP != 0 {
		t.Fatalf("refused action granted %d XP", snap.TotalXP)
	}
}

func TestNameClaimFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/names/claim", map[string]string{
		"user_id": "u1", "name": "Alice.rep",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claim status = %d", resp.StatusCode)
	}
	var claim struct {
		User struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
		Reward struct {
			XPGranted bool  `json:"xp_granted"`
			TotalXP   int64 `json:"total_xp"`
		} `json:"reward"`
	}
	decodeBody(t, resp, &claim)
	if claim.User.Name != "alice" || !claim.Reward.XPGranted || claim.Reward.TotalXP != 25 {
		t.Fatalf("claim = %+v", claim)
	}

	// Another user claiming the same name conflicts.
	resp = postJSON(t, srv.URL+"/api/v1/names/claim", map[string]string{
		"user_id": "u2", "name": "alice",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("conflicting claim status = %d, want 409", resp.StatusCode)
	}

	// Invalid names are a client error.
	resp = postJSON(t, srv.URL+"/api/v1/names/claim", map[string]string{
		"user_id": "u3", "name": "-bad-",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid claim status = %d, want 400", resp.StatusCode)
	}
}

func TestUserStatusAndLedger(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/api/v1/events/vault-upload", map[string]string{"user_id": "u1"}).Body.Close()
	postJSON(t, srv.URL+"/api/v1/events/login", map[string]string{"user_id": "u1"}).Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/users/u1/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var snap struct {
		TotalXP    int64  `json:"total_xp"`
		Signal     string `json:"signal"`
		PulseLabel string `json:"pulse_label"`
	}
	decodeBody(t, resp, &snap)
	if snap.TotalXP != 70 || snap.Signal != "basic" || snap.PulseLabel != "Initial Pulse" {
		t.Fatalf("snapshot = %+v", snap)
	}

	resp, err = http.Get(srv.URL + "/api/v1/users/u1/ledger?limit=10")
	if err != nil {
		t.Fatalf("GET ledger: %v", err)
	}
	var history struct {
		Events []struct {
			Action string `json:"action"`
			Amount int64  `json:"amount"`
		} `json:"events"`
	}
	decodeBody(t, resp, &history)
	if len(history.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(history.Events))
	}
	// Newest first: login happened after the upload.
	if history.Events[0].Action != "dailyLogin" || history.Events[1].Action != "vaultUpload" {
		t.Fatalf("event order = %+v", history.Events)
	}
}

func TestLedgerRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/users/u1/ledger?limit=9999")
	if err != nil {
		t.Fatalf("GET ledger: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRulesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/rules")
	if err != nil {
		t.Fatalf("GET rules: %v", err)
	}
	var body struct {
		Rules []struct {
			Action string `json:"action"`
			Amount int64  `json:"amount"`
		} `json:"rules"`
	}
	decodeBody(t, resp, &body)
	if len(body.Rules) != 6 {
		t.Fatalf("rules = %d, want 6", len(body.Rules))
	}
}
