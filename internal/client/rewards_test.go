package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReportVaultUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/events/vault-upload" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["user_id"] != "u1" {
			t.Errorf("user_id = %q", payload["user_id"])
		}
		json.NewEncoder(w).Encode(ActionResult{
			UserID: "u1", XPGranted: true, Reason: "ok", TotalXP: 50, Signal: "none",
		})
	}))
	defer srv.Close()

	c, err := NewRewardsClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRewardsClient: %v", err)
	}
	res, err := c.ReportVaultUpload(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ReportVaultUpload: %v", err)
	}
	if !res.XPGranted || res.TotalXP != 50 {
		t.Fatalf("result = %+v", res)
	}
}

func TestErrorPayloadSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "name already claimed"})
	}))
	defer srv.Close()

	c, err := NewRewardsClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRewardsClient: %v", err)
	}
	_, err = c.ClaimName(context.Background(), "u1", "alice", "")
	if err == nil || !strings.Contains(err.Error(), "name already claimed") {
		t.Fatalf("error = %v, want server message surfaced", err)
	}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/u1/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(StatusSnapshot{
			UserID: "u1", TotalXP: 120, Signal: "core", PulseLevel: 1, PulseLabel: "Initial Pulse",
		})
	}))
	defer srv.Close()

	c, _ := NewRewardsClient(srv.URL, nil)
	snap, err := c.GetStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if snap.Signal != "core" || snap.TotalXP != 120 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestGetLedgerLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user_id": "u1",
			"events":  []Event{{ID: "ev-1", UserID: "u1", Action: "dailyLogin", Amount: 20, TotalAfter: 20}},
		})
	}))
	defer srv.Close()

	c, _ := NewRewardsClient(srv.URL, nil)
	events, err := c.GetLedger(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	if len(events) != 1 || events[0].Action != "dailyLogin" {
		t.Fatalf("events = %+v", events)
	}
}

func TestInvalidBaseURL(t *testing.T) {
	if _, err := NewRewardsClient("://bad", nil); err == nil {
		t.Fatal("expected error for invalid base URL")
	}
}
