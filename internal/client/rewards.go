package client

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
)

// HTTPClient abstracts the Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RewardsClient communicates with a running rewards daemon.
type RewardsClient struct {
	baseURL    *url.URL
	httpClient HTTPClient
}

// NewRewardsClient constructs a client using the provided base URL.
func NewRewardsClient(baseURL string, httpClient HTTPClient) (*RewardsClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RewardsClient{baseURL: parsed, httpClient: httpClient}, nil
}

// Rule mirrors one row of the daemon's rule table.
type Rule struct {
	Action          string `json:"action"`
	Amount          int64  `json:"amount"`
	CooldownSeconds int64  `json:"cooldown_seconds"`
	MaxPerDay       int    `json:"max_per_day"`
	Internal        bool   `json:"internal,omitempty"`
}

// ActionResult mirrors the daemon's response to a reported action.
type ActionResult struct {
	UserID            string   `json:"user_id"`
	XPGranted         bool     `json:"xp_granted"`
	Reason            string   `json:"reason"`
	ReferralXPGranted bool     `json:"referral_xp_granted"`
	TotalXP           int64    `json:"total_xp"`
	Signal            string   `json:"signal"`
	PulseLevel        int      `json:"pulse_level"`
	PulseLabel        string   `json:"pulse_label"`
	PulseQualified    bool     `json:"pulse_qualified"`
	StreakDays        int      `json:"streak_days"`
	BeaconEligible    bool     `json:"beacon_eligible"`
	UpdatedFields     []string `json:"updated_fields,omitempty"`
}

// Attempt mirrors the daemon's bare grant outcome for generic actions.
type Attempt struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
	Amount  int64  `json:"amount,omitempty"`
	TotalXP int64  `json:"total_xp"`
}

// StatusSnapshot mirrors the daemon's derived-status payload.
type StatusSnapshot struct {
	UserID             string `json:"user_id"`
	TotalXP            int64  `json:"total_xp"`
	Signal             string `json:"signal"`
	PulseLevel         int    `json:"pulse_level"`
	PulseLabel         string `json:"pulse_label"`
	PulseActive        bool   `json:"pulse_active"`
	StreakDays         int    `json:"streak_days"`
	BeaconEligible     bool   `json:"beacon_eligible"`
	ReferralBonusGiven bool   `json:"referral_bonus_given"`
}

// Event is one row of a user's XP history.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Amount     int64     `json:"amount"`
	TotalAfter int64     `json:"total_after"`
	CreatedAt  time.Time `json:"created_at"`
}

// User mirrors a claimed identity record.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	ReferrerID string `json:"referrer_id,omitempty"`
	Status     string `json:"status"`
}

// NameClaimResult pairs the claimed identity with the claim reward.
type NameClaimResult struct {
	User   User         `json:"user"`
	Reward ActionResult `json:"reward"`
}

// errorResponse matches the standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

func (c *RewardsClient) post(ctx context.Context, path string, payload any, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, payload, out)
}

func (c *RewardsClient) get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *RewardsClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	rel, err := url.Parse(path)
	if err != nil {
		return err
	}
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var errPayload errorResponse
		if err := json.Unmarshal(data, &errPayload); err == nil && strings.TrimSpace(errPayload.Error) != "" {
			return fmt.Errorf("rewards error: %s", errPayload.Error)
		}
		return fmt.Errorf("rewards error: status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type eventPayload struct {
	UserID string `json:"user_id"`
}

// ReportVaultUpload reports a completed vault upload for the user.
func (c *RewardsClient) ReportVaultUpload(ctx context.Context, userID string) (ActionResult, error) {
	return c.reportEvent(ctx, "/api/v1/events/vault-upload", userID)
}

// ReportLogin reports a daily login for the user.
func (c *RewardsClient) ReportLogin(ctx context.Context, userID string) (ActionResult, error) {
	return c.reportEvent(ctx, "/api/v1/events/login", userID)
}

// ReportProfileUpdate reports a profile edit for the user.
func (c *RewardsClient) ReportProfileUpdate(ctx context.Context, userID string) (ActionResult, error) {
	return c.reportEvent(ctx, "/api/v1/events/profile-update", userID)
}

// ReportAgentMessage reports an agent conversation message for the user.
func (c *RewardsClient) ReportAgentMessage(ctx context.Context, userID string) (ActionResult, error) {
	return c.reportEvent(ctx, "/api/v1/events/agent-message", userID)
}

func (c *RewardsClient) reportEvent(ctx context.Context, path, userID string) (ActionResult, error) {
	var resp ActionResult
	if err := c.post(ctx, path, eventPayload{UserID: userID}, &resp); err != nil {
		return ActionResult{}, err
	}
	return resp, nil
}

// ReportAction reports an arbitrary action by name.
func (c *RewardsClient) ReportAction(ctx context.Context, userID, action string) (Attempt, error) {
	var resp Attempt
	path := "/api/v1/events/" + url.PathEscape(action)
	if err := c.post(ctx, path, eventPayload{UserID: userID}, &resp); err != nil {
		return Attempt{}, err
	}
	return resp, nil
}

// ClaimName registers a .rep name, optionally crediting a referrer.
func (c *RewardsClient) ClaimName(ctx context.Context, userID, name, referrer string) (NameClaimResult, error) {
	payload := struct {
		UserID   string `json:"user_id"`
		Name     string `json:"name"`
		Referrer string `json:"referrer,omitempty"`
	}{UserID: userID, Name: name, Referrer: referrer}

	var resp NameClaimResult
	if err := c.post(ctx, "/api/v1/names/claim", payload, &resp); err != nil {
		return NameClaimResult{}, err
	}
	return resp, nil
}

// GetStatus fetches the derived status for a user.
func (c *RewardsClient) GetStatus(ctx context.Context, userID string) (StatusSnapshot, error) {
	var resp StatusSnapshot
	path := "/api/v1/users/" + url.PathEscape(userID) + "/status"
	if err := c.get(ctx, path, &resp); err != nil {
		return StatusSnapshot{}, err
	}
	return resp, nil
}

// GetLedger fetches the most recent XP events for a user.
func (c *RewardsClient) GetLedger(ctx context.Context, userID string, limit int) ([]Event, error) {
	path := "/api/v1/users/" + url.PathEscape(userID) + "/ledger"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var resp struct {
		Events []Event `json:"events"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// GetRules retrieves the active rule table.
func (c *RewardsClient) GetRules(ctx context.Context) ([]Rule, error) {
	var resp struct {
		Rules []Rule `json:"rules"`
	}
	if err := c.get(ctx, "/api/v1/rules", &resp); err != nil {
		return nil, err
	}
	return resp.Rules, nil
}
