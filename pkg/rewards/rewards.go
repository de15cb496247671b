// Package rewards is the public client surface for the FreeSpace reward
// daemon. It re-exports the internal HTTP client so integrations never import
// internal packages directly.
package rewards

import (
	"github.com/freespacenet/fsn-rewards/internal/client"
)

type Client = client.RewardsClient
type HTTPClient = client.HTTPClient

func NewClient(baseURL string, httpClient client.HTTPClient) (*client.RewardsClient, error) {
	return client.NewRewardsClient(baseURL, httpClient)
}

type Rule = client.Rule
type ActionResult = client.ActionResult
type Attempt = client.Attempt
type StatusSnapshot = client.StatusSnapshot
type Event = client.Event
type User = client.User
type NameClaimResult = client.NameClaimResult
