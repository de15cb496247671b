package rewards

import (
	internalcfg "github.com/freespacenet/fsn-rewards/internal/config"
)

// Config re-exports the daemon's configuration structure so deployment
// tooling can reuse the same parsed values without importing internal
// packages.
type Config = internalcfg.RewardsConfig

// LoadConfig delegates to the internal loader while keeping the consumer API
// inside the public pkg/rewards namespace.
func LoadConfig(root string) (Config, error) {
	return internalcfg.Load(root)
}
