package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// FormatPrometheus formats metrics in Prometheus text format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func FormatPrometheus(snap Snapshot) string {
	var sb strings.Builder

	sb.WriteString("# HELP fsn_rewards_uptime_seconds Time since the reward service started\n")
	sb.WriteString("# TYPE fsn_rewards_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("fsn_rewards_uptime_seconds %d\n", snap.Uptime))
	sb.WriteString("\n")

	sb.WriteString("# HELP fsn_rewards_grants_total Successful XP grants by action\n")
	sb.WriteString("# TYPE fsn_rewards_grants_total counter\n")
	for _, action := range sortedKeys(snap.GrantsByAction) {
		sb.WriteString(fmt.Sprintf("fsn_rewards_grants_total{action=%q} %d\n", action, snap.GrantsByAction[action]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP fsn_rewards_denials_total Denied grant attempts by reason\n")
	sb.WriteString("# TYPE fsn_rewards_denials_total counter\n")
	for _, reason := range sortedKeys(snap.DenialsByReason) {
		sb.WriteString(fmt.Sprintf("fsn_rewards_denials_total{reason=%q} %d\n", reason, snap.DenialsByReason[reason]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP fsn_rewards_action_denials_total Denied grant attempts by action\n")
	sb.WriteString("# TYPE fsn_rewards_action_denials_total counter\n")
	for _, action := range sortedKeys(snap.DenialsByAction) {
		sb.WriteString(fmt.Sprintf("fsn_rewards_action_denials_total{action=%q} %d\n", action, snap.DenialsByAction[action]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP fsn_rewards_xp_awarded_total Total XP awarded\n")
	sb.WriteString("# TYPE fsn_rewards_xp_awarded_total counter\n")
	sb.WriteString(fmt.Sprintf("fsn_rewards_xp_awarded_total %d\n", snap.TotalXPAwarded))
	sb.WriteString("\n")

	sb.WriteString("# HELP fsn_rewards_xp_by_action_total XP awarded by action\n")
	sb.WriteString("# TYPE fsn_rewards_xp_by_action_total counter\n")
	for _, action := range sortedKeys(snap.XPByAction) {
		sb.WriteString(fmt.Sprintf("fsn_rewards_xp_by_action_total{action=%q} %d\n", action, snap.XPByAction[action]))
	}
	sb.WriteString("\n")

	sb.WriteString("# HELP fsn_rewards_referral_bonuses_total Referral bonuses paid out\n")
	sb.WriteString("# TYPE fsn_rewards_referral_bonuses_total counter\n")
	sb.WriteString(fmt.Sprintf("fsn_rewards_referral_bonuses_total %d\n", snap.ReferralBonuses))

	return sb.String()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
