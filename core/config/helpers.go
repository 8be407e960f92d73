package config

import (
	"os"
	"strconv"
	"strings"
)

// GetAllSettings returns a map of the dynamic settings currently loaded in
// memory, for the monitoring endpoint.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_version":                      Global.App.Version,
		"app_debug":                        Global.App.Debug,
		"engine_default_school_id":         Global.Engine.DefaultSchoolID,
		"engine_rule_cache_ttl_seconds":    Global.Engine.RuleCacheTTLSeconds,
		"engine_pending_pin_ttl_seconds":   Global.Engine.PendingPinTTLSeconds,
		"engine_storage_timeout_ms":        Global.Engine.StorageTimeoutMs,
		"engine_emergency_sweep_ms":        Global.Engine.EmergencySweepMs,
		"notify_admin_webhooks_configured": len(Global.Notify.AdminWebhooks),
		"valkey_enabled":                   Global.Database.ValkeyEnabled,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}
