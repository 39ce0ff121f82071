package config

import (
	"os"
	"strings"
	"time"
)

// StrictInvoiceStatusTransitions restricts status updates to the transition table
// instead of allowing any state from any state.
//
// Set via env:
// - STRICT_INVOICE_STATUS_TRANSITIONS=true
func StrictInvoiceStatusTransitions() bool {
	return boolFromEnv("STRICT_INVOICE_STATUS_TRANSITIONS", false)
}

// FollowUpProcessingEnabled runs the background worker that retries customer follow-ups.
// Default: on. Disable with FOLLOW_UP_PROCESSING=false when running the CLI retry as a job instead.
func FollowUpProcessingEnabled() bool {
	return boolFromEnv("FOLLOW_UP_PROCESSING", true)
}

// FollowUpMaxAttempts is the number of failed applications after which a follow-up is left dead.
func FollowUpMaxAttempts() int {
	n := intFromEnv("FOLLOW_UP_MAX_ATTEMPTS", 5)
	if n <= 0 {
		return 5
	}
	return n
}

// FollowUpStaleAfter is how long a PROCESSING follow-up may go untouched before the worker
// takes it over from the request that created it. Set via FOLLOW_UP_STALE_AFTER_SECONDS.
func FollowUpStaleAfter() time.Duration {
	n := intFromEnv("FOLLOW_UP_STALE_AFTER_SECONDS", 300)
	if n <= 0 {
		n = 300
	}
	return time.Duration(n) * time.Second
}

// StoreDriver selects the persistence backend: mysql (default), mongo or memory.
func StoreDriver() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if v == "" {
		return "mysql"
	}
	return v
}

// ArtifactProvider selects where rendered documents are staged: local (default) or gcs.
func ArtifactProvider() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ARTIFACT_PROVIDER")))
	if v == "" {
		return "local"
	}
	return v
}

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}
