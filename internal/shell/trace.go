package shell

import (
	"strings"

	"github.com/hashicorp/go-hclog"
)

var sensitiveSuffixes = []string{"TOKEN", "SECRET", "PASSWORD", "SECRET_ACCESS_KEY", "API_KEY", "_AUTH_SOCK"}

// logEnvironmentTrace logs the child environment at trace level with secret
// values redacted.
func logEnvironmentTrace(logger hclog.Logger, env []string) {
	if !logger.IsTrace() {
		return
	}

	logger.Trace("environment for subprocess", "count", len(env))
	for _, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if isSensitiveKey(key) {
			value = "***"
		}
		logger.Trace("env", "key", key, "value", value)
	}
}

// isSensitiveKey reports whether an environment variable likely holds a credential.
func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, s := range sensitiveSuffixes {
		if strings.HasSuffix(upper, s) {
			return true
		}
	}
	return false
}
