// Package auth guards the HTTP control surface with a static API key
// check, adapted down from the teacher's three-tier
// static-keys/local-cache/Redis Authenticator: the control surface has
// no per-vehicle key provisioning to cache or look up dynamically in
// Redis, only a fixed operator allowlist from config, so only the
// teacher's level-0 static-key tier survives here.
package auth

import (
	"github.com/seawatch/trackwatch/internal/config"
)

// Authenticator validates API keys presented to the control surface
// against the configured allowlist.
type Authenticator struct {
	staticKeys map[string]bool
}

// New builds an Authenticator from cfg.ValidAPIKeys.
func New(cfg *config.Config) *Authenticator {
	staticKeys := make(map[string]bool, len(cfg.ValidAPIKeys))
	for _, k := range cfg.ValidAPIKeys {
		if k != "" {
			staticKeys[k] = true
		}
	}
	return &Authenticator{staticKeys: staticKeys}
}

// Validate reports whether apiKey is in the allowlist. An empty
// allowlist accepts every key, for local/dev use without a static
// operator roster.
func (a *Authenticator) Validate(apiKey string) bool {
	if len(a.staticKeys) == 0 {
		return true
	}
	return a.staticKeys[apiKey]
}
