package auth

import (
	"net/http"
	"strings"
)

// AdminConfig holds the admin allowlist.
type AdminConfig struct {
	ids map[string]struct{}
}

// NewAdminConfig parses a comma-separated list of admin player IDs.
func NewAdminConfig(playerIDs string) *AdminConfig {
	cfg := &AdminConfig{ids: make(map[string]struct{})}
	for _, id := range strings.Split(playerIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.ids[id] = struct{}{}
		}
	}
	return cfg
}

// IsAdmin reports whether a player ID is on the allowlist.
func (c *AdminConfig) IsAdmin(playerID string) bool {
	_, ok := c.ids[playerID]
	return ok
}

// Middleware rejects requests whose session does not belong to an admin.
func (c *AdminConfig) Middleware(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			player, err := sessions.GetPlayer(r.Context(), r)
			if err != nil || player == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !c.IsAdmin(player.ID) {
				http.Error(w, "Forbidden: Admin access required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
