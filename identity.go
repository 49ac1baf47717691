package adminsession

import (
	"strconv"

	"github.com/honjaopseoye/adminsession/token"
)

// Identity is the cached description of the signed-in administrator shown by
// the shell.  It is persisted next to the token as JSON.
type Identity struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role token.Role `json:"role"`
}

// IdentityFromClaims derives the canonical identity from token claims.  The
// ID is the numeric user id when present and the subject otherwise; the name
// is looked up by role.
func IdentityFromClaims(c *token.Claims, cfg IdentityConfig) Identity {
	if c == nil {
		return Identity{Name: cfg.FallbackName}
	}

	id := c.Subject
	if c.UserID != 0 {
		id = strconv.FormatInt(c.UserID, 10)
	}

	name, ok := cfg.RoleNames[c.Role]
	if !ok || name == "" {
		name = cfg.FallbackName
	}

	return Identity{
		ID:   id,
		Name: name,
		Role: c.Role,
	}
}
