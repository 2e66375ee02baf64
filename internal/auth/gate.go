package auth

import (
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
)

// Gate resolves request credentials to identities and checks roles. It keeps
// no per-session state.
type Gate struct {
	tokens *Tokens
}

func NewGate(tokens *Tokens) *Gate {
	return &Gate{tokens: tokens}
}

// Authenticate resolves an Authorization header value. An empty header is
// the guest identity; anything else must be a valid bearer token.
func (g *Gate) Authenticate(header string) (domain.Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.GuestIdentity, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return domain.Identity{}, fmt.Errorf("%w: malformed authorization header", domain.ErrUnauthenticated)
	}
	return g.tokens.Parse(strings.TrimSpace(token))
}

func RequireAdmin(id domain.Identity) error {
	return Authorize(id, domain.RoleAdmin)
}

// Authorize reports whether id may act with the required role. A missing
// identity is always Unauthenticated, never Forbidden.
func Authorize(id domain.Identity, required domain.Role) error {
	switch required {
	case domain.RoleGuest:
		return nil
	case domain.RoleCustomer:
		if id.IsGuest() {
			return domain.ErrUnauthenticated
		}
		return nil
	case domain.RoleAdmin:
		if id.IsGuest() {
			return domain.ErrUnauthenticated
		}
		if !id.IsAdmin() {
			return fmt.Errorf("%w: admin role required", domain.ErrForbidden)
		}
		return nil
	default:
		return fmt.Errorf("unknown role %q", required)
	}
}
