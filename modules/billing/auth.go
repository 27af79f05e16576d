package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrymomot/accountd/pkg/httperr"
)

// TokenVerifier resolves a bearer token from the identity provider into a
// user id. Implementations call the provider's userinfo endpoint; the
// module caches results so hot clients do not hammer it.
type TokenVerifier interface {
	UserID(ctx context.Context, bearerToken string) (string, error)
}

// authenticate extracts the bearer token and resolves the calling user.
// Verified tokens are cached for the cache TTL; verification failures are
// not cached, so a token that becomes valid is picked up immediately.
func (m *Module) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tok == "" {
		return "", httperr.Unauthorized("missing bearer token")
	}

	if userID, ok := m.authCache.Get(tok); ok {
		return userID, nil
	}

	userID, err := m.auth.UserID(r.Context(), tok)
	if err != nil {
		return "", httperr.Unauthorized("invalid bearer token")
	}

	m.authCache.Set(tok, userID)
	return userID, nil
}
