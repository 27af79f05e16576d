package billing

import (
	"net/http"

	"github.com/dmitrymomot/accountd/svc/subscription"
)

// handleAccountData serves the caller's account read-view as a signed JWT.
// Clients gate features on the claims without re-deriving entitlement from
// raw metadata.
func (m *Module) handleAccountData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := m.authenticate(r)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	user, err := m.store.GetUserByID(ctx, userID)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}
	if user == nil {
		m.respondError(ctx, w, subscription.ErrUserNotFound)
		return
	}

	view, err := m.subs.AccountView(ctx, user)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	signed, err := m.tokens.Issue(view)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	m.respondOK(w, map[string]string{"token": signed})
}
