package billing

import "net/http"

// handleCancel requests cancellation of the caller's subscription with its
// payment provider. The state flip to deleted arrives later on the
// provider's cancellation webhook; this endpoint only starts the process.
func (m *Module) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := m.authenticate(r)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	if err := m.subs.Cancel(ctx, userID); err != nil {
		m.respondError(ctx, w, err)
		return
	}
	m.respondOK(w, map[string]string{"status": "cancellation requested"})
}
