package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/accountd/pkg/httperr"
)

// handleTeamSize changes the paid seat count on the caller's team
// subscription. The request blocks until the provider confirms the change
// via webhook or the confirmation window runs out.
func (m *Module) handleTeamSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := m.authenticate(r)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondError(ctx, w, err)
		return
	}

	if err := m.subs.UpdateTeamSize(ctx, userID, req.Quantity); err != nil {
		m.respondError(ctx, w, err)
		return
	}
	m.respondOK(w, map[string]int{"quantity": req.Quantity})
}

// handleAddTeamMember assigns a free seat on the caller's team to another
// user.
func (m *Module) handleAddTeamMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := m.authenticate(r)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	var req struct {
		MemberID string `json:"member_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		m.respondError(ctx, w, err)
		return
	}
	if req.MemberID == "" {
		m.respondError(ctx, w, httperr.BadRequest("member_id is required"))
		return
	}

	if err := m.subs.AddTeamMember(ctx, userID, req.MemberID); err != nil {
		m.respondError(ctx, w, err)
		return
	}
	m.respondOK(w, map[string]string{"member_id": req.MemberID})
}

// handleRemoveTeamMember unassigns a seat. The freed seat stays locked for
// the lock window before it can be reassigned.
func (m *Module) handleRemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := m.authenticate(r)
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	memberID := chi.URLParam(r, "memberID")
	if memberID == "" {
		m.respondError(ctx, w, httperr.BadRequest("member id is required"))
		return
	}

	if err := m.subs.RemoveTeamMember(ctx, userID, memberID); err != nil {
		m.respondError(ctx, w, err)
		return
	}
	m.respondOK(w, map[string]string{"member_id": memberID})
}
