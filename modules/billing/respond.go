package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/accountd/pkg/httperr"
	"github.com/dmitrymomot/accountd/svc/paddle"
	"github.com/dmitrymomot/accountd/svc/paypro"
	"github.com/dmitrymomot/accountd/svc/subscription"
)

// successResponse is the envelope for all JSON success payloads.
type successResponse struct {
	Success  bool `json:"success"`
	Response any  `json:"response,omitempty"`
}

// errorResponse is the envelope for all JSON error payloads. The message is
// client-safe; internals stay in the logs.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (m *Module) respondOK(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(successResponse{Success: true, Response: payload}); err != nil {
		m.log.Error("encode response", "error", err)
	}
}

func (m *Module) respondError(ctx context.Context, w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		m.log.ErrorContext(ctx, "request failed", "error", err)
	} else {
		m.log.InfoContext(ctx, "request rejected", "status", code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Error: msg})
}

// statusFor maps domain errors onto HTTP statuses and client-safe messages.
// Unknown errors surface as opaque 500s.
func statusFor(err error) (int, string) {
	var statusErr httperr.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, statusErr.Message
	}

	switch {
	case errors.Is(err, paddle.ErrInvalidSignature),
		errors.Is(err, paypro.ErrInvalidSignature):
		return http.StatusForbidden, "invalid signature"
	case errors.Is(err, subscription.ErrSeatsBelowAssigned):
		return http.StatusConflict, "requested team size is below the number of assigned seats"
	case errors.Is(err, subscription.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid team size"
	case errors.Is(err, subscription.ErrNotPaddleManaged):
		return http.StatusBadRequest, "subscription does not support seat changes"
	case errors.Is(err, subscription.ErrNoSeatsAvailable):
		return http.StatusConflict, "no free seats on the team subscription"
	case errors.Is(err, subscription.ErrNotTeamOwner):
		return http.StatusBadRequest, "user does not own a team subscription"
	case errors.Is(err, subscription.ErrNotTeamMember):
		return http.StatusBadRequest, "user is not a member of this team"
	case errors.Is(err, subscription.ErrManualSubscription):
		return http.StatusBadRequest, "manual subscriptions cannot be cancelled through the billing provider"
	case errors.Is(err, subscription.ErrNoActiveSubscription):
		return http.StatusBadRequest, "no active subscription to cancel"
	case errors.Is(err, paypro.ErrDiscountUnsupported):
		return http.StatusBadRequest, "discount codes are not supported for this payment provider"
	case errors.Is(err, subscription.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, subscription.ErrConfirmationTimeout):
		return http.StatusInternalServerError, "the provider did not confirm the change in time"
	case errors.Is(err, paddle.ErrUpstream), errors.Is(err, paypro.ErrUpstream):
		return http.StatusBadGateway, "payment provider is unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeJSON reads a small JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return httperr.BadRequest("malformed request body")
	}
	return nil
}
