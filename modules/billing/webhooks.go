package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accountd/pkg/httperr"
	"github.com/dmitrymomot/accountd/pkg/report"
	"github.com/dmitrymomot/accountd/svc/paddle"
	"github.com/dmitrymomot/accountd/svc/paypro"
)

// handlePaddleWebhook receives legacy-provider webhooks. Only signature
// failures (403) and unparseable bodies (400) get an error status; once an
// event is authenticated it is acknowledged with 200 even when applying it
// fails, because the provider redelivers on anything else. A failed apply
// surfaces through the reporter instead.
func (m *Module) handlePaddleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	receiptID := uuid.NewString()

	if err := r.ParseForm(); err != nil {
		m.respondError(ctx, w, httperr.BadRequest("malformed webhook body"))
		return
	}

	if err := m.paddleVerifier.VerifyForm(r.PostForm); err != nil {
		m.log.WarnContext(ctx, "rejected paddle webhook",
			"receipt_id", receiptID, "alert", r.PostForm.Get("alert_name"), "error", err)
		m.respondError(ctx, w, err)
		return
	}

	ev := paddle.ParseEvent(r.PostForm)
	m.log.InfoContext(ctx, "received paddle webhook",
		"receipt_id", receiptID, "event", string(ev.Type), "subscription_id", ev.SubscriptionID)

	if err := m.subs.HandleEvent(ctx, ev); err != nil {
		m.reportWebhookFailure(ctx, "paddle", receiptID, string(ev.Type), err)
	}
	m.respondOK(w, map[string]string{"receipt_id": receiptID})
}

// handlePayProWebhook receives secondary-provider IPNs. Same contract as
// the paddle handler: 403 on bad signature, 400 on unparseable body, 200
// for every authenticated event.
func (m *Module) handlePayProWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	receiptID := uuid.NewString()

	if err := r.ParseForm(); err != nil {
		m.respondError(ctx, w, httperr.BadRequest("malformed IPN body"))
		return
	}

	if err := m.payproVerifier.Verify(r.PostForm); err != nil {
		m.log.WarnContext(ctx, "rejected paypro IPN",
			"receipt_id", receiptID, "ipn_type", r.PostForm.Get("IPN_TYPE_NAME"), "error", err)
		m.respondError(ctx, w, err)
		return
	}

	ev := paypro.ParseEvent(r.PostForm)
	m.log.InfoContext(ctx, "received paypro IPN",
		"receipt_id", receiptID, "event", string(ev.Type), "subscription_id", ev.SubscriptionID)

	if err := m.subs.HandleEvent(ctx, ev); err != nil {
		m.reportWebhookFailure(ctx, "paypro", receiptID, string(ev.Type), err)
	}
	m.respondOK(w, map[string]string{"receipt_id": receiptID})
}

// reportWebhookFailure records an event that authenticated but could not be
// applied. The write is lost until the operator intervenes; the receipt id
// links the report back to the request log line.
func (m *Module) reportWebhookFailure(ctx context.Context, provider, receiptID, event string, err error) {
	m.log.ErrorContext(ctx, "webhook processing failed",
		"provider", provider, "receipt_id", receiptID, "event", event, "error", err)
	m.reporter.Report(ctx, report.New(report.SeverityError, "webhook_processing_failed",
		"webhook event acknowledged but not applied", map[string]any{
			"provider":   provider,
			"receipt_id": receiptID,
			"event":      event,
			"error":      err.Error(),
		}))
}
