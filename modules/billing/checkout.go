package billing

import (
	"net/http"
	"strconv"

	"github.com/dmitrymomot/accountd/pkg/clientip"
	"github.com/dmitrymomot/accountd/pkg/httperr"
	"github.com/dmitrymomot/accountd/svc/paddle"
	"github.com/dmitrymomot/accountd/svc/paypro"
	"github.com/dmitrymomot/accountd/svc/subscription"
)

// handleCheckout builds a provider checkout URL for the requested product,
// priced for the caller's region, and redirects to it. The provider
// defaults to the legacy one; ?provider=paypro selects the secondary.
func (m *Module) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	email := q.Get("email")
	if email == "" {
		m.respondError(ctx, w, httperr.BadRequest("email is required"))
		return
	}
	plan, ok := subscription.PlanBySKU(q.Get("sku"))
	if !ok {
		m.respondError(ctx, w, httperr.BadRequest("unknown product sku"))
		return
	}

	table := m.pricing.Resolve(ctx, clientip.GetIP(r))
	price, ok := table.Prices[plan.SKU]
	if !ok {
		m.respondError(ctx, w, httperr.Internal("no regional price for product"))
		return
	}

	quantity := 1
	if s := q.Get("quantity"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			m.respondError(ctx, w, httperr.BadRequest("invalid quantity"))
			return
		}
		quantity = n
	}

	var (
		checkoutURL string
		err         error
	)
	switch q.Get("provider") {
	case "", "paddle":
		checkoutURL, err = paddle.BuildCheckoutURL(paddle.CheckoutParams{
			PlanID:      plan.PlanID,
			Price:       price,
			Currency:    table.Currency,
			Quantity:    quantity,
			Email:       email,
			Country:     q.Get("country"),
			Source:      q.Get("source"),
			ReturnURL:   q.Get("returnUrl"),
			Passthrough: q.Get("passthrough"),
			CouponCode:  q.Get("discountCode"),
		})
	case "paypro":
		checkoutURL, err = m.payproCheckout.BuildCheckoutURL(ctx, paypro.CheckoutParams{
			ProductID:   plan.PayProID,
			Price:       price,
			Currency:    table.Currency,
			Quantity:    quantity,
			Email:       email,
			Country:     q.Get("country"),
			Source:      q.Get("source"),
			ReturnURL:   q.Get("returnUrl"),
			Passthrough: q.Get("passthrough"),
		}, q.Get("discountCode"))
	default:
		m.respondError(ctx, w, httperr.BadRequest("unknown payment provider"))
		return
	}
	if err != nil {
		m.respondError(ctx, w, err)
		return
	}

	http.Redirect(w, r, checkoutURL, http.StatusFound)
}
