package billing

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/accountd/pkg/clientip"
	"github.com/dmitrymomot/accountd/svc/pricing"
	"github.com/dmitrymomot/accountd/svc/subscription"
)

// productView is one catalog entry priced for the caller's region.
type productView struct {
	SKU          string  `json:"sku"`
	PlanID       int     `json:"product_id"`
	Title        string  `json:"title"`
	Currency     string  `json:"currency"`
	Price        float64 `json:"price"`
	Interval     string  `json:"interval"`
	MonthlyPrice float64 `json:"monthly_price,omitempty"` // annual plans: price/12 for display
	Team         bool    `json:"team,omitempty"`
}

// handlePricing serves the product catalog priced for the caller's region,
// resolved from their client IP. The response is client-cacheable for as
// long as the resolver pins a table to the IP, so a refresh cannot show a
// different price mid-checkout.
func (m *Module) handlePricing(w http.ResponseWriter, r *http.Request) {
	table := m.pricing.Resolve(r.Context(), clientip.GetIP(r))
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(m.pricing.CacheTTL().Seconds())))

	products := make([]productView, 0, len(subscription.Plans()))
	for _, plan := range subscription.Plans() {
		price, ok := table.Prices[plan.SKU]
		if !ok {
			continue
		}
		p := productView{
			SKU:      plan.SKU,
			PlanID:   plan.PlanID,
			Title:    plan.Title,
			Currency: table.Currency,
			Price:    price,
			Interval: string(plan.Interval),
			Team:     plan.Team,
		}
		if plan.Interval == subscription.IntervalYear {
			p.MonthlyPrice = pricing.MonthlyEquivalent(price)
		}
		products = append(products, p)
	}

	m.respondOK(w, map[string]any{
		"currency": table.Currency,
		"products": products,
	})
}
