package paddle

import (
	"fmt"
	"net/url"
	"strconv"
)

// CheckoutBaseURL is the hosted checkout page for classic products.
const CheckoutBaseURL = "https://checkout.paddle.com/checkout/product"

// CheckoutParams are the inputs to a hosted checkout redirect.
type CheckoutParams struct {
	PlanID      int     // legacy numeric plan id
	Price       float64 // regional net price
	Currency    string
	Quantity    int
	Email       string
	Country     string // ISO country for prefill, optional
	Source      string // attribution tag, optional
	ReturnURL   string
	Passthrough string // opaque JSON echoed back on webhooks
	CouponCode  string
}

// BuildCheckoutURL constructs the hosted checkout redirect. The regional
// price override rides along as a prices[] parameter; the provider verifies
// it against the vendor account, so no opacity is needed here (unlike the
// paypro builder).
func BuildCheckoutURL(p CheckoutParams) (string, error) {
	if p.PlanID == 0 {
		return "", fmt.Errorf("paddle checkout: plan id is required")
	}
	if p.Email == "" {
		return "", fmt.Errorf("paddle checkout: email is required")
	}

	q := url.Values{}
	q.Set("guest_email", p.Email)
	if p.Price > 0 && p.Currency != "" {
		q.Set("prices[0]", fmt.Sprintf("%s:%s", p.Currency, trimFloat(p.Price)))
	}
	if p.Quantity > 1 {
		q.Set("quantity", strconv.Itoa(p.Quantity))
	}
	if p.Country != "" {
		q.Set("country", p.Country)
	}
	if p.Source != "" {
		q.Set("referring_domain", p.Source)
	}
	if p.ReturnURL != "" {
		q.Set("return_url", p.ReturnURL)
	}
	if p.Passthrough != "" {
		q.Set("passthrough", p.Passthrough)
	}
	if p.CouponCode != "" {
		q.Set("coupon", p.CouponCode)
	}

	return fmt.Sprintf("%s/%d?%s", CheckoutBaseURL, p.PlanID, q.Encode()), nil
}

// trimFloat prints prices without trailing zeros: 14 not 14.000000, but
// 7.5 stays 7.5.
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
