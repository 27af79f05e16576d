package subscription

// Interval is a plan's billing period.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Plan maps a product SKU to its legacy numeric plan id and product traits.
// The numeric ids are what the legacy provider reports on webhooks and what
// older client builds still key on; the SKU is the identifier everything
// new should use.
type Plan struct {
	SKU      string
	PlanID   int // legacy numeric id
	PayProID int // secondary provider's product id
	Title    string
	Interval Interval
	Team     bool
}

// The product catalog. Static: changing it is a deploy.
var plans = []Plan{
	{SKU: "pro-monthly", PlanID: 588159, PayProID: 74921, Title: "Pro (monthly)", Interval: IntervalMonth},
	{SKU: "pro-annual", PlanID: 588160, PayProID: 74922, Title: "Pro (annual)", Interval: IntervalYear},
	{SKU: "team-monthly", PlanID: 588161, PayProID: 74923, Title: "Team (monthly)", Interval: IntervalMonth, Team: true},
	{SKU: "team-annual", PlanID: 588162, PayProID: 74924, Title: "Team (annual)", Interval: IntervalYear, Team: true},
}

// Plans returns the full catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// PlanByID resolves a legacy numeric plan id.
func PlanByID(id int) (Plan, bool) {
	for _, p := range plans {
		if p.PlanID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// PlanBySKU resolves a product SKU.
func PlanBySKU(sku string) (Plan, bool) {
	for _, p := range plans {
		if p.SKU == sku {
			return p, true
		}
	}
	return Plan{}, false
}

// IsTeamPlanID reports whether the legacy plan id identifies a team product.
func IsTeamPlanID(id int) bool {
	p, ok := PlanByID(id)
	return ok && p.Team
}
