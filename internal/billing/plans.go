// Package billing holds the server-side plan catalog. Prices live here
// and only plan names cross the client boundary, so a client can never
// forge an amount.
package billing

import (
	"fmt"

	"integen/api/internal/models"
)

type PlanInfo struct {
	Name     string
	Amount   int64 // minor units
	Currency string
	Interval string
}

var catalog = map[models.Plan]PlanInfo{
	models.PlanBasic:    {Name: "Basic", Amount: 1000, Currency: "usd", Interval: "month"},
	models.PlanPro:      {Name: "Pro", Amount: 2500, Currency: "usd", Interval: "month"},
	models.PlanUltimate: {Name: "Ultimate", Amount: 4500, Currency: "usd", Interval: "month"},
}

// Lookup resolves a caller-supplied plan identifier against the catalog.
func Lookup(identifier string) (models.Plan, PlanInfo, bool) {
	plan := models.Plan(identifier)
	info, ok := catalog[plan]
	return plan, info, ok
}

// Known reports whether identifier names a purchasable plan.
func Known(identifier string) bool {
	_, _, ok := Lookup(identifier)
	return ok
}

// ProductName is the display name shown on the hosted checkout page.
func (p PlanInfo) ProductName() string {
	return fmt.Sprintf("InteGen — %s", p.Name)
}
