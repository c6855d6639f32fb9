package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddOn is an add-on attached to a subscription. Removal is always soft:
// EndDate is set and the record kept for audit.
type AddOn struct {
	ID        string          `json:"id"`
	AddOnID   string          `json:"addon_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	StartDate time.Time       `json:"start_date"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
}

// IsActive reports whether the add-on has not been ended as of t.
func (a *AddOn) IsActive(t time.Time) bool {
	return a.EndDate == nil || a.EndDate.After(t)
}

// AddOnMigrationResult partitions a subscription's add-ons after a plan
// change: kept add-ons are compatible with the new plan, removed ones got
// an end date and a prorated credit.
type AddOnMigrationResult struct {
	Kept        []*AddOn        `json:"kept"`
	Removed     []*AddOn        `json:"removed"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

// RemovedIDs returns the add-on ids that were soft-removed.
func (r *AddOnMigrationResult) RemovedIDs() []string {
	ids := make([]string, 0, len(r.Removed))
	for _, a := range r.Removed {
		ids = append(ids, a.AddOnID)
	}
	return ids
}
