package proration

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// PeriodCharge is an existing charge in the current billing period, the
// input to unused-time credit calculation. TaxAmount is excluded from the
// credit because remitted tax is never credited back.
type PeriodCharge struct {
	Description string
	Amount      decimal.Decimal
	TaxAmount   decimal.Decimal
}

// Period is the current billing period of a subscription. Either bound may
// be absent, in which case no proration applies.
type Period struct {
	Start *time.Time
	End   *time.Time
}

// Calculator performs day-based proration calculations. All day counts are
// exact calendar day differences, so annual cycles naturally account for
// leap years.
type Calculator interface {
	// CalculateCredit computes the unused-time credit for the given period
	// charges at effectiveDate. Returns the total credit (positive) and one
	// breakdown line per charge, each line carrying a negative amount.
	CalculateCredit(period Period, charges []PeriodCharge, effectiveDate time.Time) (decimal.Decimal, []ProrationLine)

	// CalculateCharge computes the prorated charge for a plan amount over
	// [startDate, endDate). A non-positive day count yields a zero charge.
	CalculateCharge(planAmount decimal.Decimal, planName string, interval types.BillingInterval, startDate, endDate time.Time) (decimal.Decimal, []ProrationLine)

	// CalculateAddOnProration computes the unused-time credit for an add-on,
	// anchored on the add-on's own start date. Returns zero if either day
	// count is non-positive.
	CalculateAddOnProration(addOnAmount decimal.Decimal, addOnStartDate, changeDate, periodEnd time.Time) decimal.Decimal
}

type dayBasedCalculator struct{}

// NewCalculator returns the day-based proration calculator.
func NewCalculator() Calculator {
	return &dayBasedCalculator{}
}

func (c *dayBasedCalculator) CalculateCredit(period Period, charges []PeriodCharge, effectiveDate time.Time) (decimal.Decimal, []ProrationLine) {
	if period.Start == nil || period.End == nil {
		return decimal.Zero, nil
	}
	periodStart := *period.Start
	periodEnd := *period.End

	if !effectiveDate.Before(periodEnd) {
		return decimal.Zero, nil
	}

	totalDays := daysBetween(periodStart, periodEnd)
	unusedDays := daysBetween(effectiveDate, periodEnd)
	if totalDays <= 0 || unusedDays <= 0 {
		return decimal.Zero, nil
	}

	rate := decimal.NewFromInt(unusedDays).Div(decimal.NewFromInt(totalDays))

	totalCredit := decimal.Zero
	lines := make([]ProrationLine, 0, len(charges))
	for _, ch := range charges {
		// tax was already remitted, only the net amount is creditable
		creditable := ch.Amount.Sub(ch.TaxAmount)
		credit := creditable.Mul(rate).Round(2)
		if credit.IsNegative() {
			credit = decimal.Zero
		}
		totalCredit = totalCredit.Add(credit)
		lines = append(lines, ProrationLine{
			Description: fmt.Sprintf("Unused time credit: %s", ch.Description),
			Amount:      credit.Neg(),
			PeriodStart: effectiveDate,
			PeriodEnd:   periodEnd,
			Rate:        rate,
		})
	}

	return totalCredit, lines
}

func (c *dayBasedCalculator) CalculateCharge(planAmount decimal.Decimal, planName string, interval types.BillingInterval, startDate, endDate time.Time) (decimal.Decimal, []ProrationLine) {
	daysToCharge := daysBetween(startDate, endDate)
	if daysToCharge <= 0 {
		return decimal.Zero, nil
	}

	cycleDays := cycleDaysFor(interval, startDate)
	if cycleDays <= 0 {
		return decimal.Zero, nil
	}

	rate := decimal.NewFromInt(daysToCharge).Div(decimal.NewFromInt(cycleDays))
	charge := planAmount.Mul(rate).Round(2)

	line := ProrationLine{
		Description: fmt.Sprintf("Prorated charge: %s", planName),
		Amount:      charge,
		PeriodStart: startDate,
		PeriodEnd:   endDate,
		Rate:        rate,
	}
	return charge, []ProrationLine{line}
}

func (c *dayBasedCalculator) CalculateAddOnProration(addOnAmount decimal.Decimal, addOnStartDate, changeDate, periodEnd time.Time) decimal.Decimal {
	totalDays := daysBetween(addOnStartDate, periodEnd)
	unusedDays := daysBetween(changeDate, periodEnd)
	if totalDays <= 0 || unusedDays <= 0 {
		return decimal.Zero
	}

	rate := decimal.NewFromInt(unusedDays).Div(decimal.NewFromInt(totalDays))
	return addOnAmount.Mul(rate).Round(2)
}

// NetProration is the settlement amount: charge minus credit. Positive
// means the user owes money.
func NetProration(credit, charge decimal.Decimal) decimal.Decimal {
	return charge.Sub(credit)
}

// cycleDaysFor returns the length of one billing cycle starting at
// startDate: a month is the exact length of the specific calendar month
// that follows, a year the exact length of the specific year (366 across
// a leap day).
func cycleDaysFor(interval types.BillingInterval, startDate time.Time) int64 {
	switch interval {
	case types.BillingIntervalDay:
		return 1
	case types.BillingIntervalWeek:
		return 7
	case types.BillingIntervalMonth:
		return daysBetween(startDate, startDate.AddDate(0, 1, 0))
	case types.BillingIntervalYear:
		return daysBetween(startDate, startDate.AddDate(1, 0, 0))
	default:
		return 0
	}
}

// daysBetween returns the exact calendar day difference between two
// instants, compared on their UTC dates.
func daysBetween(start, end time.Time) int64 {
	s := start.UTC()
	e := end.UTC()
	sd := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	ed := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return int64(ed.Sub(sd).Hours() / 24)
}
