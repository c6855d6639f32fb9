package types

import ierr "github.com/streamforge/billing/internal/errors"

// BillingInterval is the cadence a plan renews on.
type BillingInterval string

const (
	BillingIntervalDay   BillingInterval = "day"
	BillingIntervalWeek  BillingInterval = "week"
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

func (b BillingInterval) Validate() error {
	switch b {
	case BillingIntervalDay, BillingIntervalWeek, BillingIntervalMonth, BillingIntervalYear:
		return nil
	default:
		return ierr.NewErrorf("invalid billing interval: %s", b).
			WithHint("Billing interval must be one of: day, week, month, year").
			Mark(ierr.ErrValidation)
	}
}

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// InvoiceStatus follows draft -> open -> paid, with void and uncollectible
// as terminal escapes.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// PlanChangeStatus tracks the two-phase plan change workflow.
type PlanChangeStatus string

const (
	PlanChangeStatusPendingInvoice   PlanChangeStatus = "pending_invoice"
	PlanChangeStatusInvoiceGenerated PlanChangeStatus = "invoice_generated"
	PlanChangeStatusInvoiceFailed    PlanChangeStatus = "invoice_failed"
)

// CreditType classifies where a credit balance came from.
type CreditType string

const (
	CreditTypeRefund      CreditType = "refund"
	CreditTypeService     CreditType = "service"
	CreditTypePromotional CreditType = "promotional"
	CreditTypeProration   CreditType = "proration"
)

// ChargeType classifies an invoice line item.
type ChargeType string

const (
	ChargeTypeSubscription ChargeType = "subscription"
	ChargeTypeUsage        ChargeType = "usage"
	ChargeTypeAddOn        ChargeType = "addon"
	ChargeTypeProration    ChargeType = "proration"
	ChargeTypeTax          ChargeType = "tax"
	ChargeTypeDiscount     ChargeType = "discount"
)

// TaxProviderType identifies which tax calculation strategy priced a line.
type TaxProviderType string

const (
	TaxProviderStandard TaxProviderType = "standard"
	TaxProviderExternal TaxProviderType = "external"
	TaxProviderVAT      TaxProviderType = "vat"
)

// DiscountType is the shape of a discount.
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

// UsageType is a metered usage dimension for the streaming product.
type UsageType string

const (
	UsageTypeStreamingMinutes UsageType = "streaming_minutes"
	UsageTypeDownloads        UsageType = "downloads"
	UsageTypeConcurrentPeak   UsageType = "concurrent_peak"
)

// Address is the billing address driving tax jurisdiction selection.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"` // ISO 3166-1 alpha-2
}

// euMemberCountries is the EU VAT membership set used for provider routing.
var euMemberCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

// IsEUCountry reports whether the address country is an EU member state.
func (a Address) IsEUCountry() bool {
	_, ok := euMemberCountries[a.Country]
	return ok
}

// IsUS reports whether the address is in the United States.
func (a Address) IsUS() bool {
	return a.Country == "US"
}
