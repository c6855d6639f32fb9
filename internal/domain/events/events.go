package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// DomainEvent is implemented by every event a domain aggregate records.
// Aggregates queue events internally; the owning service drains them once
// per successful persistence and hands them to a Publisher.
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

type baseEvent struct {
	At time.Time `json:"occurred_at"`
}

func (e baseEvent) OccurredAt() time.Time { return e.At }

func newBaseEvent() baseEvent {
	return baseEvent{At: time.Now().UTC()}
}

// SubscriptionPlanChanged is recorded when a subscription switches plans.
type SubscriptionPlanChanged struct {
	baseEvent
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	OldPlanID      string    `json:"old_plan_id"`
	NewPlanID      string    `json:"new_plan_id"`
	EffectiveDate  time.Time `json:"effective_date"`
}

func (SubscriptionPlanChanged) EventName() string { return "subscription.plan_changed" }

// SubscriptionActivated is recorded when a subscription becomes active.
type SubscriptionActivated struct {
	baseEvent
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
}

func (SubscriptionActivated) EventName() string { return "subscription.activated" }

// SubscriptionCancelled is recorded when a subscription is cancelled.
type SubscriptionCancelled struct {
	baseEvent
	SubscriptionID    string     `json:"subscription_id"`
	UserID            string     `json:"user_id"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
}

func (SubscriptionCancelled) EventName() string { return "subscription.cancelled" }

// SubscriptionAddOnAdded is recorded when an add-on is attached.
type SubscriptionAddOnAdded struct {
	baseEvent
	SubscriptionID string `json:"subscription_id"`
	AddOnID        string `json:"addon_id"`
}

func (SubscriptionAddOnAdded) EventName() string { return "subscription.addon_added" }

// SubscriptionAddOnRemoved is recorded when an add-on is soft-removed.
type SubscriptionAddOnRemoved struct {
	baseEvent
	SubscriptionID string    `json:"subscription_id"`
	AddOnID        string    `json:"addon_id"`
	EndDate        time.Time `json:"end_date"`
}

func (SubscriptionAddOnRemoved) EventName() string { return "subscription.addon_removed" }

// UsageThresholdCrossed is an advisory notification that a subscription
// crossed a quota threshold. It never affects billing.
type UsageThresholdCrossed struct {
	baseEvent
	SubscriptionID string          `json:"subscription_id"`
	UserID         string          `json:"user_id"`
	UsageType      types.UsageType `json:"usage_type"`
	ThresholdPct   int             `json:"threshold_pct"`
	Quantity       decimal.Decimal `json:"quantity"`
	IncludedQuota  decimal.Decimal `json:"included_quota"`
}

func (UsageThresholdCrossed) EventName() string { return "usage.threshold_crossed" }

// NewEvent stamps a concrete event with the current time. Aggregates call
// this through the typed constructors below.
func NewSubscriptionPlanChanged(subscriptionID, userID, oldPlanID, newPlanID string, effectiveDate time.Time) SubscriptionPlanChanged {
	return SubscriptionPlanChanged{
		baseEvent:      newBaseEvent(),
		SubscriptionID: subscriptionID,
		UserID:         userID,
		OldPlanID:      oldPlanID,
		NewPlanID:      newPlanID,
		EffectiveDate:  effectiveDate,
	}
}

func NewSubscriptionActivated(subscriptionID, userID string) SubscriptionActivated {
	return SubscriptionActivated{baseEvent: newBaseEvent(), SubscriptionID: subscriptionID, UserID: userID}
}

func NewSubscriptionCancelled(subscriptionID, userID string, atPeriodEnd bool, cancelledAt *time.Time) SubscriptionCancelled {
	return SubscriptionCancelled{
		baseEvent:         newBaseEvent(),
		SubscriptionID:    subscriptionID,
		UserID:            userID,
		CancelAtPeriodEnd: atPeriodEnd,
		CancelledAt:       cancelledAt,
	}
}

func NewSubscriptionAddOnAdded(subscriptionID, addOnID string) SubscriptionAddOnAdded {
	return SubscriptionAddOnAdded{baseEvent: newBaseEvent(), SubscriptionID: subscriptionID, AddOnID: addOnID}
}

func NewSubscriptionAddOnRemoved(subscriptionID, addOnID string, endDate time.Time) SubscriptionAddOnRemoved {
	return SubscriptionAddOnRemoved{baseEvent: newBaseEvent(), SubscriptionID: subscriptionID, AddOnID: addOnID, EndDate: endDate}
}

func NewUsageThresholdCrossed(subscriptionID, userID string, usageType types.UsageType, pct int, quantity, quota decimal.Decimal) UsageThresholdCrossed {
	return UsageThresholdCrossed{
		baseEvent:      newBaseEvent(),
		SubscriptionID: subscriptionID,
		UserID:         userID,
		UsageType:      usageType,
		ThresholdPct:   pct,
		Quantity:       quantity,
		IncludedQuota:  quota,
	}
}
