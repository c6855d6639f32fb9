// Package subscription holds the subscription aggregate. All state changes
// go through behavior methods, each of which queues domain events that the
// caller drains once per successful persistence.
package subscription

import (
	"time"

	"github.com/streamforge/billing/internal/domain/events"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// Subscription is a user's subscription to a plan.
type Subscription struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`

	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`

	Currency           string     `json:"currency"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`

	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	TrialEnd          *time.Time `json:"trial_end,omitempty"`

	BillingAddress types.Address `json:"billing_address"`

	AddOns      []*AddOn `json:"addons,omitempty"`
	DiscountIDs []string `json:"discount_ids,omitempty"`

	EnvironmentID string `json:"environment_id,omitempty"`
	types.BaseModel

	// pendingEvents is the internal event queue. Behaviors append to it;
	// PullEvents drains it exactly once per successful persistence.
	pendingEvents []events.DomainEvent
}

// IsActive reports whether the subscription can be billed and changed.
func (s *Subscription) IsActive() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusActive
}

// ChangePlan switches the subscription to a new plan effective immediately.
// A plan change is only legal on an active subscription and only to a
// different plan.
func (s *Subscription) ChangePlan(newPlanID string, effectiveDate time.Time) error {
	if !s.IsActive() {
		return ierr.NewError("cannot change plan of inactive subscription").
			WithHint("Cannot change plan of inactive subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
				"status":          s.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if newPlanID == s.PlanID {
		return ierr.NewError("already on this plan").
			WithHint("Already on this plan").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
				"plan_id":         s.PlanID,
			}).
			Mark(ierr.ErrValidation)
	}

	oldPlanID := s.PlanID
	s.PlanID = newPlanID
	s.UpdatedAt = time.Now().UTC()

	s.record(events.NewSubscriptionPlanChanged(s.ID, s.UserID, oldPlanID, newPlanID, effectiveDate))
	return nil
}

// Activate transitions the subscription to active.
func (s *Subscription) Activate() error {
	if s.IsActive() {
		return ierr.NewError("subscription is already active").
			WithHint("Subscription is already active").
			Mark(ierr.ErrInvalidOperation)
	}
	s.SubscriptionStatus = types.SubscriptionStatusActive
	s.UpdatedAt = time.Now().UTC()

	s.record(events.NewSubscriptionActivated(s.ID, s.UserID))
	return nil
}

// Cancel cancels the subscription, either immediately or at period end.
func (s *Subscription) Cancel(at time.Time, atPeriodEnd bool) error {
	if !s.IsActive() {
		return ierr.NewError("subscription is not active").
			WithHint("Only active subscriptions can be cancelled").
			Mark(ierr.ErrInvalidOperation)
	}

	if atPeriodEnd {
		s.CancelAtPeriodEnd = true
	} else {
		s.SubscriptionStatus = types.SubscriptionStatusInactive
		s.CancelledAt = &at
	}
	s.UpdatedAt = time.Now().UTC()

	s.record(events.NewSubscriptionCancelled(s.ID, s.UserID, atPeriodEnd, s.CancelledAt))
	return nil
}

// AddAddOn attaches an add-on to the subscription.
func (s *Subscription) AddAddOn(addOn *AddOn) error {
	for _, existing := range s.AddOns {
		if existing.AddOnID == addOn.AddOnID && existing.IsActive(addOn.StartDate) {
			return ierr.NewError("addon already attached").
				WithHint("This add-on is already active on the subscription").
				WithReportableDetails(map[string]interface{}{
					"addon_id": addOn.AddOnID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.AddOns = append(s.AddOns, addOn)
	s.UpdatedAt = time.Now().UTC()

	s.record(events.NewSubscriptionAddOnAdded(s.ID, addOn.AddOnID))
	return nil
}

// RemoveAddOn soft-removes an add-on by setting its end date. The record
// is never deleted.
func (s *Subscription) RemoveAddOn(addOnID string, endDate time.Time) error {
	for _, a := range s.AddOns {
		if a.AddOnID == addOnID && a.IsActive(endDate) {
			end := endDate
			a.EndDate = &end
			s.UpdatedAt = time.Now().UTC()

			s.record(events.NewSubscriptionAddOnRemoved(s.ID, addOnID, endDate))
			return nil
		}
	}
	return ierr.NewError("addon not found on subscription").
		WithHint("The add-on is not active on this subscription").
		WithReportableDetails(map[string]interface{}{
			"addon_id": addOnID,
		}).
		Mark(ierr.ErrNotFound)
}

// ActiveAddOns returns the add-ons still active at t.
func (s *Subscription) ActiveAddOns(t time.Time) []*AddOn {
	out := make([]*AddOn, 0, len(s.AddOns))
	for _, a := range s.AddOns {
		if a.IsActive(t) {
			out = append(out, a)
		}
	}
	return out
}

// PullEvents drains the pending event queue. The returned slice is a copy;
// the internal queue is cleared so a second call returns nothing. Callers
// must invoke this exactly once per successful persistence and publish the
// result.
func (s *Subscription) PullEvents() []events.DomainEvent {
	if len(s.pendingEvents) == 0 {
		return nil
	}
	out := make([]events.DomainEvent, len(s.pendingEvents))
	copy(out, s.pendingEvents)
	s.pendingEvents = nil
	return out
}

func (s *Subscription) record(e events.DomainEvent) {
	s.pendingEvents = append(s.pendingEvents, e)
}
