package credit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/billing/internal/types"
)

func newCredit(id string, createdAt time.Time, expiresAt *time.Time) *Credit {
	return &Credit{
		ID:              id,
		UserID:          "user_1",
		Type:            types.CreditTypePromotional,
		Amount:          decimal.NewFromInt(10),
		RemainingAmount: decimal.NewFromInt(10),
		Currency:        "USD",
		ExpiresAt:       expiresAt,
		BaseModel:       types.BaseModel{CreatedAt: createdAt},
	}
}

func TestSortFIFO(t *testing.T) {
	now := time.Now().UTC()
	in1d := now.Add(24 * time.Hour)
	in5d := now.Add(5 * 24 * time.Hour)

	// Deliberately shuffled: non-expiring newest, non-expiring oldest,
	// expiring later, expiring sooner.
	credits := []*Credit{
		newCredit("cred_nonexp_new", now.Add(time.Hour), nil),
		newCredit("cred_nonexp_old", now, nil),
		newCredit("cred_exp_5d", now, &in5d),
		newCredit("cred_exp_1d", now, &in1d),
	}

	SortFIFO(credits)

	got := []string{credits[0].ID, credits[1].ID, credits[2].ID, credits[3].ID}
	assert.Equal(t, []string{"cred_exp_1d", "cred_exp_5d", "cred_nonexp_old", "cred_nonexp_new"}, got)
}

func TestSortFIFOTiesBreakByCreation(t *testing.T) {
	now := time.Now().UTC()
	exp := now.Add(48 * time.Hour)

	credits := []*Credit{
		newCredit("cred_b", now.Add(time.Minute), &exp),
		newCredit("cred_a", now, &exp),
	}

	SortFIFO(credits)

	assert.Equal(t, "cred_a", credits[0].ID)
	assert.Equal(t, "cred_b", credits[1].ID)
}

func TestIsEligible(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	c := newCredit("cred_1", now, &future)
	assert.True(t, c.IsEligible(now))

	c.ExpiresAt = &past
	assert.False(t, c.IsEligible(now), "expired credits are not eligible")

	c.ExpiresAt = nil
	c.RemainingAmount = decimal.Zero
	assert.False(t, c.IsEligible(now), "exhausted credits are not eligible")
}

func TestApply(t *testing.T) {
	now := time.Now().UTC()
	c := newCredit("cred_1", now, nil)

	require.NoError(t, c.Apply(decimal.NewFromInt(4), "inv_1"))
	assert.True(t, c.RemainingAmount.Equal(decimal.NewFromInt(6)))
	require.NotNil(t, c.AppliedInvoiceID)
	assert.Equal(t, "inv_1", *c.AppliedInvoiceID)

	err := c.Apply(decimal.NewFromInt(7), "inv_2")
	require.Error(t, err, "remaining balance can never go negative")
	assert.True(t, c.RemainingAmount.Equal(decimal.NewFromInt(6)), "failed application must not mutate")
}
