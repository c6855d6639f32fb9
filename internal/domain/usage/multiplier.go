package usage

import (
	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/types"
)

// Streaming minutes are weighted by resolution quality. Derived once at
// record time; never recomputed for stored records.
var resolutionMultipliers = map[string]decimal.Decimal{
	"sd":  decimal.NewFromInt(1),
	"hd":  decimal.RequireFromString("1.5"),
	"uhd": decimal.NewFromInt(2),
}

// DeriveMultiplier computes the quantity multiplier for a usage event from
// its type and context metadata.
func DeriveMultiplier(usageType types.UsageType, metadata types.Metadata) decimal.Decimal {
	switch usageType {
	case types.UsageTypeStreamingMinutes:
		if m, ok := resolutionMultipliers[metadata["quality"]]; ok {
			return m
		}
		return decimal.NewFromInt(1)
	default:
		return decimal.NewFromInt(1)
	}
}
