// Package schema fixes the warehouse contract: required feature
// columns, key columns, missing-value semantics and the decile bin
// edges of the frozen model. Everything here is immutable at runtime.
package schema

import "strings"

// Feature columns the classifier was trained on, in training order.
var FeatureColumns = []string{
	"SALES_6M",
	"FREQUENCY_6M",
	"BUYS_Q_03",
	"COUPON_Q_03",
	"PH_MREDEEM90D",
	"PH_PFREQ90D",
	"PH_CFREQ90D",
	"BBB_INSTORE_RFM_DECILE",
	"BBB_ECOM_R_DECILE",
	"BBB_OFFCOUPON_RFM_DECILE",
	"NUM_PERIODS",
	"NUM_PRODUCT_GROUPS",
	"PRESENCE_OF_CHILD",
	"MARITAL_STAT",
}

// Identity and temporal columns.
const (
	ColCustomerID       = "CUSTOMER_ID"
	ColAddressID        = "ADDRESS_ID"
	ColPreviousPurchase = "PREVIOUS_PURCHASE"
)

// KeyColumns are opaque identifiers, never continuous numerics.
var KeyColumns = []string{ColCustomerID, ColAddressID}

// IntColumns are coerced to integers (truncating) after fill and clamp.
var IntColumns = []string{
	"SALES_6M",
	"COUPON_EXPENSE_6M",
	"BUYS_Q_03",
	"COUPON_Q_03",
	"PH_MREDEEM90D",
	"PH_PFREQ90D",
	"PH_CFREQ90D",
	"BBB_INSTORE_RFM_DECILE",
	"BBB_ECOM_R_DECILE",
	"BBB_OFFCOUPON_RFM_DECILE",
	"PCT_TXNS_ON_MKD_DISC",
}

// ClampedColumns are the monetary aggregates where a negative value is
// invalid and clamped to zero. Only these two; other columns pass
// through unchecked.
var ClampedColumns = []string{"SALES_6M", "COUPON_EXPENSE_6M"}

// FillPolicy selects the sentinel used for a missing value.
type FillPolicy int

const (
	FillGeneric FillPolicy = iota // unobserved count/amount → 0
	FillDecile                    // no decile computed → 11
	FillRecency                   // no activity in over a year → 366
)

// Fill sentinels. The decile sentinel sits outside the valid 1–10
// range on purpose so downstream can tell "unknown" from "rank 10".
const (
	FillValueDecile  = 11
	FillValueRecency = 366
	FillValueGeneric = 0
)

// Value returns the sentinel for the policy.
func (p FillPolicy) Value() float64 {
	switch p {
	case FillDecile:
		return FillValueDecile
	case FillRecency:
		return FillValueRecency
	default:
		return FillValueGeneric
	}
}

func (p FillPolicy) String() string {
	switch p {
	case FillDecile:
		return "decile"
	case FillRecency:
		return "recency"
	default:
		return "generic"
	}
}

// columnPolicies pins the fill policy for every known column of the
// production extract, so behavior does not ride on naming drift.
var columnPolicies = map[string]FillPolicy{
	ColCustomerID:              FillGeneric,
	ColAddressID:               FillGeneric,
	ColPreviousPurchase:        FillGeneric,
	"SALES_6M":                 FillGeneric,
	"FREQUENCY_6M":             FillGeneric,
	"COUPON_EXPENSE_6M":        FillGeneric,
	"BUYS_Q_03":                FillGeneric,
	"COUPON_Q_03":              FillGeneric,
	"PH_MREDEEM90D":            FillGeneric,
	"PH_PFREQ90D":              FillGeneric,
	"PH_CFREQ90D":              FillGeneric,
	"BBB_INSTORE_RFM_DECILE":   FillDecile,
	"BBB_ECOM_R_DECILE":        FillDecile,
	"BBB_OFFCOUPON_RFM_DECILE": FillDecile,
	"NUM_PERIODS":              FillGeneric,
	"NUM_PRODUCT_GROUPS":       FillGeneric,
	"PRESENCE_OF_CHILD":        FillGeneric,
	"MARITAL_STAT":             FillGeneric,
	"PCT_TXNS_ON_MKD_DISC":     FillGeneric,
}

// Classify derives the policy for a column not in the known table.
// Priority order matters: a column with both markers is decile-like.
func Classify(name string) FillPolicy {
	if strings.Contains(name, "DECILE") {
		return FillDecile
	}
	if strings.Contains(name, "_R") {
		return FillRecency
	}
	return FillGeneric
}

// PolicyFor resolves a single column: explicit table first, name rules
// as the defined fallback for superset columns.
func PolicyFor(name string) FillPolicy {
	if p, ok := columnPolicies[name]; ok {
		return p
	}
	return Classify(name)
}

// BuildFillPlan classifies every column of a batch once, up front. The
// cleaner works off this plan only.
func BuildFillPlan(columns []string) map[string]FillPolicy {
	plan := make(map[string]FillPolicy, len(columns))
	for _, c := range columns {
		plan[c] = PolicyFor(c)
	}
	return plan
}

// DecileBins are the 11 ascending edges of the 10 probability buckets,
// frozen alongside the model. Bin i covers (DecileBins[i],
// DecileBins[i+1]], bin 0 additionally includes 0.0.
var DecileBins = [11]float64{
	0.00, 0.19662877, 0.21054794, 0.25123934, 0.26712146,
	0.42682036, 0.493293, 0.59348687, 0.67486295, 0.77079006, 1.0,
}

// Output schema of the sink table, in column order.
const (
	OutColCustomerID       = "CUSTOMER_ID"
	OutColPreviousPurchase = "PREVIOUS_PURCHASE"
	OutColDecile           = "DECILE"
	OutColP                = "P"
)

var OutputColumns = []string{
	OutColCustomerID, OutColPreviousPurchase, OutColDecile, OutColP,
}
