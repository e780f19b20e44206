package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is a recommendation bucket chosen from the premium percentage.
type Tier int

const (
	TierFair Tier = iota
	TierMildPremium
	TierHighPremium
	TierHeirloom
	TierStrongBuy
	TierSafeBuy
	TierExtremeDiscount
)

var tierKeys = map[Tier]string{
	TierFair:            "fair",
	TierMildPremium:     "mild-premium",
	TierHighPremium:     "high-premium",
	TierHeirloom:        "heirloom",
	TierStrongBuy:       "strong-buy",
	TierSafeBuy:         "safe-buy",
	TierExtremeDiscount: "extreme-discount",
}

var tierLabels = map[Tier]string{
	TierFair:            "价格合理，良心卖家！",
	TierMildPremium:     "卖家溢价少许，请三思而后行！",
	TierHighPremium:     "存在高溢价，非刚需勿买！",
	TierHeirloom:        "此乃传家之宝乎？",
	TierStrongBuy:       "卖家血亏，快买，错过拍断大腿！",
	TierSafeBuy:         "卖家小亏，买了或许不赚但绝对不亏！",
	TierExtremeDiscount: "极端折价，可能存在问题，需谨慎！",
}

// String returns the stable key of the tier.
func (t Tier) String() string {
	if key, ok := tierKeys[t]; ok {
		return key
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Label returns the text shown to the user.
func (t Tier) Label() string {
	return tierLabels[t]
}

// MarshalText encodes the tier as its key.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier key.
func (t *Tier) UnmarshalText(text []byte) error {
	for tier, key := range tierKeys {
		if key == string(text) {
			*t = tier
			return nil
		}
	}
	return fmt.Errorf("unknown recommendation tier %q", text)
}

type tierRule struct {
	tier  Tier
	match func(p decimal.Decimal) bool
}

var (
	pct10    = decimal.NewFromInt(10)
	pct30    = decimal.NewFromInt(30)
	pct100   = decimal.NewFromInt(100)
	pctNeg10 = decimal.NewFromInt(-10)
	pctNeg30 = decimal.NewFromInt(-30)
	pctNeg50 = decimal.NewFromInt(-50)
)

// tierRules is evaluated first match wins. Premium ranges are closed on the
// lower bound, discount ranges are closed on the upper bound, so exact
// boundaries fall into the more extreme bucket.
var tierRules = []tierRule{
	{TierMildPremium, func(p decimal.Decimal) bool {
		return p.GreaterThanOrEqual(pct10) && p.LessThan(pct30)
	}},
	{TierHighPremium, func(p decimal.Decimal) bool {
		return p.GreaterThanOrEqual(pct30) && p.LessThan(pct100)
	}},
	{TierHeirloom, func(p decimal.Decimal) bool {
		return p.GreaterThanOrEqual(pct100)
	}},
	{TierStrongBuy, func(p decimal.Decimal) bool {
		return p.LessThanOrEqual(pctNeg30) && p.GreaterThan(pctNeg50)
	}},
	{TierSafeBuy, func(p decimal.Decimal) bool {
		return p.LessThanOrEqual(pctNeg10) && p.GreaterThan(pctNeg30)
	}},
	{TierExtremeDiscount, func(p decimal.Decimal) bool {
		return p.LessThanOrEqual(pctNeg50)
	}},
}

// Recommend picks the tier for an unrounded premium percentage.
func Recommend(premiumPercent decimal.Decimal) Tier {
	for _, rule := range tierRules {
		if rule.match(premiumPercent) {
			return rule.tier
		}
	}
	return TierFair
}
