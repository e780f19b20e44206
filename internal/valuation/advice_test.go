package valuation

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecommendBoundaries(t *testing.T) {
	tests := []struct {
		percent  string
		expected Tier
	}{
		{"0", TierFair},
		{"9.999", TierFair},
		{"10", TierMildPremium},
		{"29.999", TierMildPremium},
		{"30", TierHighPremium},
		{"99.999", TierHighPremium},
		{"100", TierHeirloom},
		{"141.98895", TierHeirloom},
		{"-9.999", TierFair},
		{"-10", TierSafeBuy},
		{"-29.999", TierSafeBuy},
		{"-30", TierStrongBuy},
		{"-49.999", TierStrongBuy},
		{"-50", TierExtremeDiscount},
		{"-100", TierExtremeDiscount},
	}

	for _, tt := range tests {
		t.Run(tt.percent, func(t *testing.T) {
			got := Recommend(decimal.RequireFromString(tt.percent))
			if got != tt.expected {
				t.Errorf("Recommend(%s) = %v, expected %v", tt.percent, got, tt.expected)
			}
		})
	}
}

func TestRecommendUsesUnroundedPercent(t *testing.T) {
	// 9.996 rounds to 10.00 for display but must stay in the fair tier.
	if got := Recommend(decimal.RequireFromString("9.996")); got != TierFair {
		t.Errorf("Recommend(9.996) = %v, expected %v", got, TierFair)
	}
}

func TestTierRulesAreDisjoint(t *testing.T) {
	samples := []string{"-1000", "-50", "-49.5", "-30", "-29.5", "-10", "-9.5", "0", "9.5", "10", "29.5", "30", "99.5", "100", "1000"}
	for _, s := range samples {
		p := decimal.RequireFromString(s)
		matches := 0
		for _, rule := range tierRules {
			if rule.match(p) {
				matches++
			}
		}
		if matches > 1 {
			t.Errorf("percent %s matched %d tiers", s, matches)
		}
	}
}

func TestTierLabelsAndKeys(t *testing.T) {
	tiers := []Tier{TierFair, TierMildPremium, TierHighPremium, TierHeirloom, TierStrongBuy, TierSafeBuy, TierExtremeDiscount}
	seen := make(map[string]bool)
	for _, tier := range tiers {
		if tier.Label() == "" {
			t.Errorf("tier %v has no label", tier)
		}
		if seen[tier.String()] {
			t.Errorf("duplicate tier key %s", tier)
		}
		seen[tier.String()] = true
	}

	if TierHeirloom.Label() != "此乃传家之宝乎？" {
		t.Errorf("unexpected heirloom label %q", TierHeirloom.Label())
	}
}

func TestTierJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Tier Tier `json:"tier"`
	}{TierStrongBuy})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(data) != `{"tier":"strong-buy"}` {
		t.Errorf("json.Marshal() = %s", data)
	}

	var decoded struct {
		Tier Tier `json:"tier"`
	}
	if err := json.Unmarshal([]byte(`{"tier":"safe-buy"}`), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.Tier != TierSafeBuy {
		t.Errorf("decoded tier = %v, expected %v", decoded.Tier, TierSafeBuy)
	}

	if err := json.Unmarshal([]byte(`{"tier":"bogus"}`), &decoded); err == nil {
		t.Errorf("expected error for unknown tier key")
	}
}
