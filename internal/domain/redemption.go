// internal/domain/redemption.go
package domain

// GameCreditRate is the Coin cost of one game-credit token.
const GameCreditRate = 100

// RedemptionTier is one redeemable gift-code denomination.
type RedemptionTier struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value int64  `json:"value"`
	Cost  int64  `json:"cost"` // Coins required
}

// GiftCodeTiers are the gift-code denominations on offer.
var GiftCodeTiers = []RedemptionTier{
	{ID: "gp-10", Label: "10rs Gift Code", Value: 10, Cost: 1_200},
	{ID: "gp-20", Label: "20rs Gift Code", Value: 20, Cost: 2_400},
	{ID: "gp-30", Label: "30rs Gift Code", Value: 30, Cost: 3_600},
	{ID: "gp-100", Label: "100rs Gift Code", Value: 100, Cost: 12_000},
	{ID: "gp-1000", Label: "1000rs Gift Code", Value: 1000, Cost: 120_000},
}

// FindGiftCodeTier looks a tier up by id.
func FindGiftCodeTier(id string) (RedemptionTier, bool) {
	for _, t := range GiftCodeTiers {
		if t.ID == id {
			return t, true
		}
	}
	return RedemptionTier{}, false
}
