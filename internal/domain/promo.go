// internal/domain/promo.go
package domain

// PromoCode is one redeemable promotional code. Like the task catalog,
// the promo table is supplied by configuration; each code credits a
// one-time Coin bonus per account.
type PromoCode struct {
	Code  string `json:"code"`
	Bonus int64  `json:"bonus"`
	Label string `json:"label"`
}
