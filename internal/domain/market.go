// internal/domain/market.go
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryWindow is the number of price observations retained; the oldest
// entries are evicted first.
const HistoryWindow = 40

// SellTaxPercent is the flat tax deducted from gross sell proceeds.
const SellTaxPercent = 11

var (
	// InitialPrice seeds the market when no state exists yet.
	InitialPrice = decimal.NewFromInt(1000)
	// PriceFloor is the lowest price a sell can push the market to.
	PriceFloor = decimal.NewFromInt(10)
	// ImpactFactor is the relative price move per unit traded (1%).
	ImpactFactor = decimal.RequireFromString("0.01")
)

// PriceHistory is the bounded FIFO of recent prices. It is stored as a
// JSONB column, so it implements driver.Valuer and sql.Scanner.
type PriceHistory []decimal.Decimal

func (h PriceHistory) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h *PriceHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into PriceHistory", src)
	}
}

// MarketState is the single shared market record mutated by every trade.
// Version backs the optimistic conditional write: a trade re-reads and
// retries when another trade committed in between.
type MarketState struct {
	ID           int64           `db:"id" json:"-"`
	CurrentPrice decimal.Decimal `db:"current_price" json:"current_price"`
	PriceHistory PriceHistory    `db:"price_history" json:"price_history"`
	TotalBought  decimal.Decimal `db:"total_bought" json:"total_bought"`
	Version      int64           `db:"version" json:"version"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NewMarketState returns the initial market: price 1000 with a single
// history observation.
func NewMarketState() *MarketState {
	return &MarketState{
		ID:           1,
		CurrentPrice: InitialPrice,
		PriceHistory: PriceHistory{InitialPrice},
		TotalBought:  decimal.Zero,
		Version:      1,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Quote returns the Coin cost (buy) or gross proceeds (sell) of trading
// the given units at the current price: floor(units * price).
func (m *MarketState) Quote(units decimal.Decimal) int64 {
	return units.Mul(m.CurrentPrice).Floor().IntPart()
}

// ApplyBuy moves the price up by price * units * ImpactFactor, records
// the new observation and accumulates bought volume.
func (m *MarketState) ApplyBuy(units decimal.Decimal) {
	change := m.CurrentPrice.Mul(units.Mul(ImpactFactor))
	m.CurrentPrice = m.CurrentPrice.Add(change)
	m.TotalBought = m.TotalBought.Add(units)
	m.pushPrice()
}

// ApplySell moves the price down by the same impact formula, floored at
// PriceFloor, and records the new observation.
func (m *MarketState) ApplySell(units decimal.Decimal) {
	change := m.CurrentPrice.Mul(units.Mul(ImpactFactor))
	next := m.CurrentPrice.Sub(change)
	if next.LessThan(PriceFloor) {
		next = PriceFloor
	}
	m.CurrentPrice = next
	m.pushPrice()
}

func (m *MarketState) pushPrice() {
	h := append(m.PriceHistory, m.CurrentPrice)
	if len(h) > HistoryWindow {
		h = h[len(h)-HistoryWindow:]
	}
	m.PriceHistory = h
}

// SellProceeds splits gross proceeds into tax and net using the flat
// sell tax: tax = floor(gross * 11%).
func SellProceeds(gross int64) (tax, net int64) {
	tax = gross * SellTaxPercent / 100
	return tax, gross - tax
}

// Candle is one synthesized OHLC candlestick derived from two adjacent
// price observations.
type Candle struct {
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
	Up    bool            `json:"up"`
}

var half = decimal.RequireFromString("0.5")

// CandlesFromHistory derives a candlestick series from the raw price
// history. Each adjacent pair becomes one candle (open = previous,
// close = current) with a synthetic high/low band of half the body
// beyond each end. A flat pair (close == open) counts as up.
func CandlesFromHistory(history []decimal.Decimal) []Candle {
	if len(history) < 2 {
		return nil
	}
	candles := make([]Candle, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		open, close := history[i-1], history[i]
		hi := decimal.Max(open, close)
		lo := decimal.Min(open, close)
		band := open.Sub(close).Abs().Mul(half)
		candles = append(candles, Candle{
			Open:  open,
			High:  hi.Add(band),
			Low:   lo.Sub(band),
			Close: close,
			Up:    close.GreaterThanOrEqual(open),
		})
	}
	return candles
}
