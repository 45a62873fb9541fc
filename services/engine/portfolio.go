package engine

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Portfolio tracks cash, open positions and the NAV history of a run.
// Accounting is cash-based: every fill moves cash by quantity*price plus
// fee, so cash plus position market value is conserved up to fees and
// price moves.
type Portfolio struct {
	initialCash float64
	cash        float64
	positions   map[string]Position
	history     []PortfolioSnapshot
	logger      *zap.Logger
}

func NewPortfolio(initialCash float64, logger *zap.Logger) *Portfolio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]Position),
		logger:      logger,
	}
}

func (p *Portfolio) InitialCash() float64 { return p.initialCash }

func (p *Portfolio) Cash() float64 { return p.cash }

// Position returns the open position in symbol, if any.
func (p *Portfolio) Position(symbol string) (Position, bool) {
	pos, ok := p.positions[symbol]
	return pos, ok
}

// Positions returns a copy of the open position map.
func (p *Portfolio) Positions() map[string]Position {
	out := make(map[string]Position, len(p.positions))
	for symbol, pos := range p.positions {
		out[symbol] = pos
	}
	return out
}

// UpdateOnFill applies each fill to cash and positions. Fees reduce cash
// only; cost basis and realized P&L are computed on the trade price alone.
func (p *Portfolio) UpdateOnFill(ev *FillEvent) {
	for _, fill := range ev.Fills {
		p.cash -= fill.Quantity * fill.Price
		p.cash -= fill.Fee
		p.applyFill(fill)
		p.logger.Debug("applied fill",
			zap.String("symbol", fill.Symbol),
			zap.Float64("quantity", fill.Quantity),
			zap.Float64("price", fill.Price),
			zap.Float64("fee", fill.Fee),
			zap.Float64("cash", p.cash))
	}
}

func (p *Portfolio) applyFill(fill Fill) {
	pos, ok := p.positions[fill.Symbol]
	if !ok {
		p.positions[fill.Symbol] = Position{
			Symbol:   fill.Symbol,
			Quantity: fill.Quantity,
			AvgPrice: fill.Price,
		}
		return
	}

	if (pos.Quantity > 0) == (fill.Quantity > 0) {
		// Same direction: weighted-average entry price.
		total := pos.Quantity + fill.Quantity
		pos.AvgPrice = (pos.AvgPrice*pos.Quantity + fill.Price*fill.Quantity) / total
		pos.Quantity = total
		p.positions[fill.Symbol] = pos
		return
	}

	direction := 1.0
	if pos.Quantity < 0 {
		direction = -1.0
	}
	posAbs := math.Abs(pos.Quantity)
	fillAbs := math.Abs(fill.Quantity)

	if fillAbs < posAbs {
		// Partial close: realize on the closed part, basis unchanged.
		pos.RealizedPnl += direction * (fill.Price - pos.AvgPrice) * fillAbs
		pos.Quantity += fill.Quantity
		p.positions[fill.Symbol] = pos
		return
	}

	// Full close or flip: realize on the whole prior position.
	pos.RealizedPnl += direction * (fill.Price - pos.AvgPrice) * posAbs
	remaining := pos.Quantity + fill.Quantity
	if remaining == 0 {
		delete(p.positions, fill.Symbol)
		return
	}
	pos.Quantity = remaining
	pos.AvgPrice = fill.Price
	p.positions[fill.Symbol] = pos
}

// RecordSnapshot marks open positions to latestPrices, falling back to
// each position's entry price when no price is known yet, and appends an
// immutable snapshot.
func (p *Portfolio) RecordSnapshot(timestamp time.Time, latestPrices map[string]float64) {
	marketValue := 0.0
	for symbol, pos := range p.positions {
		price, ok := latestPrices[symbol]
		if !ok {
			price = pos.AvgPrice
		}
		marketValue += pos.Quantity * price
	}
	p.history = append(p.history, PortfolioSnapshot{
		Timestamp: timestamp,
		NAV:       p.cash + marketValue,
		Cash:      p.cash,
		Positions: p.Positions(),
	})
}

// History returns the recorded snapshots in order.
func (p *Portfolio) History() []PortfolioSnapshot { return p.history }

// EquityCurve projects the snapshot history onto its NAV series.
func (p *Portfolio) EquityCurve() EquityCurve {
	curve := make(EquityCurve, len(p.history))
	for i, snap := range p.history {
		curve[i] = EquityPoint{Timestamp: snap.Timestamp, NAV: snap.NAV}
	}
	return curve
}
