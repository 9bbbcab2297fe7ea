// Package store persists a Trader's grid state to SQLite so a restart
// resumes from the last poll instead of re-issuing every order, and
// serializes concurrent invocations for one account with an exclusive
// file lock.
package store

import (
	"encoding/json"

	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/grid"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
	"github.com/tommy-ca/gridtrader/internal/trader"
)

func pairOf(base, quote string) pair.Pair {
	return pair.Pair{Base: base, Quote: quote}
}

// SchemaVersion is bumped whenever the Snapshot JSON shape changes
// incompatibly. Load refuses to read a row with a higher version than
// it understands.
const SchemaVersion = 1

// Snapshot is the serializable form of a Trader, independent of any
// live exchange.Port or logger.
type Snapshot struct {
	SchemaVersion     int                      `json:"schema_version"`
	Account           string                   `json:"account"`
	Grids             map[string]GridPair      `json:"grids"`
	Market            map[string]MarketReading `json:"market"`
	IssuedTakeProfits map[string]string        `json:"issued_take_profits"`
}

// GridPair is the serializable form of trader.PairGrids.
type GridPair struct {
	Sell GridLadder `json:"sell"`
	Buy  GridLadder `json:"buy"`
}

// GridLadder is the serializable form of a grid.Grid.
type GridLadder struct {
	Side          string        `json:"side"`
	Base          string        `json:"base"`
	Quote         string        `json:"quote"`
	StartingPrice money.Money   `json:"starting_price"`
	Rungs         []money.Money `json:"rungs"`
	RungSize      money.Money   `json:"rung_size"`
	OrderIDs      []string      `json:"order_ids"`
}

// MarketReading is the serializable form of trader.MarketSnapshot.
type MarketReading struct {
	LowestAsk  money.Money `json:"lowest_ask"`
	HighestBid money.Money `json:"highest_bid"`
}

// FromTrader captures t's current state as a Snapshot.
func FromTrader(t *trader.Trader) Snapshot {
	snap := Snapshot{
		SchemaVersion:     SchemaVersion,
		Account:           t.Account,
		Grids:             make(map[string]GridPair, len(t.Grids)),
		Market:            make(map[string]MarketReading, len(t.Market)),
		IssuedTakeProfits: make(map[string]string, len(t.IssuedTakeProfits)),
	}
	for key, pg := range t.Grids {
		snap.Grids[key] = GridPair{Sell: fromGrid(pg.Sell), Buy: fromGrid(pg.Buy)}
	}
	for key, m := range t.Market {
		snap.Market[key] = MarketReading{LowestAsk: m.LowestAsk, HighestBid: m.HighestBid}
	}
	for key, id := range t.IssuedTakeProfits {
		snap.IssuedTakeProfits[key] = string(id)
	}
	return snap
}

func fromGrid(g *grid.Grid) GridLadder {
	if g == nil {
		return GridLadder{}
	}
	ids := make([]string, len(g.OrderIDs))
	for i, id := range g.OrderIDs {
		ids[i] = string(id)
	}
	return GridLadder{
		Side:          g.Side.String(),
		Base:          g.Pair.Base,
		Quote:         g.Pair.Quote,
		StartingPrice: g.StartingPrice,
		Rungs:         append([]money.Money(nil), g.Rungs...),
		RungSize:      g.RungSize,
		OrderIDs:      ids,
	}
}

func (l GridLadder) toGrid() *grid.Grid {
	side := grid.Buy
	if l.Side == "SELL" {
		side = grid.Sell
	}
	ids := make([]exchange.OrderID, len(l.OrderIDs))
	for i, id := range l.OrderIDs {
		ids[i] = exchange.OrderID(id)
	}
	return &grid.Grid{
		Side:          side,
		Pair:          pairOf(l.Base, l.Quote),
		StartingPrice: l.StartingPrice,
		Rungs:         append([]money.Money(nil), l.Rungs...),
		RungSize:      l.RungSize,
		OrderIDs:      ids,
	}
}

// ApplyTo restores snap into a fresh Trader built with cfg, ex and
// logger (AttachExchange must be called separately by the caller after
// ApplyTo, mirroring trader.New's split between data and live port).
func (snap Snapshot) ApplyTo(t *trader.Trader) {
	t.Grids = make(map[string]trader.PairGrids, len(snap.Grids))
	for key, gp := range snap.Grids {
		t.Grids[key] = trader.PairGrids{Sell: gp.Sell.toGrid(), Buy: gp.Buy.toGrid()}
	}
	t.Market = make(map[string]trader.MarketSnapshot, len(snap.Market))
	for key, m := range snap.Market {
		t.Market[key] = trader.MarketSnapshot{LowestAsk: m.LowestAsk, HighestBid: m.HighestBid}
	}
	t.IssuedTakeProfits = make(map[string]exchange.OrderID, len(snap.IssuedTakeProfits))
	for key, id := range snap.IssuedTakeProfits {
		t.IssuedTakeProfits[key] = exchange.OrderID(id)
	}
}

func (snap Snapshot) marshal() ([]byte, error) { return json.Marshal(snap) }

func unmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	err := json.Unmarshal(data, &snap)
	return snap, err
}
