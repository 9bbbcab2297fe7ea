// Package e2e drives the dispatcher and the real SQLite-backed store
// together, the way a scheduled CLI invocation does, rather than
// exercising the trader state machine directly in isolation.
package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tommy-ca/gridtrader/internal/config"
	"github.com/tommy-ca/gridtrader/internal/dispatcher"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/exchange/mockexchange"
	"github.com/tommy-ca/gridtrader/internal/logging"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
	"github.com/tommy-ca/gridtrader/internal/store"
)

func mustMoney(t *testing.T, s string) money.Money {
	t.Helper()
	m, err := money.FromString(s)
	require.NoError(t, err)
	return m
}

const sampleINI = `
[pairs]
pairs = BTC-ETH

[initialcorepositions]
ETH = 300

[sellgrid]
majorLevel = 1
numberOfOrders = 3
increments = 1
size = 30

[buygrid]
majorLevel = 1
numberOfOrders = 3
increments = 1
size = 30
profitTarget = 2
`

func newDispatcher(t *testing.T) (*dispatcher.Dispatcher, *mockexchange.Exchange, pair.Pair) {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "account.ini")
	require.NoError(t, os.WriteFile(configPath, []byte(sampleINI), 0o644))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	p := pair.Pair{Base: "BTC", Quote: "ETH"}
	ex := mockexchange.New()
	ex.SetTicker(p, exchange.Ticker{LowestAsk: mustMoney(t, "101"), HighestBid: mustMoney(t, "99")})

	db, err := store.Open(filepath.Join(dir, "account.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d := &dispatcher.Dispatcher{
		Account:    "account",
		ConfigPath: configPath,
		Config:     cfg,
		Exchange:   ex,
		Store:      db,
		Logger:     logging.Nop{},
	}
	return d, ex, p
}

func TestE2E_FreshInit_LiteralRungValues(t *testing.T) {
	d, ex, p := newDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Run(ctx, dispatcher.Request{Init: true}))

	snap, err := d.Store.Load(ctx, "account")
	require.NoError(t, err)

	sell := snap.Grids[p.String()].Sell
	buy := snap.Grids[p.String()].Buy

	wantSell := []string{"101", "102.01", "103.0301"}
	wantBuy := []string{"99", "98.01", "97.0299"}
	for i, w := range wantSell {
		assert.True(t, sell.Rungs[i].Cmp(mustMoney(t, w)) == 0, "sell rung %d: got %s want %s", i, sell.Rungs[i], w)
	}
	for i, w := range wantBuy {
		assert.True(t, buy.Rungs[i].Cmp(mustMoney(t, w)) == 0, "buy rung %d: got %s want %s", i, buy.Rungs[i], w)
	}
	assert.Len(t, sell.OrderIDs, 3)
	assert.Len(t, buy.OrderIDs, 3)
	_ = ex
}

func TestE2E_CrashAfterPollBeforeNextMonitor_TakeProfitNotReissued(t *testing.T) {
	d, ex, p := newDispatcher(t)
	ctx := context.Background()
	require.NoError(t, d.Run(ctx, dispatcher.Request{Init: true}))

	snap, err := d.Store.Load(ctx, "account")
	require.NoError(t, err)
	buyOrderIDs := snap.Grids[p.String()].Buy.OrderIDs
	ex.CloseOrder(exchange.OrderID(buyOrderIDs[0]))

	require.NoError(t, d.Run(ctx, dispatcher.Request{Monitor: true}))
	afterFirst, err := d.Store.Load(ctx, "account")
	require.NoError(t, err)
	firstLedgerSize := len(afterFirst.IssuedTakeProfits)
	require.Equal(t, 1, firstLedgerSize)

	// A second monitor invocation (simulating the process restarting
	// after a crash) must not re-issue the same take-profit: the
	// exchange still reports the buy closed, but it's no longer in
	// the live grid, and the persisted ledger remembers it already
	// fired.
	require.NoError(t, d.Run(ctx, dispatcher.Request{Monitor: true}))
	afterSecond, err := d.Store.Load(ctx, "account")
	require.NoError(t, err)
	assert.Equal(t, firstLedgerSize, len(afterSecond.IssuedTakeProfits))
}

func TestE2E_MonitorBeforeInitIsFatal(t *testing.T) {
	d, _, _ := newDispatcher(t)
	err := d.Run(context.Background(), dispatcher.Request{Monitor: true})
	require.Error(t, err)
}

func TestE2E_SetBalancesRewritesConfigThenInits(t *testing.T) {
	d, ex, p := newDispatcher(t)
	ctx := context.Background()
	ex.Balance["ETH"] = exchange.Balance{Total: mustMoney(t, "600")}

	require.NoError(t, d.Run(ctx, dispatcher.Request{SetBalances: true}))

	reloaded, err := config.Load(d.ConfigPath)
	require.NoError(t, err)
	assert.True(t, reloaded.InitialCorePositions["ETH"].Cmp(mustMoney(t, "600")) == 0)

	snap, err := d.Store.Load(ctx, "account")
	require.NoError(t, err)
	assert.Len(t, snap.Grids[p.String()].Buy.OrderIDs, 3)
}
