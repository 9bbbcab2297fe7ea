package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/config"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/exchange/mockexchange"
	"github.com/tommy-ca/gridtrader/internal/logging"
	"github.com/tommy-ca/gridtrader/internal/metrics"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
	"github.com/tommy-ca/gridtrader/internal/store"
)

const sampleINI = `
[pairs]
pairs = BTC-ETH

[initialcorepositions]
ETH = 300

[sellgrid]
majorLevel = 1
numberOfOrders = 2
increments = 1
size = 30

[buygrid]
majorLevel = 1
numberOfOrders = 2
increments = 1
size = 30
profitTarget = 2

[mock]
apiKey = test
`

func newDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "acct.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte(sampleINI), 0o600))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	ex := mockexchange.New()
	p := pair.Pair{Base: "BTC", Quote: "ETH"}
	mid, err := money.FromString("100")
	require.NoError(t, err)
	ex.SetTicker(p, exchange.Ticker{LowestAsk: mid, HighestBid: mid})
	ex.Balance["ETH"] = exchange.Balance{Available: money.FromFloat(300), Total: money.FromFloat(300)}

	st, err := store.Open(filepath.Join(dir, "acct.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &Dispatcher{
		Account:    "acct",
		ConfigPath: cfgPath,
		Config:     cfg,
		Exchange:   ex,
		Store:      st,
		Logger:     logging.Nop{},
	}, cfgPath
}

func TestRun_Init_PersistsSnapshot(t *testing.T) {
	d, _ := newDispatcher(t)
	require.NoError(t, d.Run(context.Background(), Request{Init: true}))

	exists, err := d.Store.Exists(context.Background(), "acct")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_Monitor_WithoutInitIsFatal(t *testing.T) {
	d, _ := newDispatcher(t)
	err := d.Run(context.Background(), Request{Monitor: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSnapshotMissing)
}

func TestRun_InitThenMonitor(t *testing.T) {
	d, _ := newDispatcher(t)
	require.NoError(t, d.Run(context.Background(), Request{Init: true}))
	require.NoError(t, d.Run(context.Background(), Request{Monitor: true}))
}

func TestRun_CancelAll(t *testing.T) {
	d, _ := newDispatcher(t)
	require.NoError(t, d.Run(context.Background(), Request{CancelAll: true}))
}

func TestRun_SetBalances_RewritesConfigAndInits(t *testing.T) {
	d, cfgPath := newDispatcher(t)
	ex := d.Exchange.(*mockexchange.Exchange)
	ex.Balance["ETH"] = exchange.Balance{Available: money.FromFloat(500), Total: money.FromFloat(500)}

	require.NoError(t, d.Run(context.Background(), Request{SetBalances: true}))

	reloaded, err := config.Load(cfgPath)
	require.NoError(t, err)
	want, _ := money.FromString("500")
	assert.Zero(t, reloaded.InitialCorePositions["ETH"].Cmp(want))

	exists, err := d.Store.Exists(context.Background(), "acct")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_StatusOf(t *testing.T) {
	d, _ := newDispatcher(t)
	require.NoError(t, d.Run(context.Background(), Request{Init: true}))
	require.NoError(t, d.Run(context.Background(), Request{StatusOf: "nonexistent-order"}))
}

func TestRun_Balances(t *testing.T) {
	d, _ := newDispatcher(t)
	require.NoError(t, d.Run(context.Background(), Request{Balances: true}))
}

// TestRun_InitThenMonitor_RecordsMetrics exercises the real wiring
// path: a Dispatcher's Metrics field flows into the Trader it builds,
// and down into grid.PlaceOrders, without the test touching the
// Recorder's counters directly.
func TestRun_InitThenMonitor_RecordsMetrics(t *testing.T) {
	d, _ := newDispatcher(t)
	rec := metrics.NewRecorder("acct")
	d.Metrics = rec

	require.NoError(t, d.Run(context.Background(), Request{Init: true}))
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.OrdersPlaced.WithLabelValues("BTC-ETH", "BUY")))
	assert.Equal(t, float64(2), testutil.ToFloat64(rec.OrdersPlaced.WithLabelValues("BTC-ETH", "SELL")))

	require.NoError(t, d.Run(context.Background(), Request{Monitor: true}))
	path := filepath.Join(t.TempDir(), "acct.prom")
	require.NoError(t, rec.WriteTextfile(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gridtrader_poll_duration_seconds_count{account=\"acct\"} 1")
}
