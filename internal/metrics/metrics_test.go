package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile_ContainsAccountLabel(t *testing.T) {
	r := NewRecorder("acct")
	r.OrdersPlaced.WithLabelValues("BTC-ETH", "BUY").Inc()
	r.TakeProfits.WithLabelValues("BTC-ETH").Add(2)

	path := filepath.Join(t.TempDir(), "gridtrader_acct.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, `account="acct"`)
	assert.Contains(t, body, "gridtrader_orders_placed_total")
	assert.Contains(t, body, "gridtrader_take_profits_issued_total")
}

func TestNewRecorder_DistinctAccountsDoNotCollide(t *testing.T) {
	a := NewRecorder("a")
	b := NewRecorder("b")
	a.OrdersPlaced.WithLabelValues("p", "BUY").Inc()

	pathA := filepath.Join(t.TempDir(), "a.prom")
	pathB := filepath.Join(t.TempDir(), "b.prom")
	require.NoError(t, a.WriteTextfile(pathA))
	require.NoError(t, b.WriteTextfile(pathB))
}
