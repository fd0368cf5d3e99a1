package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shestoi/stocksync/internal/feed"
	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/service"
	"github.com/shestoi/stocksync/internal/stock"
)

type fakeApp struct {
	result   service.Result
	syncErr  error
	view     service.StockView
	stockErr error
	trigger  service.Trigger
	sku      string
	closed   bool
	ran      bool
}

func (f *fakeApp) Run(ctx context.Context) error {
	f.ran = true
	return nil
}

func (f *fakeApp) Sync(ctx context.Context, trigger service.Trigger) (service.Result, error) {
	f.trigger = trigger
	return f.result, f.syncErr
}

func (f *fakeApp) Stock(ctx context.Context, sku string) (service.StockView, error) {
	f.sku = sku
	return f.view, f.stockErr
}

func (f *fakeApp) Close() {
	f.closed = true
}

func execute(t *testing.T, app *fakeApp, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand(func(context.Context) (Application, error) {
		return app, nil
	})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSyncCommand_Success(t *testing.T) {
	app := &fakeApp{result: service.Result{Updated: 3, Skipped: 1, Errors: []string{"no product found with SKU X"}}}

	stdout, _, err := execute(t, app, "sync")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Sync completed. 3 products updated, 1 skipped.")
	assert.Contains(t, stdout, "no product found with SKU X")
	assert.Equal(t, service.TriggerManual, app.trigger)
	assert.True(t, app.closed)
}

func TestSyncCommand_ErrorText(t *testing.T) {
	app := &fakeApp{syncErr: feed.ErrMissingEndpoint}

	stdout, stderr, err := execute(t, app, "sync")
	require.Error(t, err)
	assert.True(t, IsSilent(err))
	assert.Empty(t, stdout)
	assert.Equal(t, "no API endpoint configured\n", stderr)
}

func TestSyncCommand_JSON(t *testing.T) {
	t.Run("result", func(t *testing.T) {
		app := &fakeApp{result: service.Result{Updated: 2, Errors: []string{}}}

		stdout, _, err := execute(t, app, "sync", "--format", "json")
		require.NoError(t, err)

		var got service.Result
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, 2, got.Updated)
		assert.NotNil(t, got.Errors)
	})

	t.Run("error", func(t *testing.T) {
		app := &fakeApp{syncErr: fmt.Errorf("%w: %w", feed.ErrTransport, errors.New("dial tcp: refused"))}

		stdout, _, err := execute(t, app, "sync", "--format", "json")
		require.Error(t, err)

		var got map[string]string
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, service.CodeTransportError, got["error"])
		assert.Contains(t, got["message"], "dial tcp")
	})
}

func TestStockCommand(t *testing.T) {
	app := &fakeApp{view: service.StockView{
		SKU:           "A",
		ManageStock:   true,
		LocalStock:    7,
		ExternalStock: 3,
		CombinedStock: 10,
		Status:        stock.StatusInStock,
	}}

	stdout, _, err := execute(t, app, "stock", "A")
	require.NoError(t, err)

	assert.Equal(t, "A", app.sku)
	assert.Contains(t, stdout, "Combined stock: 10")
	assert.Contains(t, stdout, "Status:         instock")
}

func TestStockCommand_NotFound(t *testing.T) {
	app := &fakeApp{stockErr: repository.ErrNotFound}

	_, _, err := execute(t, app, "stock", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStockCommand_RequiresSKU(t *testing.T) {
	_, _, err := execute(t, &fakeApp{}, "stock")
	require.Error(t, err)
}

func TestServeCommand(t *testing.T) {
	app := &fakeApp{}

	_, _, err := execute(t, app, "serve")
	require.NoError(t, err)
	assert.True(t, app.ran)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := execute(t, &fakeApp{}, "sync", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBuildError(t *testing.T) {
	root := NewRootCommand(func(context.Context) (Application, error) {
		return nil, errors.New("failed to load config: boom")
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"stock", "A"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
