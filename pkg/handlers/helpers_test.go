package handlers

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/analytics"
	"github.com/ton-connect/walletkit-go/pkg/emulation"
	"github.com/ton-connect/walletkit-go/pkg/events"
	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/storage"
	"github.com/ton-connect/walletkit-go/pkg/tonconnect"
	"github.com/ton-connect/walletkit-go/pkg/wallet"
)

// plainWallet has no signing capabilities.
type plainWallet struct {
	addr    *address.Address
	network wallet.Network
}

func (w *plainWallet) Address() *address.Address { return w.addr }
func (w *plainWallet) Network() wallet.Network   { return w.network }
func (w *plainWallet) Version() string           { return "v4r2" }
func (w *plainWallet) JettonWalletAddress(context.Context, *address.Address) (*address.Address, error) {
	return testAddr(0xee), nil
}
func (w *plainWallet) SendTransaction(context.Context, *intent.TransactionRequest) error { return nil }

type fullWallet struct {
	plainWallet
	key ed25519.PrivateKey
}

func (w *fullWallet) SignMessage(context.Context, *intent.TransactionRequest) (string, error) {
	return "signed", nil
}

func (w *fullWallet) EmulationMessage(context.Context, *intent.TransactionRequest) (string, error) {
	return "external", nil
}

func (w *fullWallet) SignData(_ context.Context, hash []byte) ([]byte, error) {
	return ed25519.Sign(w.key, hash), nil
}

type mockPreviewer struct {
	mock.Mock
}

func (m *mockPreviewer) Emulate(ctx context.Context, w emulation.Wallet, req *intent.TransactionRequest) (*emulation.Preview, error) {
	args := m.Called(ctx, w, req)
	p, _ := args.Get(0).(*emulation.Preview)
	return p, args.Error(1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (s *recordingSink) Track(_ context.Context, ev analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func testAddr(b byte) *address.Address {
	return address.NewAddress(0, 0, bytes.Repeat([]byte{b}, 32))
}

var testNow = time.Unix(1700000000, 0)

type fixture struct {
	wallets   *wallet.Manager
	sessions  *tonconnect.SessionManager
	previewer *mockPreviewer
	bus       *events.Bus
	sink      *recordingSink
	emitted   []events.Event

	full    *fullWallet
	fullID  string
	plain   *plainWallet
	plainID string
	session *tonconnect.Session
	deps    Deps
	opts    Options
	lggr    logger.Logger
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	lggr := logger.Test(t)
	store := storage.NewMemory()
	f := &fixture{
		wallets:   wallet.NewManager(lggr, store),
		sessions:  tonconnect.NewSessionManager(lggr, store),
		previewer: &mockPreviewer{},
		bus:       events.NewBus(lggr),
		sink:      &recordingSink{},
		lggr:      lggr,
	}
	f.bus.Subscribe("", func(_ context.Context, ev events.Event) error {
		f.emitted = append(f.emitted, ev)
		return nil
	})

	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	f.full = &fullWallet{plainWallet: plainWallet{addr: testAddr(0xa1), network: wallet.Mainnet}, key: key}
	f.fullID, err = f.wallets.AddWallet(ctx, f.full)
	require.NoError(t, err)
	f.plain = &plainWallet{addr: testAddr(0xb2), network: wallet.Testnet}
	f.plainID, err = f.wallets.AddWallet(ctx, f.plain)
	require.NoError(t, err)

	f.session, err = f.sessions.CreateSession(ctx, "client-1", tonconnect.DAppInfo{Name: "Demo", URL: "https://demo.example"}, f.fullID, f.full.addr.String())
	require.NoError(t, err)

	f.deps = Deps{Wallets: f.wallets, Sessions: f.sessions, Previewer: f.previewer, Emitter: f.bus, Analytics: f.sink}
	f.opts = Options{Now: func() time.Time { return testNow }}
	return f
}

func (f *fixture) types() []events.Type {
	out := make([]events.Type, 0, len(f.emitted))
	for _, ev := range f.emitted {
		out = append(out, ev.Type)
	}
	return out
}

func bridgeRequest(t *testing.T, method, walletID string, param any) *tonconnect.BridgeEvent {
	raw, err := json.Marshal(param)
	require.NoError(t, err)
	return &tonconnect.BridgeEvent{
		RPCRequest: tonconnect.RPCRequest{ID: "req-1", Method: method, Params: []string{string(raw)}},
		From:       "client-1",
		WalletID:   walletID,
		TraceID:    "trace-1",
	}
}
