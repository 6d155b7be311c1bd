package wallet

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/storage"
)

type fakeWallet struct {
	addr    *address.Address
	network Network
}

func (f *fakeWallet) Address() *address.Address { return f.addr }
func (f *fakeWallet) Network() Network          { return f.network }
func (f *fakeWallet) Version() string           { return "v5r1" }
func (f *fakeWallet) JettonWalletAddress(context.Context, *address.Address) (*address.Address, error) {
	return f.addr, nil
}
func (f *fakeWallet) SendTransaction(context.Context, *intent.TransactionRequest) error { return nil }

func testAddr(b byte) *address.Address {
	return address.NewAddress(0, 0, bytes.Repeat([]byte{b}, 32))
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := NewManager(logger.Test(t), store)

	mainnet := &fakeWallet{addr: testAddr(1), network: Mainnet}
	testnet := &fakeWallet{addr: testAddr(2), network: Testnet}

	mainID, err := m.AddWallet(ctx, mainnet)
	require.NoError(t, err)
	assert.Equal(t, "-239:"+mainnet.addr.StringRaw(), mainID)
	testID, err := m.AddWallet(ctx, testnet)
	require.NoError(t, err)

	t.Run("by id", func(t *testing.T) {
		w, err := m.Wallet(testID)
		require.NoError(t, err)
		assert.Same(t, testnet, w)
	})

	t.Run("by address", func(t *testing.T) {
		for _, a := range []string{mainnet.addr.String(), mainnet.addr.StringRaw()} {
			w, id, err := m.WalletByAddress(a)
			require.NoError(t, err)
			assert.Same(t, mainnet, w)
			assert.Equal(t, mainID, id)
		}
	})

	t.Run("lookup falls back to address", func(t *testing.T) {
		w, id, err := m.Lookup("unknown", testnet.addr.String())
		require.NoError(t, err)
		assert.Same(t, testnet, w)
		assert.Equal(t, testID, id)

		_, _, err = m.Lookup("unknown", "")
		require.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("persisted descriptors", func(t *testing.T) {
		descs, err := NewManager(logger.Test(t), store).StoredDescriptors(ctx)
		require.NoError(t, err)
		require.Len(t, descs, 2)
		assert.Equal(t, mainID, descs[0].ID)
		assert.Equal(t, Mainnet, descs[0].Network)
		assert.Equal(t, "v5r1", descs[0].Version)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, m.RemoveWallet(ctx, mainID))
		_, err := m.Wallet(mainID)
		require.ErrorIs(t, err, ErrWalletNotFound)
		require.ErrorIs(t, m.RemoveWallet(ctx, mainID), ErrWalletNotFound)
		assert.Len(t, m.Wallets(), 1)
	})
}

func TestManagerRejectsUnknownNetwork(t *testing.T) {
	m := NewManager(logger.Test(t), storage.NewMemory())
	_, err := m.AddWallet(context.Background(), &fakeWallet{addr: testAddr(3), network: "1"})
	require.Error(t, err)
	assert.Empty(t, m.Wallets())
}

func TestNetwork(t *testing.T) {
	testCases := []struct {
		in    string
		valid bool
		id    int32
	}{
		{"-239", true, -239},
		{"-3", true, -3},
		{"0", false, 0},
		{"", false, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			n, err := ParseNetwork(tc.in)
			if !tc.valid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			id, err := n.ChainID()
			require.NoError(t, err)
			assert.Equal(t, tc.id, id)
			assert.NotEmpty(t, n.Name())
		})
	}
}

func TestBuildMessages(t *testing.T) {
	dst := testAddr(4)
	req := &intent.TransactionRequest{Messages: []intent.TransactionRequestMessage{
		{Address: dst.String(), Amount: "1000"},
	}}
	msgs, err := BuildMessages(req)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1000", msgs[0].InternalMessage.Amount.Nano().String())
	assert.True(t, msgs[0].InternalMessage.DstAddr.Equals(dst))

	badCases := []struct {
		name string
		msg  intent.TransactionRequestMessage
	}{
		{"bad address", intent.TransactionRequestMessage{Address: "nope", Amount: "1"}},
		{"bad amount", intent.TransactionRequestMessage{Address: dst.String(), Amount: "-1"}},
		{"bad payload", intent.TransactionRequestMessage{Address: dst.String(), Amount: "1", Payload: "!!"}},
		{"extra currency", intent.TransactionRequestMessage{Address: dst.String(), Amount: "1", ExtraCurrency: map[string]string{"100": "1"}}},
	}
	for _, tc := range badCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildMessages(&intent.TransactionRequest{Messages: []intent.TransactionRequestMessage{tc.msg}})
			require.Error(t, err)
		})
	}
	_, err = BuildMessages(&intent.TransactionRequest{})
	require.Error(t, err)
}
