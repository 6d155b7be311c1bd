package emulation

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/ton/accountevent"
	"github.com/ton-connect/walletkit-go/pkg/toncenter"
	"github.com/ton-connect/walletkit-go/pkg/utils"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetTrace(ctx context.Context, txHash string) (*toncenter.Trace, error) {
	args := m.Called(ctx, txHash)
	tr, _ := args.Get(0).(*toncenter.Trace)
	return tr, args.Error(1)
}

func (m *mockAPI) EmulateTrace(ctx context.Context, boc string) (*toncenter.Trace, error) {
	args := m.Called(ctx, boc)
	tr, _ := args.Get(0).(*toncenter.Trace)
	return tr, args.Error(1)
}

func (m *mockAPI) GetAccountState(ctx context.Context, addr string) (*toncenter.AccountState, error) {
	args := m.Called(ctx, addr)
	st, _ := args.Get(0).(*toncenter.AccountState)
	return st, args.Error(1)
}

func (m *mockAPI) SendMessage(ctx context.Context, boc string) (*toncenter.SendMessageResult, error) {
	args := m.Called(ctx, boc)
	res, _ := args.Get(0).(*toncenter.SendMessageResult)
	return res, args.Error(1)
}

type stubWallet struct {
	addr *address.Address
	boc  string
	err  error
}

func (w *stubWallet) Address() *address.Address { return w.addr }

func (w *stubWallet) EmulationMessage(context.Context, *intent.TransactionRequest) (string, error) {
	return w.boc, w.err
}

func addr(b byte) *address.Address {
	return address.NewAddress(0, 0, bytes.Repeat([]byte{b}, 32))
}

func tonTrace(from, to *address.Address) *toncenter.Trace {
	yes := true
	descr := toncenter.TransactionDescr{Type: "ord", ComputePh: &toncenter.ComputePhase{Success: &yes}, Action: &toncenter.ActionPhase{Success: &yes}}
	out := &toncenter.Message{Hash: "m1", Source: from.StringRaw(), Destination: to.StringRaw(), Value: "1000000000"}
	return &toncenter.Trace{
		TraceID: "t1",
		Root:    &toncenter.TraceNode{TxHash: "t1", Children: []*toncenter.TraceNode{{TxHash: "t2", InMsgHash: "m1"}}},
		Transactions: map[string]*toncenter.Transaction{
			"t1": {Account: from.StringRaw(), Hash: "t1", Lt: "10", Now: 1700000000, OrigStatus: "active", EndStatus: "active",
				Descr: descr, InMsg: &toncenter.Message{Hash: "ext", Destination: from.StringRaw()}, OutMsgs: []*toncenter.Message{out}},
			"t2": {Account: to.StringRaw(), Hash: "t2", Lt: "20", Now: 1700000001, OrigStatus: "active", EndStatus: "active",
				Descr: descr, InMsg: out},
		},
	}
}

var fastRetry = utils.RetryConfig{Attempts: 3, Delay: time.Millisecond}

func request(to *address.Address) *intent.TransactionRequest {
	return &intent.TransactionRequest{Messages: []intent.TransactionRequestMessage{{Address: to.String(), Amount: "1000000000"}}}
}

func TestEmulate(t *testing.T) {
	alice, bob := addr(0xa1), addr(0xb0)
	api := &mockAPI{}
	api.On("EmulateTrace", mock.Anything, "boc").Return(nil, errors.New("timeout")).Once()
	api.On("EmulateTrace", mock.Anything, "boc").Return(tonTrace(alice, bob), nil).Once()

	e := NewEmulator(logger.Test(t), api, nil, fastRetry)
	p, err := e.Emulate(context.Background(), &stubWallet{addr: alice, boc: "boc"}, request(bob))
	require.NoError(t, err)
	api.AssertExpectations(t)

	assert.Equal(t, ResultSuccess, p.Result)
	assert.Nil(t, p.Error)
	require.NotNil(t, p.Event)
	require.Len(t, p.Event.Actions, 1)
	assert.Equal(t, accountevent.ActionTonTransfer, p.Event.Actions[0].Type())

	require.NotNil(t, p.MoneyFlow)
	assert.Equal(t, "1000000000", p.MoneyFlow.Outputs)
	assert.Equal(t, "0", p.MoneyFlow.Inputs)
	assert.Equal(t, alice.String(), p.MoneyFlow.OurAddress)
	assert.Empty(t, p.MoneyFlow.JettonDeltas)
}

func TestEmulateErrors(t *testing.T) {
	alice, bob := addr(0xa1), addr(0xb0)

	testCases := []struct {
		name    string
		wallet  *stubWallet
		req     *intent.TransactionRequest
		setup   func(api *mockAPI)
		wantErr string
	}{
		{
			name:    "no messages",
			wallet:  &stubWallet{addr: alice, boc: "boc"},
			req:     &intent.TransactionRequest{},
			wantErr: "nothing to emulate",
		},
		{
			name:    "message build fails",
			wallet:  &stubWallet{addr: alice, err: errors.New("seqno unavailable")},
			req:     request(bob),
			wantErr: "failed to build emulation message",
		},
		{
			name:   "emulator keeps failing",
			wallet: &stubWallet{addr: alice, boc: "boc"},
			req:    request(bob),
			setup: func(api *mockAPI) {
				api.On("EmulateTrace", mock.Anything, "boc").Return(nil, errors.New("unavailable"))
			},
			wantErr: "failed to emulate trace",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &mockAPI{}
			if tc.setup != nil {
				tc.setup(api)
			}
			e := NewEmulator(logger.Test(t), api, nil, fastRetry)
			_, err := e.Emulate(context.Background(), tc.wallet, tc.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestErrorPreview(t *testing.T) {
	p := ErrorPreview(errors.New("boom"))
	assert.Equal(t, ResultError, p.Result)
	require.NotNil(t, p.Error)
	assert.Equal(t, ErrorCodeUnknown, p.Error.Code)
	assert.Equal(t, "boom", p.Error.Message)
}

func TestBuildMoneyFlow(t *testing.T) {
	us := addr(0xa1).String()
	other := accountevent.AccountAddress{Address: addr(0xb0).String()}
	me := accountevent.AccountAddress{Address: us}
	usdt := accountevent.JettonPreview{Address: addr(0x33).String(), Symbol: "USDT", Decimals: 6}

	ev := &accountevent.Event{
		Account: me,
		Actions: []accountevent.Action{
			&accountevent.TonTransferAction{Sender: me, Recipient: other, Amount: "100"},
			&accountevent.TonTransferAction{Sender: other, Recipient: me, Amount: "30"},
			&accountevent.SmartContractExecAction{Executor: me, Contract: other, TonAttached: "5"},
			&accountevent.JettonTransferAction{Sender: &me, Recipient: &other, Amount: "700", Jetton: usdt},
			&accountevent.JettonTransferAction{Sender: &other, Recipient: &me, Amount: "200", Jetton: usdt},
			&accountevent.JettonSwapAction{TonIn: "50", AmountOut: "10", JettonMasterOut: &usdt},
		},
	}

	flow := BuildMoneyFlow(ev)
	assert.Equal(t, "155", flow.Outputs)
	assert.Equal(t, "30", flow.Inputs)
	require.Len(t, flow.JettonDeltas, 1)
	assert.Equal(t, "-490", flow.JettonDeltas[0].Amount)
	assert.Equal(t, "USDT", flow.JettonDeltas[0].Jetton.Symbol)
}
