package accountevent

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/bindings/comment"
	"github.com/ton-connect/walletkit-go/pkg/bindings/jetton"
	"github.com/ton-connect/walletkit-go/pkg/bindings/nft"
	"github.com/ton-connect/walletkit-go/pkg/toncenter"
)

func rawAddr(b byte) string {
	return address.NewAddress(0, 0, bytes.Repeat([]byte{b}, 32)).StringRaw()
}

func mustAddr(t *testing.T, raw string) *address.Address {
	a, err := address.ParseRawAddr(raw)
	require.NoError(t, err)
	return a
}

var (
	alice  = rawAddr(0xa1)
	bob    = rawAddr(0xb0)
	router = rawAddr(0xc0)
	aliceX = rawAddr(0x1a)
	bobX   = rawAddr(0x1b)
	routX  = rawAddr(0x1c)
	routY  = rawAddr(0x2c)
	aliceY = rawAddr(0x2a)
	master = rawAddr(0x33)
	item   = rawAddr(0x44)
)

func successDescr() toncenter.TransactionDescr {
	yes := true
	return toncenter.TransactionDescr{Type: "ord", ComputePh: &toncenter.ComputePhase{Success: &yes}, Action: &toncenter.ActionPhase{Success: &yes}}
}

type traceBuilder struct {
	t     *testing.T
	trace *toncenter.Trace
	lt    uint64
}

func newTrace(t *testing.T) *traceBuilder {
	return &traceBuilder{t: t, trace: &toncenter.Trace{Transactions: map[string]*toncenter.Transaction{}}}
}

func (tb *traceBuilder) tx(hash, account string, in *toncenter.Message, out ...*toncenter.Message) *toncenter.Transaction {
	tb.lt += 10
	tx := &toncenter.Transaction{
		Account:    account,
		Hash:       hash,
		Lt:         big.NewInt(int64(tb.lt)).String(),
		Now:        1700000000 + int64(tb.lt),
		OrigStatus: "active",
		EndStatus:  "active",
		Descr:      successDescr(),
		InMsg:      in,
		OutMsgs:    out,
	}
	if in == nil {
		tx.InMsg = &toncenter.Message{Hash: "ext-" + hash, Destination: account}
	}
	if tb.trace.Root == nil {
		tb.trace.Root = &toncenter.TraceNode{TxHash: hash}
		tb.trace.TraceID = hash
	}
	tb.trace.Transactions[hash] = tx
	return tx
}

func msg(hash, src, dst, value string) *toncenter.Message {
	return &toncenter.Message{Hash: hash, Source: src, Destination: dst, Value: value}
}

func withBody(t *testing.T, m *toncenter.Message, body *cell.Cell) *toncenter.Message {
	op, err := body.BeginParse().LoadUInt(32)
	require.NoError(t, err)
	o := toncenter.Opcode(op)
	m.Opcode = &o
	m.Content = &toncenter.MessageContent{Body: base64.StdEncoding.EncodeToString(body.ToBOC())}
	return m
}

func withDecoded(m *toncenter.Message, op uint32, name string, decoded map[string]any) *toncenter.Message {
	if op != 0 {
		o := toncenter.Opcode(op)
		m.Opcode = &o
	}
	m.DecodedOpcode = name
	raw, _ := json.Marshal(decoded)
	m.Content = &toncenter.MessageContent{Decoded: raw}
	return m
}

func jettonTransferBody(t *testing.T, amount int64, dst, resp string) *cell.Cell {
	c, err := jetton.BuildTransfer(jetton.TransferParams{
		Amount:              big.NewInt(amount),
		Destination:         mustAddr(t, dst),
		ResponseDestination: mustAddr(t, resp),
	})
	require.NoError(t, err)
	return c
}

func internal(hash, src, dst string) *toncenter.Message {
	return withDecoded(msg(hash, src, dst, "40000000"), jetton.OpcodeWalletInternalTransfer, OpJettonInternalTransfer, map[string]any{})
}

func notify(hash, src, dst, sender string, amount string) *toncenter.Message {
	return withDecoded(msg(hash, src, dst, "1"), jetton.OpcodeWalletTransferNotification, OpJettonNotify,
		map[string]any{"amount": amount, "sender": sender})
}

func excess(hash, src, dst string) *toncenter.Message {
	return withDecoded(msg(hash, src, dst, "30000000"), jetton.OpcodeWalletExcesses, OpExcess, map[string]any{})
}

// jettonTrace is alice -> aliceX -> bobX -> bob, with the excess back to alice.
func jettonTrace(t *testing.T) *toncenter.Trace {
	tb := newTrace(t)
	m1 := withBody(t, msg("m1", alice, aliceX, "50000000"), jettonTransferBody(t, 5_000_000, bob, alice))
	tb.tx("t0", alice, nil, m1)
	m2 := internal("m2", aliceX, bobX)
	tb.tx("t1", aliceX, m1, m2)
	m3 := notify("m3", bobX, bob, alice, "5000000")
	m4 := excess("m4", bobX, alice)
	tb.tx("t2", bobX, m2, m3, m4)
	tb.tx("t3", bob, m3)
	tb.tx("t4", alice, m4)
	tb.trace.Metadata = toncenter.Metadata{
		bobX:   {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_wallets", Extra: map[string]any{"jetton": master}}}},
		master: {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_masters", Symbol: "USDT", Name: "Tether", Extra: map[string]any{"decimals": "6"}}}},
	}
	return tb.trace
}

func newTestDecoder(t *testing.T) *Decoder {
	return NewDecoder(logger.Test(t), nil)
}

func TestJettonTransferOrdering(t *testing.T) {
	d := newTestDecoder(t)
	want := []string{"t1", "t3", "t2", "t4"}

	for i := 0; i < 20; i++ {
		ev, err := d.Decode(jettonTrace(t), alice)
		require.NoError(t, err)
		require.Len(t, ev.Actions, 1)
		a, ok := ev.Actions[0].(*JettonTransferAction)
		require.True(t, ok)
		assert.Equal(t, want, a.BaseTransactions)
		assert.Equal(t, "t0", a.ID)
	}
}

func TestJettonTransferSent(t *testing.T) {
	ev, err := newTestDecoder(t).Decode(jettonTrace(t), alice)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)

	a := ev.Actions[0].(*JettonTransferAction)
	assert.Equal(t, StatusSuccess, a.Status)
	assert.Equal(t, "5000000", a.Amount)
	require.NotNil(t, a.Recipient)
	assert.Equal(t, mustAddr(t, bob).String(), a.Recipient.Address)
	assert.Equal(t, mustAddr(t, aliceX).String(), a.SendersWallet)
	assert.Equal(t, mustAddr(t, bobX).String(), a.RecipientsWallet)
	assert.Equal(t, "USDT", a.Jetton.Symbol)
	assert.Equal(t, 6, a.Jetton.Decimals)
	assert.Equal(t, "Transferring 5 USDT", a.SimplePreview.Description)
	assert.Equal(t, "t0", ev.EventID)
	assert.Len(t, ev.Transactions, 5)
}

func TestJettonTransferReceived(t *testing.T) {
	ev, err := newTestDecoder(t).Decode(jettonTrace(t), bob)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)

	a := ev.Actions[0].(*JettonTransferAction)
	assert.Equal(t, "t0", a.ID, "received transfers are keyed by the trace root")
	assert.Equal(t, []string{"t1", "t3", "t2", "t4"}, a.BaseTransactions)
	require.NotNil(t, a.Sender)
	assert.Equal(t, mustAddr(t, alice).String(), a.Sender.Address)
	assert.Equal(t, mustAddr(t, aliceX).String(), a.SendersWallet)
	assert.Equal(t, mustAddr(t, master).String(), a.Jetton.Address)
}

// silentJettonTrace is alice -> aliceX -> bobX with no notification to bob,
// as sent with a zero forward amount.
func silentJettonTrace(t *testing.T, meta toncenter.Metadata) *toncenter.Trace {
	tb := newTrace(t)
	m1 := withBody(t, msg("m1", alice, aliceX, "50000000"), jettonTransferBody(t, 5_000_000, bob, alice))
	tb.tx("t0", alice, nil, m1)
	m2 := internal("m2", aliceX, bobX)
	tb.tx("t1", aliceX, m1, m2)
	m3 := excess("m3", bobX, alice)
	tb.tx("t2", bobX, m2, m3)
	tb.tx("t3", alice, m3)
	tb.trace.Metadata = meta
	return tb.trace
}

func TestJettonReceivedWithoutNotification(t *testing.T) {
	masterMeta := toncenter.AddressMetadata{TokenInfo: []toncenter.TokenInfo{{Type: "jetton_masters", Symbol: "USDT", Extra: map[string]any{"decimals": "6"}}}}
	testCases := []struct {
		name string
		meta toncenter.Metadata
	}{
		{
			name: "owner from wallet metadata",
			meta: toncenter.Metadata{
				bobX:   {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_wallets", Extra: map[string]any{"jetton": master, "owner": bob}}}},
				master: masterMeta,
			},
		},
		{
			name: "owner from transfer destination",
			meta: toncenter.Metadata{
				bobX:   {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_wallets", Extra: map[string]any{"jetton": master}}}},
				master: masterMeta,
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := newTestDecoder(t).Decode(silentJettonTrace(t, tc.meta), bob)
			require.NoError(t, err)
			require.Len(t, ev.Actions, 1)

			a, ok := ev.Actions[0].(*JettonTransferAction)
			require.True(t, ok)
			assert.Equal(t, "t0", a.ID)
			assert.Equal(t, StatusSuccess, a.Status)
			assert.Equal(t, []string{"t1", "t2", "t3"}, a.BaseTransactions)
			assert.Equal(t, "5000000", a.Amount)
			require.NotNil(t, a.Sender)
			assert.Equal(t, mustAddr(t, alice).String(), a.Sender.Address)
			require.NotNil(t, a.Recipient)
			assert.Equal(t, mustAddr(t, bob).String(), a.Recipient.Address)
			assert.Equal(t, mustAddr(t, aliceX).String(), a.SendersWallet)
			assert.Equal(t, mustAddr(t, bobX).String(), a.RecipientsWallet)
			assert.Equal(t, "USDT", a.Jetton.Symbol)
			assert.NotZero(t, ev.Timestamp)
		})
	}
}

func TestJettonWalletOwnedByOtherAccount(t *testing.T) {
	meta := toncenter.Metadata{
		bobX: {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_wallets", Extra: map[string]any{"jetton": master, "owner": router}}}},
	}
	ev, err := newTestDecoder(t).Decode(silentJettonTrace(t, meta), bob)
	require.NoError(t, err)
	assert.Empty(t, ev.Actions)
}

func TestJettonReceivedReportedOnce(t *testing.T) {
	trace := jettonTrace(t)
	trace.Metadata[bobX].TokenInfo[0].Extra["owner"] = bob

	ev, err := newTestDecoder(t).Decode(trace, bob)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	assert.Equal(t, "t0", ev.Actions[0].Base().ID)
}

func TestJettonFailedHop(t *testing.T) {
	trace := jettonTrace(t)
	code := int32(706)
	trace.Transactions["t1"].Descr = toncenter.TransactionDescr{Aborted: true, ComputePh: &toncenter.ComputePhase{ExitCode: &code}}

	ev, err := newTestDecoder(t).Decode(trace, alice)
	require.NoError(t, err)
	a := ev.Actions[0].(*JettonTransferAction)
	assert.Equal(t, StatusFailure, a.Status)
	assert.Equal(t, "Not enough jettons", a.FailureReason)
}

func TestJettonMasterResolution(t *testing.T) {
	testCases := []struct {
		name   string
		book   toncenter.AddressBook
		meta   toncenter.Metadata
		master string
	}{
		{
			name: "wallet metadata",
			meta: toncenter.Metadata{
				aliceX: {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_wallets", Extra: map[string]any{"jetton": master}}}},
			},
			master: master,
		},
		{
			name:   "single jetton master in address book",
			book:   toncenter.AddressBook{master: {UserFriendly: "EQmaster", Interfaces: []string{"jetton_master"}}},
			master: master,
		},
		{
			name: "minter domain",
			book: toncenter.AddressBook{
				rawAddr(0x55): {Interfaces: []string{"jetton_master"}},
				rawAddr(0x56): {Interfaces: []string{"jetton_master"}},
				master:        {Domain: "usdt-Minter.ton"},
			},
			master: master,
		},
		{
			name:   "unresolved",
			book:   toncenter.AddressBook{bob: {Domain: "bob.ton"}},
			master: "",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trace := jettonTrace(t)
			trace.AddressBook = tc.book
			trace.Metadata = tc.meta

			ev, err := newTestDecoder(t).Decode(trace, alice)
			require.NoError(t, err)
			a := ev.Actions[0].(*JettonTransferAction)
			if tc.master == "" {
				assert.Empty(t, a.Jetton.Address)
				assert.Equal(t, "Transferring 0.005 jettons", a.SimplePreview.Description)
				return
			}
			want := mustAddr(t, tc.master).String()
			if row, ok := tc.book[tc.master]; ok && row.UserFriendly != "" {
				want = row.UserFriendly
			}
			assert.Equal(t, want, a.Jetton.Address)
		})
	}
}

func TestTonTransfer(t *testing.T) {
	tb := newTrace(t)
	text, err := comment.Build("thanks")
	require.NoError(t, err)
	out := withBody(t, msg("m1", alice, bob, "1500000000"), text)
	tb.tx("t0", alice, nil, out)
	tb.tx("t1", bob, out)
	tb.trace.AddressBook = toncenter.AddressBook{bob: {UserFriendly: "UQbob", Domain: "bob.ton", Interfaces: []string{"wallet_v5r1"}}}

	d := newTestDecoder(t)
	for _, tc := range []struct {
		account string
		sender  string
	}{
		{alice, mustAddr(t, alice).String()},
		{bob, mustAddr(t, alice).String()},
	} {
		ev, err := d.Decode(tb.trace, tc.account)
		require.NoError(t, err)
		require.Len(t, ev.Actions, 1)
		a := ev.Actions[0].(*TonTransferAction)
		assert.Equal(t, "1500000000", a.Amount)
		assert.Equal(t, "thanks", a.Comment)
		assert.Equal(t, tc.sender, a.Sender.Address)
		assert.Equal(t, "UQbob", a.Recipient.Address)
		assert.Equal(t, "bob.ton", a.Recipient.Name)
		assert.True(t, a.Recipient.IsWallet)
		assert.Equal(t, "Transferring 1.5 TON", a.SimplePreview.Description)
		assert.Equal(t, "1.5 TON", a.SimplePreview.Value)
	}
}

func TestUndecodableMessagesAreSkipped(t *testing.T) {
	tb := newTrace(t)
	garbage := msg("m2", alice, aliceX, "50000000")
	o := toncenter.Opcode(jetton.OpcodeWalletTransfer)
	garbage.Opcode = &o
	tb.tx("t0", alice, nil,
		msg("m1", alice, bob, "not-a-number"),
		garbage,
		msg("m3", alice, "not-an-address", "1000"),
		msg("m4", alice, bob, "2000"),
	)

	ev, err := newTestDecoder(t).Decode(tb.trace, alice)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	assert.Equal(t, ActionTonTransfer, ev.Actions[0].Type())
	assert.Equal(t, "2000", ev.Actions[0].(*TonTransferAction).Amount)
}

func TestAbsentAccount(t *testing.T) {
	ev, err := newTestDecoder(t).Decode(jettonTrace(t), rawAddr(0x99))
	require.NoError(t, err)
	assert.Empty(t, ev.Actions)
	assert.Equal(t, "t0", ev.EventID)

	_, err = newTestDecoder(t).Decode(jettonTrace(t), "garbage")
	require.Error(t, err)
	_, err = newTestDecoder(t).Decode(nil, alice)
	require.Error(t, err)
}

func TestComputeStatus(t *testing.T) {
	yes, no := true, false
	code := int32(35)
	testCases := []struct {
		name   string
		descr  toncenter.TransactionDescr
		status Status
		reason string
	}{
		{"success", successDescr(), StatusSuccess, ""},
		{"aborted wins over phase flags", toncenter.TransactionDescr{Aborted: true, ComputePh: &toncenter.ComputePhase{Success: &yes}, Action: &toncenter.ActionPhase{Success: &yes}}, StatusFailure, "Transaction aborted"},
		{"compute failed", toncenter.TransactionDescr{ComputePh: &toncenter.ComputePhase{Success: &no, ExitCode: &code}}, StatusFailure, "Invalid signature"},
		{"action failed", toncenter.TransactionDescr{ComputePh: &toncenter.ComputePhase{Success: &yes}, Action: &toncenter.ActionPhase{Success: &no, ResultCode: ptr(int32(37))}}, StatusFailure, "Not enough Toncoin"},
		{"compute skipped", toncenter.TransactionDescr{ComputePh: &toncenter.ComputePhase{Skipped: true}}, StatusFailure, "Compute phase skipped"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, reason := computeStatus(&toncenter.Transaction{Descr: tc.descr})
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestFailedExternalIsUnknown(t *testing.T) {
	tb := newTrace(t)
	tx := tb.tx("t0", alice, nil)
	tx.Descr = toncenter.TransactionDescr{Aborted: true}

	ev, err := newTestDecoder(t).Decode(tb.trace, alice)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	assert.Equal(t, ActionUnknown, ev.Actions[0].Type())
	assert.Equal(t, StatusFailure, ev.Actions[0].Base().Status)
}

func TestNftTransfer(t *testing.T) {
	tb := newTrace(t)
	body, err := nft.BuildTransfer(nft.TransferParams{NewOwner: mustAddr(t, bob), ResponseDestination: mustAddr(t, alice)})
	require.NoError(t, err)
	m1 := withBody(t, msg("m1", alice, item, "50000000"), body)
	tb.tx("t0", alice, nil, m1)

	assigned, err := tlb.ToCell(nft.OwnershipAssignedMessage{PrevOwner: mustAddr(t, alice), ForwardPayload: cell.BeginCell().EndCell()})
	require.NoError(t, err)
	m2 := withBody(t, msg("m2", item, bob, "1"), assigned)
	m3 := excess("m3", item, alice)
	tb.tx("t1", item, m1, m3, m2)
	tb.tx("t2", bob, m2)
	tb.tx("t3", alice, m3)

	d := newTestDecoder(t)
	ev, err := d.Decode(tb.trace, alice)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	sentNft := ev.Actions[0].(*NftItemTransferAction)
	assert.Equal(t, []string{"t1", "t2", "t3"}, sentNft.BaseTransactions)
	assert.Equal(t, mustAddr(t, item).String(), sentNft.Nft)
	assert.Equal(t, mustAddr(t, bob).String(), sentNft.Recipient.Address)

	ev, err = d.Decode(tb.trace, bob)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	got := ev.Actions[0].(*NftItemTransferAction)
	assert.Equal(t, "t0", got.ID)
	assert.Equal(t, []string{"t1", "t2", "t3"}, got.BaseTransactions)
	assert.Equal(t, mustAddr(t, alice).String(), got.Sender.Address)
}

func TestNftOwnerChangedAlias(t *testing.T) {
	tb := newTrace(t)
	m1 := withDecoded(msg("m1", alice, item, "50000000"), nft.OpcodeItemTransfer, OpNftTransfer, map[string]any{"new_owner": bob})
	tb.tx("t0", alice, nil, m1)
	m2 := withDecoded(msg("m2", item, bob, "1"), 0, "nft_owner_changed", map[string]any{"prev_owner": alice})
	tb.tx("t1", item, m1, m2)
	tb.tx("t2", bob, m2)

	ev, err := newTestDecoder(t).Decode(tb.trace, bob)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	a := ev.Actions[0].(*NftItemTransferAction)
	assert.Equal(t, []string{"t1", "t2"}, a.BaseTransactions)
	assert.Equal(t, mustAddr(t, alice).String(), a.Sender.Address)
}

func TestJettonBurnNotificationOperation(t *testing.T) {
	tb := newTrace(t)
	burn := withDecoded(msg("m1", alice, aliceX, "50000000"), jetton.OpcodeWalletBurn, OpJettonBurn, map[string]any{"amount": "100"})
	tb.tx("t0", alice, nil, burn)
	note, err := tlb.ToCell(jetton.BurnNotificationMessage{
		Amount:              tlb.FromNanoTON(big.NewInt(100)),
		Sender:              mustAddr(t, alice),
		ResponseDestination: mustAddr(t, alice),
	})
	require.NoError(t, err)
	tb.tx("t1", aliceX, burn, withBody(t, msg("m2", aliceX, master, "40000000"), note))

	ev, err := newTestDecoder(t).Decode(tb.trace, aliceX)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	exec, ok := ev.Actions[0].(*SmartContractExecAction)
	require.True(t, ok)
	assert.Equal(t, OpJettonBurnNotification, exec.Operation)
	assert.Equal(t, mustAddr(t, master).String(), exec.Contract.Address)
}

func TestContractDeploy(t *testing.T) {
	contract := rawAddr(0x77)
	tb := newTrace(t)
	body := cell.BeginCell().MustStoreUInt(0x12345678, 32).EndCell()
	m1 := withBody(t, msg("m1", alice, contract, "100000000"), body)
	own := tb.tx("t0", alice, nil, m1)
	own.OrigStatus = "uninit"
	recv := tb.tx("t1", contract, m1)
	recv.OrigStatus = "nonexist"

	ev, err := newTestDecoder(t).Decode(tb.trace, alice)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 3)

	assert.Equal(t, ActionContractDeploy, ev.Actions[0].Type())
	assert.Equal(t, mustAddr(t, alice).String(), ev.Actions[0].(*ContractDeployAction).Address)

	exec := ev.Actions[1].(*SmartContractExecAction)
	assert.Equal(t, "0x12345678", exec.Operation)
	assert.Equal(t, "100000000", exec.TonAttached)
	assert.Equal(t, "0.1 TON", exec.SimplePreview.Value)

	deploy := ev.Actions[2].(*ContractDeployAction)
	assert.Equal(t, mustAddr(t, contract).String(), deploy.Address)
	assert.Equal(t, exec.BaseTransactions, deploy.BaseTransactions)
}

func TestJettonSwap(t *testing.T) {
	tb := newTrace(t)
	m1 := withBody(t, msg("m1", alice, aliceX, "300000000"), jettonTransferBody(t, 10_000_000_000, router, alice))
	tb.tx("t0", alice, nil, m1)
	m2 := internal("m2", aliceX, routX)
	tb.tx("t1", aliceX, m1, m2)
	m3 := notify("m3", routX, router, alice, "10000000000")
	tb.tx("t2", routX, m2, m3)
	m4 := withBody(t, msg("m4", router, routY, "200000000"), jettonTransferBody(t, 4_000_000, alice, alice))
	tb.tx("t3", router, m3, m4)
	m5 := internal("m5", routY, aliceY)
	tb.tx("t4", routY, m4, m5)
	m6 := notify("m6", aliceY, alice, router, "4000000")
	tb.tx("t5", aliceY, m5, m6)
	tb.tx("t6", alice, m6)
	tb.trace.AddressBook = toncenter.AddressBook{router: {Domain: "dex.ton"}}
	tb.trace.Metadata = toncenter.Metadata{
		aliceY: {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_wallets", Extra: map[string]any{"jetton": master}}}},
		master: {TokenInfo: []toncenter.TokenInfo{{Type: "jetton_masters", Symbol: "USDT", Extra: map[string]any{"decimals": float64(6)}}}},
	}

	ev, err := newTestDecoder(t).Decode(tb.trace, alice)
	require.NoError(t, err)
	require.Len(t, ev.Actions, 1)
	s := ev.Actions[0].(*JettonSwapAction)
	assert.Equal(t, "dex.ton", s.Dex)
	assert.Equal(t, "10000000000", s.AmountIn)
	assert.Equal(t, "4000000", s.AmountOut)
	assert.Equal(t, []string{"t1", "t3", "t2", "t4", "t6", "t5"}, s.BaseTransactions)
	assert.Equal(t, "Swapping 10 jettons for 4 USDT", s.SimplePreview.Description)
}

func TestEventJSON(t *testing.T) {
	ev, err := newTestDecoder(t).Decode(jettonTrace(t), alice)
	require.NoError(t, err)
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded struct {
		EventID string `json:"eventId"`
		Actions []struct {
			Type             string   `json:"type"`
			Amount           string   `json:"amount"`
			BaseTransactions []string `json:"baseTransactions"`
		} `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "t0", decoded.EventID)
	require.Len(t, decoded.Actions, 1)
	assert.Equal(t, "JettonTransfer", decoded.Actions[0].Type)
	assert.Equal(t, "5000000", decoded.Actions[0].Amount)
	assert.Len(t, decoded.Actions[0].BaseTransactions, 4)
}

func TestFormatAmount(t *testing.T) {
	big18, _ := new(big.Int).SetString("1000000000000000000", 10)
	testCases := []struct {
		amount   *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(1_500_000_000), 9, "1.5"},
		{big.NewInt(1), 9, "0.000000001"},
		{big.NewInt(0), 6, "0"},
		{big18, 9, "1000000000"},
		{big18, 0, "1000000000000000000"},
		{nil, 9, "0"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatAmount(tc.amount, tc.decimals))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Parser{Opcode: 1, Name: "one", Aliases: []string{"uno"}}))
	require.Error(t, r.Register(Parser{Opcode: 1, Name: "other"}))
	require.Error(t, r.Register(Parser{Opcode: 2, Name: "uno"}))

	p, ok := r.ByName("uno")
	require.True(t, ok)
	assert.Equal(t, uint32(1), p.Opcode)
	_, ok = r.ByOpcode(2)
	assert.False(t, ok)

	def := NewDefaultRegistry()
	p, ok = def.ByName("nft_owner_changed")
	require.True(t, ok)
	assert.Equal(t, OpNftOwnershipAssigned, p.Name)
}
