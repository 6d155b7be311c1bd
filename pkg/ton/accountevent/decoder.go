package accountevent

import (
	"errors"
	"fmt"
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/bindings/comment"
	"github.com/ton-connect/walletkit-go/pkg/toncenter"
)

var (
	jettonPriority = map[string]int{OpJettonTransfer: 0, OpJettonNotify: 1, OpJettonInternalTransfer: 2, OpExcess: 3}
	jettonExpand   = mapset.NewSet(OpJettonTransfer, OpJettonInternalTransfer)
	nftPriority    = map[string]int{OpNftTransfer: 0, OpNftOwnershipAssigned: 1, OpExcess: 2}
	nftExpand      = mapset.NewSet(OpNftTransfer)
)

type direction int

const (
	sent direction = iota + 1
	received
)

// flow remembers who was on the other side of a transfer, for swap matching.
type flow struct {
	dir          direction
	counterparty string
}

// Decoder turns traces into account events.
type Decoder struct {
	lggr     logger.Logger
	registry *Registry
}

// NewDecoder uses NewDefaultRegistry when registry is nil.
func NewDecoder(lggr logger.Logger, registry *Registry) *Decoder {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Decoder{lggr: logger.Named(lggr, "AccountEventDecoder"), registry: registry}
}

// Decode builds the event of account within trace. A trace that does not
// touch account yields an event without actions.
func (d *Decoder) Decode(trace *toncenter.Trace, account string) (*Event, error) {
	if trace == nil {
		return nil, errors.New("nil trace")
	}
	g := newGraph(trace, d.registry)
	acc := g.normalize(account)
	if acc == "" {
		return nil, fmt.Errorf("invalid account address %q", account)
	}

	ev := &Event{
		EventID:    g.rootHash(),
		Account:    g.book.account(acc),
		Actions:    []Action{},
		InProgress: trace.IsIncomplete,
	}
	all := g.all()
	ev.Transactions = make([]string, 0, len(all))
	for _, tx := range all {
		ev.Transactions = append(ev.Transactions, tx.Hash)
	}
	if root := g.root(); root != nil {
		ev.Lt = root.LtValue()
		ev.Timestamp = root.Now
	}

	own := g.accountTxs(acc)
	holding := g.holdingTxs(acc)
	if len(own) == 0 && len(holding) == 0 {
		return ev, nil
	}
	if ev.Timestamp == 0 {
		if len(own) > 0 {
			ev.Timestamp = own[0].Now
		} else {
			ev.Timestamp = holding[0].Now
		}
	}

	b := &builder{
		g:     g,
		acc:   acc,
		seen:  mapset.NewThreadUnsafeSet[string](),
		flows: make(map[Action]flow),
	}
	for _, tx := range own {
		b.transaction(tx)
	}
	// Transfers without a notification never reach acc itself.
	for _, tx := range holding {
		b.jettonDelivered(tx)
	}
	ev.Actions = b.mergeSwaps()
	d.lggr.Debugw("Decoded trace", "eventID", ev.EventID, "account", ev.Account.Address, "actions", len(ev.Actions))
	return ev, nil
}

type builder struct {
	g       *graph
	acc     string
	seen    mapset.Set[string]
	actions []Action
	flows   map[Action]flow
}

func (b *builder) add(a Action) {
	b.actions = append(b.actions, a)
}

func base(id string, status Status, reason string, hashes ...string) ActionBase {
	if hashes == nil {
		hashes = []string{}
	}
	if status == StatusSuccess {
		reason = ""
	}
	return ActionBase{ID: id, Status: status, FailureReason: reason, BaseTransactions: hashes}
}

func (b *builder) transaction(tx *toncenter.Transaction) {
	before := len(b.actions)
	status, reason := computeStatus(tx)

	if becameActive(tx) && b.seen.Add("deploy:"+b.acc) {
		a := &ContractDeployAction{
			ActionBase: base(tx.Hash, status, reason, tx.Hash),
			Address:    b.g.book.friendly(b.acc),
			Interfaces: b.g.book.interfaces(b.acc),
		}
		a.SimplePreview = deployPreview(b.g.book.account(b.acc))
		b.add(a)
	}

	external := tx.InMsg == nil || tx.InMsg.Source == ""
	if !external {
		b.incoming(tx, status, reason)
	}
	for _, m := range tx.OutMsgs {
		if m == nil || m.Destination == "" {
			continue
		}
		b.outgoing(tx, m, status, reason)
	}

	if external && len(b.actions) == before && status == StatusFailure {
		a := &UnknownAction{ActionBase: base(tx.Hash, status, reason, tx.Hash)}
		a.SimplePreview = unknownPreview()
		b.add(a)
	}
}

func (b *builder) incoming(tx *toncenter.Transaction, status Status, reason string) {
	info := b.g.classify(tx.InMsg)
	switch {
	case info.plain():
		src := b.g.normalize(tx.InMsg.Source)
		value, ok := parseValue(tx.InMsg.Value)
		if src == "" || !ok || value.Sign() == 0 {
			return
		}
		b.tonTransfer(tx, tx.InMsg, info, src, b.acc, status, reason, received, src)
	case info.name == OpJettonNotify:
		b.jettonReceived(tx, info)
	case info.name == OpNftOwnershipAssigned:
		b.nftReceived(tx, info)
	}
}

func (b *builder) outgoing(tx *toncenter.Transaction, m *toncenter.Message, status Status, reason string) {
	dst := b.g.normalize(m.Destination)
	if dst == "" {
		return
	}
	info := b.g.classify(m)
	switch {
	case info.plain():
		if value, ok := parseValue(m.Value); ok && value.Sign() > 0 {
			b.tonTransfer(tx, m, info, b.acc, dst, status, reason, sent, dst)
		}
	case info.name == OpJettonTransfer:
		b.jettonSent(tx, m, info)
	case info.name == OpNftTransfer:
		b.nftSent(tx, m, info)
	default:
		b.contractExec(tx, m, info, dst, status, reason)
	}
	b.deploy(tx, m, dst, status, reason)
}

func (b *builder) tonTransfer(tx *toncenter.Transaction, m *toncenter.Message, info *msgInfo, from, to string, status Status, reason string, dir direction, counterparty string) {
	a := &TonTransferAction{
		ActionBase: base(tx.Hash, status, reason, tx.Hash),
		Sender:     b.g.book.account(from),
		Recipient:  b.g.book.account(to),
		Amount:     m.Value,
		Encrypted:  info.hasOp && info.op == comment.OpcodeEncrypted,
	}
	if info.body != nil {
		a.Comment = info.body.Comment
	} else if m.Content != nil && info.hasOp && info.op == comment.OpcodeText {
		if body := bodyFromDecoded(m.Content.Decoded); body != nil {
			a.Comment = body.Comment
		}
	}
	a.SimplePreview = tonTransferPreview(a)
	b.add(a)
	b.flows[a] = flow{dir: dir, counterparty: counterparty}
}

func (b *builder) contractExec(tx *toncenter.Transaction, m *toncenter.Message, info *msgInfo, dst string, status Status, reason string) {
	value, ok := parseValue(m.Value)
	if !ok {
		return
	}
	if recv := b.g.byInMsg[m.Hash]; recv != nil && status == StatusSuccess {
		status, reason = computeStatus(recv)
	}
	op := info.name
	if op == "" {
		op = fmt.Sprintf("0x%08x", info.op)
	}
	a := &SmartContractExecAction{
		ActionBase:  base(tx.Hash, status, reason, tx.Hash),
		Executor:    b.g.book.account(b.acc),
		Contract:    b.g.book.account(dst),
		TonAttached: value.String(),
		Operation:   op,
	}
	if m.Content != nil {
		a.Payload = m.Content.Body
	}
	a.SimplePreview = contractExecPreview(a)
	b.add(a)
}

func (b *builder) deploy(tx *toncenter.Transaction, m *toncenter.Message, dst string, status Status, reason string) {
	recv := b.g.byInMsg[m.Hash]
	withInit := m.InitState != nil && m.InitState.Body != ""
	if !(recv != nil && becameActive(recv)) && !withInit {
		return
	}
	if !b.seen.Add("deploy:" + dst) {
		return
	}
	if recv != nil && status == StatusSuccess {
		status, reason = computeStatus(recv)
	}
	a := &ContractDeployAction{
		ActionBase: base(tx.Hash, status, reason, tx.Hash),
		Address:    b.g.book.friendly(dst),
		Interfaces: b.g.book.interfaces(dst),
	}
	a.SimplePreview = deployPreview(b.g.book.account(dst))
	b.add(a)
}

// worst folds hop statuses into one.
func worst(status Status, reason string, hops []*toncenter.Transaction) (Status, string) {
	for _, h := range hops {
		if status == StatusFailure {
			break
		}
		status, reason = computeStatus(h)
	}
	return status, reason
}

func hashes(txs []*toncenter.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Hash)
	}
	return out
}

func (b *builder) hopAccount(hops []*toncenter.Transaction, op string) string {
	for _, h := range hops {
		if b.g.inOp(h) == op {
			return b.g.normalize(h.Account)
		}
	}
	return ""
}

func (b *builder) jettonSent(tx *toncenter.Transaction, m *toncenter.Message, info *msgInfo) {
	if info.body == nil || info.body.Amount == nil {
		return
	}
	recipient := b.g.normalize(info.body.Destination)
	if recipient == "" {
		return
	}
	start := b.g.byInMsg[m.Hash]
	key := "jetton:" + m.Hash
	if start != nil {
		key = "jetton:" + start.Hash
	}
	if !b.seen.Add(key) {
		return
	}

	hops := b.g.collectHops(start, jettonPriority, jettonExpand)
	txStatus, txReason := computeStatus(tx)
	status, reason := worst(txStatus, txReason, hops)
	senderWallet := b.g.normalize(m.Destination)
	recipientWallet := b.hopAccount(hops, OpJettonInternalTransfer)
	master := b.g.book.jettonMaster(senderWallet, recipientWallet)

	a := &JettonTransferAction{
		ActionBase:    base(tx.Hash, status, reason, hashes(hops)...),
		Sender:        b.g.book.accountPtr(b.acc),
		Recipient:     b.g.book.accountPtr(recipient),
		SendersWallet: b.g.book.friendly(senderWallet),
		Amount:        info.body.Amount.String(),
		Jetton:        b.g.book.jetton(master),
		Comment:       info.body.Comment,
	}
	if recipientWallet != "" {
		a.RecipientsWallet = b.g.book.friendly(recipientWallet)
	}
	a.SimplePreview = jettonTransferPreview(a)
	b.add(a)
	b.flows[a] = flow{dir: sent, counterparty: recipient}
}

func (b *builder) jettonReceived(tx *toncenter.Transaction, info *msgInfo) {
	if info.body == nil || info.body.Amount == nil {
		return
	}
	recipientWallet := b.g.normalize(tx.InMsg.Source)
	if recipientWallet == "" {
		return
	}
	start := b.g.flowStart(tx, jettonPriority, OpJettonTransfer)
	if !b.seen.Add("jetton:" + start.Hash) {
		return
	}

	hops := b.g.collectHops(start, jettonPriority, jettonExpand)
	status, reason := worst(StatusSuccess, "", hops)
	sender := b.g.normalize(info.body.Sender)
	senderWallet := b.hopAccount(hops, OpJettonTransfer)
	master := b.g.book.jettonMaster(recipientWallet, senderWallet)

	a := &JettonTransferAction{
		ActionBase:       base(b.g.rootHash(), status, reason, hashes(hops)...),
		Sender:           b.g.book.accountPtr(sender),
		Recipient:        b.g.book.accountPtr(b.acc),
		RecipientsWallet: b.g.book.friendly(recipientWallet),
		Amount:           info.body.Amount.String(),
		Jetton:           b.g.book.jetton(master),
		Comment:          info.body.Comment,
	}
	if senderWallet != "" {
		a.SendersWallet = b.g.book.friendly(senderWallet)
	}
	a.SimplePreview = jettonTransferPreview(a)
	b.add(a)
	b.flows[a] = flow{dir: received, counterparty: sender}
}

// jettonDelivered records an internal transfer credited to one of acc's jetton
// wallets. It shares its key with jettonReceived, so a transfer that also
// notified acc is reported once.
func (b *builder) jettonDelivered(tx *toncenter.Transaction) {
	info := b.g.classify(tx.InMsg)
	start := b.g.flowStart(tx, jettonPriority, OpJettonTransfer)
	origin := b.g.classify(start.InMsg)

	var amount *big.Int
	switch {
	case info.body != nil && info.body.Amount != nil:
		amount = info.body.Amount
	case origin.name == OpJettonTransfer && origin.body != nil && origin.body.Amount != nil:
		amount = origin.body.Amount
	default:
		return
	}
	if !b.seen.Add("jetton:" + start.Hash) {
		return
	}

	hops := b.g.collectHops(start, jettonPriority, jettonExpand)
	status, reason := worst(StatusSuccess, "", hops)
	recipientWallet := b.g.normalize(tx.Account)
	senderWallet := b.hopAccount(hops, OpJettonTransfer)
	master := b.g.book.jettonMaster(recipientWallet, senderWallet)

	sender := ""
	if info.body != nil {
		sender = b.g.normalize(info.body.Sender)
	}
	if sender == "" && origin.name == OpJettonTransfer && start.InMsg != nil {
		sender = b.g.normalize(start.InMsg.Source)
	}

	a := &JettonTransferAction{
		ActionBase:       base(b.g.rootHash(), status, reason, hashes(hops)...),
		Sender:           b.g.book.accountPtr(sender),
		Recipient:        b.g.book.accountPtr(b.acc),
		RecipientsWallet: b.g.book.friendly(recipientWallet),
		Amount:           amount.String(),
		Jetton:           b.g.book.jetton(master),
	}
	if info.body != nil {
		a.Comment = info.body.Comment
	}
	if senderWallet != "" {
		a.SendersWallet = b.g.book.friendly(senderWallet)
	}
	a.SimplePreview = jettonTransferPreview(a)
	b.add(a)
	b.flows[a] = flow{dir: received, counterparty: sender}
}

func (b *builder) nftSent(tx *toncenter.Transaction, m *toncenter.Message, info *msgInfo) {
	if info.body == nil {
		return
	}
	recipient := b.g.normalize(info.body.Destination)
	item := b.g.normalize(m.Destination)
	if recipient == "" || item == "" {
		return
	}
	start := b.g.byInMsg[m.Hash]
	key := "nft:" + m.Hash
	if start != nil {
		key = "nft:" + start.Hash
	}
	if !b.seen.Add(key) {
		return
	}

	hops := b.g.collectHops(start, nftPriority, nftExpand)
	txStatus, txReason := computeStatus(tx)
	status, reason := worst(txStatus, txReason, hops)
	a := &NftItemTransferAction{
		ActionBase: base(tx.Hash, status, reason, hashes(hops)...),
		Sender:     b.g.book.accountPtr(b.acc),
		Recipient:  b.g.book.accountPtr(recipient),
		Nft:        b.g.book.friendly(item),
		Comment:    info.body.Comment,
	}
	a.SimplePreview = nftTransferPreview(a)
	b.add(a)
}

func (b *builder) nftReceived(tx *toncenter.Transaction, info *msgInfo) {
	item := b.g.normalize(tx.InMsg.Source)
	if item == "" {
		return
	}
	start := b.g.flowStart(tx, nftPriority, OpNftTransfer)
	if !b.seen.Add("nft:" + start.Hash) {
		return
	}

	hops := b.g.collectHops(start, nftPriority, nftExpand)
	status, reason := worst(StatusSuccess, "", hops)
	a := &NftItemTransferAction{
		ActionBase: base(b.g.rootHash(), status, reason, hashes(hops)...),
		Recipient:  b.g.book.accountPtr(b.acc),
		Nft:        b.g.book.friendly(item),
	}
	if info.body != nil {
		a.Sender = b.g.book.accountPtr(b.g.normalize(info.body.Sender))
		a.Comment = info.body.Comment
	}
	a.SimplePreview = nftTransferPreview(a)
	b.add(a)
}
