package accountevent

import (
	"encoding/base64"
	"math/big"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ton-connect/walletkit-go/pkg/bindings/comment"
	"github.com/ton-connect/walletkit-go/pkg/ton/tvm"
	"github.com/ton-connect/walletkit-go/pkg/toncenter"
)

const defaultDecimals = 9

// msgInfo is a message with its op code resolved and, for known ops, its body.
type msgInfo struct {
	msg   *toncenter.Message
	op    uint32
	hasOp bool
	name  string
	body  *Body
}

// plain reports a value transfer: no op, a text comment or an encrypted comment.
func (m *msgInfo) plain() bool {
	return !m.hasOp || m.op == comment.OpcodeText || m.op == comment.OpcodeEncrypted
}

// graph indexes a trace by message edges.
type graph struct {
	trace    *toncenter.Trace
	registry *Registry
	book     *book

	byInMsg  map[string]*toncenter.Transaction
	byOutMsg map[string]*toncenter.Transaction
	infos    map[string]*msgInfo
	addrs    map[string]string
}

func newGraph(trace *toncenter.Trace, registry *Registry) *graph {
	g := &graph{
		trace:    trace,
		registry: registry,
		byInMsg:  make(map[string]*toncenter.Transaction),
		byOutMsg: make(map[string]*toncenter.Transaction),
		infos:    make(map[string]*msgInfo),
		addrs:    make(map[string]string),
	}
	g.book = newBook(g, trace.AddressBook, trace.Metadata)
	for _, tx := range trace.Transactions {
		if tx == nil {
			continue
		}
		if tx.InMsg != nil && tx.InMsg.Hash != "" {
			g.byInMsg[tx.InMsg.Hash] = tx
		}
		for _, m := range tx.OutMsgs {
			if m != nil && m.Hash != "" {
				g.byOutMsg[m.Hash] = tx
			}
		}
	}
	return g
}

// normalize returns the lower-case raw form of a user-friendly or raw address,
// or "" when it cannot be parsed.
func (g *graph) normalize(s string) string {
	if s == "" {
		return ""
	}
	if v, ok := g.addrs[s]; ok {
		return v
	}
	v := ""
	if a, err := address.ParseAddr(s); err == nil {
		v = a.StringRaw()
	} else if a, err := address.ParseRawAddr(s); err == nil {
		v = a.StringRaw()
	}
	g.addrs[s] = v
	return v
}

// sorted returns txs by logical time, then hash.
func sorted(txs []*toncenter.Transaction) []*toncenter.Transaction {
	sort.SliceStable(txs, func(i, j int) bool {
		li, lj := txs[i].LtValue(), txs[j].LtValue()
		if li != lj {
			return li < lj
		}
		return txs[i].Hash < txs[j].Hash
	})
	return txs
}

func (g *graph) all() []*toncenter.Transaction {
	out := make([]*toncenter.Transaction, 0, len(g.trace.Transactions))
	for _, tx := range g.trace.Transactions {
		if tx != nil {
			out = append(out, tx)
		}
	}
	return sorted(out)
}

func (g *graph) accountTxs(account string) []*toncenter.Transaction {
	var out []*toncenter.Transaction
	for _, tx := range g.all() {
		if g.normalize(tx.Account) == account {
			out = append(out, tx)
		}
	}
	return out
}

// holdingTxs returns the jetton_internal_transfer transactions that land on a
// jetton wallet owned by account. Ownership comes from wallet metadata or from
// the destination of the jetton_transfer that started the flow.
func (g *graph) holdingTxs(account string) []*toncenter.Transaction {
	var out []*toncenter.Transaction
	for _, tx := range g.all() {
		if g.inOp(tx) != OpJettonInternalTransfer {
			continue
		}
		wallet := g.normalize(tx.Account)
		if wallet == "" || wallet == account {
			continue
		}
		if owner := g.book.jettonWalletOwner(wallet); owner != "" {
			if owner == account {
				out = append(out, tx)
			}
			continue
		}
		start := g.flowStart(tx, jettonPriority, OpJettonTransfer)
		origin := g.classify(start.InMsg)
		if origin.name == OpJettonTransfer && origin.body != nil && g.normalize(origin.body.Destination) == account {
			out = append(out, tx)
		}
	}
	return out
}

func (g *graph) root() *toncenter.Transaction {
	if g.trace.Root != nil {
		if tx := g.trace.Transactions[g.trace.Root.TxHash]; tx != nil {
			return tx
		}
	}
	if txs := g.all(); len(txs) > 0 {
		return txs[0]
	}
	return nil
}

func (g *graph) rootHash() string {
	if g.trace.Root != nil && g.trace.Root.TxHash != "" {
		return g.trace.Root.TxHash
	}
	if g.trace.TraceID != "" {
		return g.trace.TraceID
	}
	if r := g.root(); r != nil {
		return r.Hash
	}
	return ""
}

func (g *graph) classify(m *toncenter.Message) *msgInfo {
	if m == nil {
		return &msgInfo{}
	}
	if m.Hash != "" {
		if info, ok := g.infos[m.Hash]; ok {
			return info
		}
	}
	info := &msgInfo{msg: m}
	body := messageBody(m)
	switch {
	case m.Opcode != nil:
		info.op, info.hasOp = uint32(*m.Opcode), true
	case body != nil && body.BitsSize() >= 32:
		if op, err := body.BeginParse().LoadUInt(32); err == nil {
			info.op, info.hasOp = uint32(op), true
		}
	case m.DecodedOpcode != "":
		if p, ok := g.registry.ByName(m.DecodedOpcode); ok {
			info.op, info.hasOp = p.Opcode, true
		}
	}
	if info.hasOp {
		if p, ok := g.registry.ByOpcode(info.op); ok {
			info.name = p.Name
			if body != nil {
				if b, err := p.Parse(body); err == nil {
					info.body = b
				}
			}
			if info.body == nil && m.Content != nil {
				info.body = bodyFromDecoded(m.Content.Decoded)
			}
		} else {
			info.name = m.DecodedOpcode
		}
	}
	if m.Hash != "" {
		g.infos[m.Hash] = info
	}
	return info
}

// inOp is the registry name of the op carried by tx's inbound message.
func (g *graph) inOp(tx *toncenter.Transaction) string {
	if tx == nil || tx.InMsg == nil {
		return ""
	}
	return g.classify(tx.InMsg).name
}

// collectHops walks forward from start and returns every transaction whose
// inbound op has a priority, ordered by priority then logical time. Only
// transactions whose op is in expand are walked through.
func (g *graph) collectHops(start *toncenter.Transaction, priority map[string]int, expand mapset.Set[string]) []*toncenter.Transaction {
	if start == nil {
		return nil
	}
	visited := mapset.NewThreadUnsafeSet[string](start.Hash)
	hops := []*toncenter.Transaction{start}
	q := newQueue(start)
	for !q.IsEmpty() {
		tx, _ := q.Pop()
		if !expand.Contains(g.inOp(tx)) {
			continue
		}
		for _, m := range tx.OutMsgs {
			if m == nil {
				continue
			}
			next := g.byInMsg[m.Hash]
			if next == nil || visited.Contains(next.Hash) {
				continue
			}
			if _, ok := priority[g.inOp(next)]; !ok {
				continue
			}
			visited.Add(next.Hash)
			hops = append(hops, next)
			q.Push(next)
		}
	}
	sort.SliceStable(hops, func(i, j int) bool {
		pi, pj := priority[g.inOp(hops[i])], priority[g.inOp(hops[j])]
		if pi != pj {
			return pi < pj
		}
		li, lj := hops[i].LtValue(), hops[j].LtValue()
		if li != lj {
			return li < lj
		}
		return hops[i].Hash < hops[j].Hash
	})
	return hops
}

// flowStart walks back from tx through parents that carry flow ops until it
// reaches a transaction whose inbound op is first.
func (g *graph) flowStart(tx *toncenter.Transaction, priority map[string]int, first string) *toncenter.Transaction {
	cur := tx
	visited := mapset.NewThreadUnsafeSet[string](tx.Hash)
	for g.inOp(cur) != first && cur.InMsg != nil {
		parent := g.byOutMsg[cur.InMsg.Hash]
		if parent == nil || visited.Contains(parent.Hash) {
			break
		}
		if _, ok := priority[g.inOp(parent)]; !ok {
			break
		}
		visited.Add(parent.Hash)
		cur = parent
	}
	return cur
}

func messageBody(m *toncenter.Message) *cell.Cell {
	if m.Content == nil || m.Content.Body == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(m.Content.Body)
	if err != nil {
		return nil
	}
	c, err := cell.FromBOC(raw)
	if err != nil {
		return nil
	}
	return c
}

// parseValue accepts a non-negative decimal integer.
func parseValue(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func computeStatus(tx *toncenter.Transaction) (Status, string) {
	d := tx.Descr
	computeOK := d.ComputePh != nil && d.ComputePh.Success != nil && *d.ComputePh.Success
	actionOK := d.Action != nil && d.Action.Success != nil && *d.Action.Success
	if !d.Aborted && computeOK && actionOK {
		return StatusSuccess, ""
	}
	switch {
	case d.ComputePh != nil && d.ComputePh.ExitCode != nil && !tvm.ExitCode(*d.ComputePh.ExitCode).IsSuccess():
		return StatusFailure, tvm.ExitCode(*d.ComputePh.ExitCode).Describe()
	case d.Action != nil && d.Action.ResultCode != nil && *d.Action.ResultCode != 0:
		return StatusFailure, tvm.ExitCode(*d.Action.ResultCode).DescribeAction()
	case d.ComputePh != nil && d.ComputePh.Skipped:
		return StatusFailure, "Compute phase skipped"
	default:
		return StatusFailure, "Transaction aborted"
	}
}

// becameActive reports a transaction that brought its account to life.
func becameActive(tx *toncenter.Transaction) bool {
	return (tx.OrigStatus == "nonexist" || tx.OrigStatus == "uninit") && tx.EndStatus == "active"
}

// book resolves display names and token metadata.
type book struct {
	g    *graph
	rows map[string]toncenter.AddressBookRow
	meta map[string]toncenter.AddressMetadata
}

func newBook(g *graph, rows toncenter.AddressBook, meta toncenter.Metadata) *book {
	b := &book{
		g:    g,
		rows: make(map[string]toncenter.AddressBookRow, len(rows)),
		meta: make(map[string]toncenter.AddressMetadata, len(meta)),
	}
	for k, v := range rows {
		if n := g.normalize(k); n != "" {
			b.rows[n] = v
		}
	}
	for k, v := range meta {
		if n := g.normalize(k); n != "" {
			b.meta[n] = v
		}
	}
	return b
}

func (b *book) friendly(raw string) string {
	if row, ok := b.rows[raw]; ok && row.UserFriendly != "" {
		return row.UserFriendly
	}
	a, err := address.ParseRawAddr(raw)
	if err != nil {
		return raw
	}
	return a.String()
}

func (b *book) account(raw string) AccountAddress {
	row := b.rows[raw]
	acc := AccountAddress{Address: b.friendly(raw), Name: row.Domain}
	for _, iface := range row.Interfaces {
		if strings.HasPrefix(iface, "wallet") {
			acc.IsWallet = true
		}
	}
	return acc
}

func (b *book) accountPtr(raw string) *AccountAddress {
	if raw == "" {
		return nil
	}
	acc := b.account(raw)
	return &acc
}

func (b *book) interfaces(raw string) []string {
	return b.rows[raw].Interfaces
}

// jettonMaster resolves the master of the given jetton wallets: wallet
// metadata first, then a unique jetton_master in the address book, then a
// domain containing "minter".
func (b *book) jettonMaster(wallets ...string) string {
	for _, w := range wallets {
		if w == "" {
			continue
		}
		for _, ti := range b.meta[w].TokenInfo {
			if ti.Type != "jetton_wallets" {
				continue
			}
			if m := b.g.normalize(ti.ExtraString("jetton")); m != "" {
				return m
			}
		}
	}

	keys := make([]string, 0, len(b.rows))
	for k := range b.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var masters []string
	for _, k := range keys {
		for _, iface := range b.rows[k].Interfaces {
			if iface == "jetton_master" {
				masters = append(masters, k)
				break
			}
		}
	}
	if len(masters) == 1 {
		return masters[0]
	}

	for _, k := range keys {
		if strings.Contains(strings.ToLower(b.rows[k].Domain), "minter") {
			return k
		}
	}
	return ""
}

// jettonWalletOwner is the owner metadata reports for a jetton wallet.
func (b *book) jettonWalletOwner(wallet string) string {
	for _, ti := range b.meta[wallet].TokenInfo {
		if ti.Type != "jetton_wallets" {
			continue
		}
		if o := b.g.normalize(ti.ExtraString("owner")); o != "" {
			return o
		}
	}
	return ""
}

func (b *book) jetton(master string) JettonPreview {
	p := JettonPreview{Decimals: defaultDecimals}
	if master == "" {
		return p
	}
	p.Address = b.friendly(master)
	for _, ti := range b.meta[master].TokenInfo {
		if ti.Type != "jetton_masters" {
			continue
		}
		p.Name, p.Symbol, p.Image = ti.Name, ti.Symbol, ti.Image
		switch v := ti.Extra["decimals"].(type) {
		case string:
			if d, err := strconv.Atoi(v); err == nil && d >= 0 {
				p.Decimals = d
			}
		case float64:
			if v >= 0 {
				p.Decimals = int(v)
			}
		}
		break
	}
	return p
}
