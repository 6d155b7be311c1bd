package accountevent

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/tidwall/gjson"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ton-connect/walletkit-go/pkg/bindings/comment"
	"github.com/ton-connect/walletkit-go/pkg/bindings/jetton"
	"github.com/ton-connect/walletkit-go/pkg/bindings/nft"
)

// Operation names as the index reports them in decoded_opcode.
const (
	OpTextComment            = "text_comment"
	OpEncryptedComment       = "encrypted_comment"
	OpJettonTransfer         = "jetton_transfer"
	OpJettonNotify           = "jetton_notify"
	OpJettonInternalTransfer = "jetton_internal_transfer"
	OpJettonBurn             = "jetton_burn"
	OpJettonBurnNotification = "jetton_burn_notification"
	OpExcess                 = "excess"
	OpNftTransfer            = "nft_transfer"
	OpNftOwnershipAssigned   = "nft_ownership_assigned"
)

// Body holds the fields the decoder needs from a known message body. Missing
// fields are left zero.
type Body struct {
	Amount              *big.Int
	Destination         string
	Sender              string
	ResponseDestination string
	Comment             string
}

type ParseFunc func(c *cell.Cell) (*Body, error)

type Parser struct {
	Opcode  uint32
	Name    string
	Aliases []string
	Parse   ParseFunc
}

// Registry maps op codes and decoded op names to body parsers.
type Registry struct {
	byOpcode map[uint32]*Parser
	byName   map[string]*Parser
}

func NewRegistry() *Registry {
	return &Registry{
		byOpcode: make(map[uint32]*Parser),
		byName:   make(map[string]*Parser),
	}
}

func (r *Registry) Register(p Parser) error {
	if _, ok := r.byOpcode[p.Opcode]; ok {
		return fmt.Errorf("opcode 0x%08x already registered", p.Opcode)
	}
	names := append([]string{p.Name}, p.Aliases...)
	for _, n := range names {
		if _, ok := r.byName[n]; ok {
			return fmt.Errorf("operation %q already registered", n)
		}
	}
	entry := p
	r.byOpcode[p.Opcode] = &entry
	for _, n := range names {
		r.byName[n] = &entry
	}
	return nil
}

func (r *Registry) ByOpcode(op uint32) (*Parser, bool) {
	p, ok := r.byOpcode[op]
	return p, ok
}

func (r *Registry) ByName(name string) (*Parser, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// NewDefaultRegistry knows comments and the TEP-74/TEP-62 wallet and item messages.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []Parser{
		{Opcode: comment.OpcodeText, Name: OpTextComment, Parse: parseComment},
		{Opcode: comment.OpcodeEncrypted, Name: OpEncryptedComment, Parse: func(*cell.Cell) (*Body, error) { return &Body{}, nil }},
		{Opcode: jetton.OpcodeWalletTransfer, Name: OpJettonTransfer, Parse: parseJettonTransfer},
		{Opcode: jetton.OpcodeWalletTransferNotification, Name: OpJettonNotify, Parse: parseJettonNotify},
		{Opcode: jetton.OpcodeWalletInternalTransfer, Name: OpJettonInternalTransfer, Parse: parseJettonInternal},
		{Opcode: jetton.OpcodeWalletBurn, Name: OpJettonBurn, Parse: parseJettonBurn},
		{Opcode: jetton.OpcodeWalletBurnNotification, Name: OpJettonBurnNotification, Parse: parseJettonBurnNotification},
		{Opcode: jetton.OpcodeWalletExcesses, Name: OpExcess, Parse: func(*cell.Cell) (*Body, error) { return &Body{}, nil }},
		{Opcode: nft.OpcodeItemTransfer, Name: OpNftTransfer, Parse: parseNftTransfer},
		{Opcode: nft.OpcodeItemOwnershipAssigned, Name: OpNftOwnershipAssigned, Aliases: []string{"nft_owner_changed"}, Parse: parseNftOwnershipAssigned},
	} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

func parseComment(c *cell.Cell) (*Body, error) {
	text, err := comment.Parse(c)
	if err != nil {
		return nil, err
	}
	return &Body{Comment: text}, nil
}

func parseJettonTransfer(c *cell.Cell) (*Body, error) {
	m, err := jetton.ParseTransfer(c)
	if err != nil {
		return nil, err
	}
	return &Body{
		Amount:              m.Amount.Nano(),
		Destination:         addrString(m.Destination),
		ResponseDestination: addrString(m.ResponseDestination),
		Comment:             forwardComment(m.ForwardPayload),
	}, nil
}

func parseJettonNotify(c *cell.Cell) (*Body, error) {
	m, err := jetton.ParseTransferNotification(c)
	if err != nil {
		return nil, err
	}
	return &Body{Amount: m.Amount.Nano(), Sender: addrString(m.Sender), Comment: forwardComment(m.ForwardPayload)}, nil
}

func parseJettonInternal(c *cell.Cell) (*Body, error) {
	m, err := jetton.ParseInternalTransfer(c)
	if err != nil {
		return nil, err
	}
	return &Body{
		Amount:              m.Amount.Nano(),
		Sender:              addrString(m.From),
		ResponseDestination: addrString(m.ResponseAddress),
		Comment:             forwardComment(m.ForwardPayload),
	}, nil
}

func parseJettonBurn(c *cell.Cell) (*Body, error) {
	m, err := jetton.ParseBurn(c)
	if err != nil {
		return nil, err
	}
	return &Body{Amount: m.Amount.Nano(), ResponseDestination: addrString(m.ResponseDestination)}, nil
}

func parseJettonBurnNotification(c *cell.Cell) (*Body, error) {
	m, err := jetton.ParseBurnNotification(c)
	if err != nil {
		return nil, err
	}
	return &Body{Amount: m.Amount.Nano(), Sender: addrString(m.Sender), ResponseDestination: addrString(m.ResponseDestination)}, nil
}

func parseNftTransfer(c *cell.Cell) (*Body, error) {
	m, err := nft.ParseTransfer(c)
	if err != nil {
		return nil, err
	}
	return &Body{
		Destination:         addrString(m.NewOwner),
		ResponseDestination: addrString(m.ResponseDestination),
		Comment:             forwardComment(m.ForwardPayload),
	}, nil
}

func parseNftOwnershipAssigned(c *cell.Cell) (*Body, error) {
	m, err := nft.ParseOwnershipAssigned(c)
	if err != nil {
		return nil, err
	}
	return &Body{Sender: addrString(m.PrevOwner), Comment: forwardComment(m.ForwardPayload)}, nil
}

// bodyFromDecoded reads the index's decoded JSON when the BOC is missing or
// unparseable.
func bodyFromDecoded(raw json.RawMessage) *Body {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	res := gjson.ParseBytes(raw)
	b := &Body{
		Destination:         firstString(res, "destination", "new_owner"),
		Sender:              firstString(res, "sender", "from", "source", "prev_owner"),
		ResponseDestination: firstString(res, "response_destination", "response_address"),
		Comment:             firstString(res, "comment", "forward_payload.value.value.text", "forward_payload.value.text"),
	}
	if v := res.Get("amount"); v.Exists() {
		amount, ok := new(big.Int).SetString(v.String(), 10)
		if !ok || amount.Sign() < 0 {
			return nil
		}
		b.Amount = amount
	}
	return b
}

func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func forwardComment(c *cell.Cell) string {
	if c == nil {
		return ""
	}
	text, err := comment.Parse(c)
	if err != nil {
		return ""
	}
	return text
}

func addrString(a *address.Address) string {
	if a == nil || a.IsAddrNone() {
		return ""
	}
	return a.StringRaw()
}
