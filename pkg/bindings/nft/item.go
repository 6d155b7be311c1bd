package nft

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// NftItem opcodes (TEP-62)
const (
	OpcodeItemTransfer          = 0x5fcc3d14
	OpcodeItemOwnershipAssigned = 0x05138d91
	OpcodeItemExcesses          = 0xd53276db
)

var (
	DefaultForwardTonAmount = tlb.FromNanoTON(big.NewInt(1))
	// TransferGasReserve is the TON value of the message sent to the item itself.
	TransferGasReserve = tlb.MustFromTON("0.05")
)

type TransferMessage struct {
	_                   tlb.Magic        `tlb:"#5fcc3d14"` //nolint:revive // This field should stay uninitialized
	QueryID             uint64           `tlb:"## 64"`
	NewOwner            *address.Address `tlb:"addr"`
	ResponseDestination *address.Address `tlb:"addr"`
	CustomPayload       *cell.Cell       `tlb:"maybe ^"`
	ForwardAmount       tlb.Coins        `tlb:"."`
	ForwardPayload      *cell.Cell       `tlb:"either . ^"`
}

type OwnershipAssignedMessage struct {
	_              tlb.Magic        `tlb:"#05138d91"` //nolint:revive // This field should stay uninitialized
	QueryID        uint64           `tlb:"## 64"`
	PrevOwner      *address.Address `tlb:"addr"`
	ForwardPayload *cell.Cell       `tlb:"either . ^"`
}

type TransferParams struct {
	QueryID             uint64
	NewOwner            *address.Address
	ResponseDestination *address.Address
	CustomPayload       *cell.Cell
	ForwardTonAmount    *big.Int
	ForwardPayload      *cell.Cell
}

func BuildTransfer(p TransferParams) (*cell.Cell, error) {
	if p.NewOwner == nil {
		return nil, errors.New("nft new owner is required")
	}
	if p.ResponseDestination == nil {
		return nil, errors.New("nft response destination is required")
	}

	forward := DefaultForwardTonAmount
	if p.ForwardTonAmount != nil {
		if p.ForwardTonAmount.Sign() < 0 {
			return nil, errors.New("forward ton amount must be non-negative")
		}
		forward = tlb.FromNanoTON(p.ForwardTonAmount)
	}

	forwardPayload := p.ForwardPayload
	if forwardPayload == nil {
		forwardPayload = cell.BeginCell().EndCell()
	}

	c, err := tlb.ToCell(TransferMessage{
		QueryID:             p.QueryID,
		NewOwner:            p.NewOwner,
		ResponseDestination: p.ResponseDestination,
		CustomPayload:       p.CustomPayload,
		ForwardAmount:       forward,
		ForwardPayload:      forwardPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize nft transfer: %w", err)
	}
	return c, nil
}

func ParseTransfer(c *cell.Cell) (*TransferMessage, error) {
	if c == nil {
		return nil, errors.New("empty nft transfer body")
	}
	var msg TransferMessage
	if err := tlb.LoadFromCell(&msg, c.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to load nft transfer: %w", err)
	}
	return &msg, nil
}

func ParseOwnershipAssigned(c *cell.Cell) (*OwnershipAssignedMessage, error) {
	if c == nil {
		return nil, errors.New("empty nft ownership assigned body")
	}
	var msg OwnershipAssignedMessage
	if err := tlb.LoadFromCell(&msg, c.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to load nft ownership assigned: %w", err)
	}
	return &msg, nil
}
