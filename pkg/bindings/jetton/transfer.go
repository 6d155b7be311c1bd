package jetton

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var (
	// DefaultForwardTonAmount is attached to the notification when the caller does not pick one.
	DefaultForwardTonAmount = tlb.FromNanoTON(big.NewInt(1))
	// TransferGasReserve is the TON value of the message sent to the owner's jetton wallet.
	TransferGasReserve = tlb.MustFromTON("0.05")
)

type TransferParams struct {
	QueryID             uint64
	Amount              *big.Int
	Destination         *address.Address
	ResponseDestination *address.Address
	CustomPayload       *cell.Cell
	// ForwardTonAmount falls back to DefaultForwardTonAmount when nil.
	ForwardTonAmount *big.Int
	ForwardPayload   *cell.Cell
}

// BuildTransfer serializes a TEP-74 transfer body.
func BuildTransfer(p TransferParams) (*cell.Cell, error) {
	if p.Amount == nil || p.Amount.Sign() < 0 {
		return nil, errors.New("jetton amount must be a non-negative integer")
	}
	if p.Destination == nil {
		return nil, errors.New("jetton destination is required")
	}
	if p.ResponseDestination == nil {
		return nil, errors.New("jetton response destination is required")
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
		Amount:              tlb.FromNanoTON(p.Amount),
		Destination:         p.Destination,
		ResponseDestination: p.ResponseDestination,
		CustomPayload:       p.CustomPayload,
		ForwardTonAmount:    forward,
		ForwardPayload:      forwardPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize jetton transfer: %w", err)
	}
	return c, nil
}

func ParseTransfer(c *cell.Cell) (*TransferMessage, error) {
	return load[TransferMessage](c, "transfer")
}

func ParseInternalTransfer(c *cell.Cell) (*InternalTransferMessage, error) {
	return load[InternalTransferMessage](c, "internal transfer")
}

func ParseTransferNotification(c *cell.Cell) (*TransferNotificationMessage, error) {
	return load[TransferNotificationMessage](c, "transfer notification")
}

func ParseExcesses(c *cell.Cell) (*ExcessesMessage, error) {
	return load[ExcessesMessage](c, "excesses")
}

func ParseBurn(c *cell.Cell) (*BurnMessage, error) {
	return load[BurnMessage](c, "burn")
}

func ParseBurnNotification(c *cell.Cell) (*BurnNotificationMessage, error) {
	return load[BurnNotificationMessage](c, "burn notification")
}

func load[T any](c *cell.Cell, name string) (*T, error) {
	if c == nil {
		return nil, fmt.Errorf("empty %s body", name)
	}
	var msg T
	if err := tlb.LoadFromCell(&msg, c.BeginParse()); err != nil {
		return nil, fmt.Errorf("failed to load jetton %s: %w", name, err)
	}
	return &msg, nil
}
