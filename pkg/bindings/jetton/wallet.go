package jetton

import (
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// JettonWallet opcodes (TEP-74)
const (
	OpcodeWalletTransfer             = 0x0f8a7ea5
	OpcodeWalletTransferNotification = 0x7362d09c
	OpcodeWalletInternalTransfer     = 0x178d4519
	OpcodeWalletExcesses             = 0xd53276db
	OpcodeWalletBurn                 = 0x595f07bc
	OpcodeWalletBurnNotification     = 0x7bdd97de
)

// TransferMessage is sent by the owner to its own jetton wallet.
type TransferMessage struct {
	_                   tlb.Magic        `tlb:"#0f8a7ea5"` //nolint:revive // This field should stay uninitialized
	QueryID             uint64           `tlb:"## 64"`
	Amount              tlb.Coins        `tlb:"."`
	Destination         *address.Address `tlb:"addr"`
	ResponseDestination *address.Address `tlb:"addr"`
	CustomPayload       *cell.Cell       `tlb:"maybe ^"`
	ForwardTonAmount    tlb.Coins        `tlb:"."`
	ForwardPayload      *cell.Cell       `tlb:"either . ^"`
}

// InternalTransferMessage travels between two jetton wallets of the same master.
type InternalTransferMessage struct {
	_                tlb.Magic        `tlb:"#178d4519"` //nolint:revive // This field should stay uninitialized
	QueryID          uint64           `tlb:"## 64"`
	Amount           tlb.Coins        `tlb:"."`
	From             *address.Address `tlb:"addr"`
	ResponseAddress  *address.Address `tlb:"addr"`
	ForwardTonAmount tlb.Coins        `tlb:"."`
	ForwardPayload   *cell.Cell       `tlb:"either . ^"`
}

// TransferNotificationMessage is delivered to the recipient owner when
// forward_ton_amount is positive.
type TransferNotificationMessage struct {
	_              tlb.Magic        `tlb:"#7362d09c"` //nolint:revive // This field should stay uninitialized
	QueryID        uint64           `tlb:"## 64"`
	Amount         tlb.Coins        `tlb:"."`
	Sender         *address.Address `tlb:"addr"`
	ForwardPayload *cell.Cell       `tlb:"either . ^"`
}

type ExcessesMessage struct {
	_       tlb.Magic `tlb:"#d53276db"` //nolint:revive // This field should stay uninitialized
	QueryID uint64    `tlb:"## 64"`
}

type BurnMessage struct {
	_                   tlb.Magic        `tlb:"#595f07bc"` //nolint:revive // This field should stay uninitialized
	QueryID             uint64           `tlb:"## 64"`
	Amount              tlb.Coins        `tlb:"."`
	ResponseDestination *address.Address `tlb:"addr"`
	CustomPayload       *cell.Cell       `tlb:"maybe ^"`
}

// BurnNotificationMessage is sent by a jetton wallet to its master after a burn.
type BurnNotificationMessage struct {
	_                   tlb.Magic        `tlb:"#7bdd97de"` //nolint:revive // This field should stay uninitialized
	QueryID             uint64           `tlb:"## 64"`
	Amount              tlb.Coins        `tlb:"."`
	Sender              *address.Address `tlb:"addr"`
	ResponseDestination *address.Address `tlb:"addr"`
}
