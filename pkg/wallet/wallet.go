package wallet

import (
	"context"

	"github.com/xssnick/tonutils-go/address"

	"github.com/ton-connect/walletkit-go/pkg/intent"
)

// Wallet is the capability set shared by all wallets the kit manages.
type Wallet interface {
	Address() *address.Address
	Network() Network
	Version() string
	JettonWalletAddress(ctx context.Context, master *address.Address) (*address.Address, error)
	SendTransaction(ctx context.Context, req *intent.TransactionRequest) error
}

// MessageSigner signs a request without sending it. Required by signMessage.
type MessageSigner interface {
	SignMessage(ctx context.Context, req *intent.TransactionRequest) (string, error)
}

// EmulationMessageBuilder returns the base64 external message used for
// emulation previews.
type EmulationMessageBuilder interface {
	EmulationMessage(ctx context.Context, req *intent.TransactionRequest) (string, error)
}

// DataSigner signs an arbitrary hash with the wallet key.
type DataSigner interface {
	SignData(ctx context.Context, hash []byte) ([]byte, error)
}

var _ intent.Wallet = Wallet(nil)
