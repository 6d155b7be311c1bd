package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/jetton"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/utils"
)

var ErrExtraCurrencyUnsupported = errors.New("extra currencies are not supported")

// TonWallet backs Wallet with a tonutils wallet and a lite-client API.
type TonWallet struct {
	lggr    logger.Logger
	api     ton.APIClientWrapped
	w       *wallet.Wallet
	network Network
	version string
	retry   utils.RetryConfig
	now     func() time.Time
}

var (
	_ Wallet                  = (*TonWallet)(nil)
	_ MessageSigner           = (*TonWallet)(nil)
	_ EmulationMessageBuilder = (*TonWallet)(nil)
	_ DataSigner              = (*TonWallet)(nil)
)

func NewTonWallet(lggr logger.Logger, api ton.APIClientWrapped, key ed25519.PrivateKey, network Network, version wallet.VersionConfig, label string) (*TonWallet, error) {
	if !network.Valid() {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	w, err := wallet.FromPrivateKey(api, key, version)
	if err != nil {
		return nil, fmt.Errorf("failed to init wallet: %w", err)
	}
	return &TonWallet{
		lggr:    logger.Named(lggr, "TonWallet"),
		api:     api,
		w:       w,
		network: network,
		version: label,
		retry:   utils.DefaultRetryConfig,
		now:     time.Now,
	}, nil
}

func (t *TonWallet) Address() *address.Address { return t.w.WalletAddress() }
func (t *TonWallet) Network() Network          { return t.network }
func (t *TonWallet) Version() string           { return t.version }

func (t *TonWallet) JettonWalletAddress(ctx context.Context, master *address.Address) (*address.Address, error) {
	client := jetton.NewJettonMasterClient(t.api, master)
	jw, err := utils.Retry(ctx, t.retry, func(ctx context.Context) (*jetton.WalletClient, error) {
		return client.GetJettonWallet(ctx, t.Address())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get jetton wallet for master %s: %w", master.String(), err)
	}
	return jw.Address(), nil
}

func (t *TonWallet) SendTransaction(ctx context.Context, req *intent.TransactionRequest) error {
	msgs, err := t.messages(req)
	if err != nil {
		return err
	}
	if err := t.w.SendMany(ctx, msgs); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}
	t.lggr.Infow("Sent transaction", "from", t.Address().String(), "messages", len(msgs))
	return nil
}

// SignMessage returns the signed external message as a base64 BOC.
func (t *TonWallet) SignMessage(ctx context.Context, req *intent.TransactionRequest) (string, error) {
	return t.external(ctx, req)
}

func (t *TonWallet) EmulationMessage(ctx context.Context, req *intent.TransactionRequest) (string, error) {
	return t.external(ctx, req)
}

func (t *TonWallet) SignData(_ context.Context, hash []byte) ([]byte, error) {
	return ed25519.Sign(t.w.PrivateKey(), hash), nil
}

func (t *TonWallet) external(ctx context.Context, req *intent.TransactionRequest) (string, error) {
	msgs, err := t.messages(req)
	if err != nil {
		return "", err
	}
	deployed, err := t.deployed(ctx)
	if err != nil {
		return "", err
	}
	ext, err := utils.Retry(ctx, t.retry, func(ctx context.Context) (*tlb.ExternalMessage, error) {
		return t.w.PrepareExternalMessageForMany(ctx, !deployed, msgs)
	})
	if err != nil {
		return "", fmt.Errorf("failed to prepare external message: %w", err)
	}
	c, err := tlb.ToCell(ext)
	if err != nil {
		return "", fmt.Errorf("failed to serialize external message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(c.ToBOC()), nil
}

func (t *TonWallet) deployed(ctx context.Context) (bool, error) {
	return utils.Retry(ctx, t.retry, func(ctx context.Context) (bool, error) {
		block, err := t.api.CurrentMasterchainInfo(ctx)
		if err != nil {
			return false, err
		}
		acc, err := t.api.GetAccount(ctx, block, t.Address())
		if err != nil {
			return false, err
		}
		return acc.IsActive, nil
	})
}

func (t *TonWallet) messages(req *intent.TransactionRequest) ([]*wallet.Message, error) {
	if req.ValidUntil != nil && *req.ValidUntil < t.now().Unix() {
		return nil, fmt.Errorf("transaction expired at %d", *req.ValidUntil)
	}
	return BuildMessages(req)
}

// BuildMessages converts request messages into wallet internal messages.
func BuildMessages(req *intent.TransactionRequest) ([]*wallet.Message, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("no messages")
	}
	out := make([]*wallet.Message, 0, len(req.Messages))
	for i, m := range req.Messages {
		msg, err := buildMessage(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func buildMessage(m intent.TransactionRequestMessage) (*wallet.Message, error) {
	if len(m.ExtraCurrency) > 0 {
		return nil, ErrExtraCurrencyUnsupported
	}
	dst, err := parseAnyAddress(m.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", m.Address, err)
	}
	amount, ok := intent.ParseAmount(m.Amount)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", m.Amount)
	}
	body, err := intent.ParseBOC(m.Payload, "payload")
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = cell.BeginCell().EndCell()
	}
	var stateInit *tlb.StateInit
	if initCell, err := intent.ParseBOC(m.StateInit, "state init"); err != nil {
		return nil, err
	} else if initCell != nil {
		stateInit = &tlb.StateInit{}
		if err := tlb.LoadFromCell(stateInit, initCell.BeginParse()); err != nil {
			return nil, fmt.Errorf("invalid state init: %w", err)
		}
	}
	return &wallet.Message{
		Mode: wallet.PayGasSeparately + wallet.IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      dst.IsBounceable(),
			DstAddr:     dst,
			Amount:      tlb.FromNanoTON(amount),
			Body:        body,
			StateInit:   stateInit,
		},
	}, nil
}
