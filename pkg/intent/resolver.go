package intent

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/bindings/jetton"
	"github.com/ton-connect/walletkit-go/pkg/bindings/nft"
)

// Wallet is what the resolver needs from a wallet.
type Wallet interface {
	Address() *address.Address
	// JettonWalletAddress returns the wallet's holding account for a jetton master.
	JettonWalletAddress(ctx context.Context, master *address.Address) (*address.Address, error)
}

type Resolver struct {
	lggr logger.Logger
	http *resty.Client
}

type ResolverOption func(*Resolver)

func WithResolverHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) { r.http = resty.NewWithClient(c) }
}

func NewResolver(lggr logger.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{lggr: logger.Named(lggr, "IntentResolver"), http: resty.New()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveTransaction produces the transaction request of a transaction intent.
// A request already carried by the intent takes precedence over its items.
func (r *Resolver) ResolveTransaction(ctx context.Context, w Wallet, ev *TransactionIntent) (*TransactionRequest, error) {
	from := w.Address().String()
	if ev.ResolvedTransaction != nil {
		req := *ev.ResolvedTransaction
		if req.FromAddress == "" {
			req.FromAddress = from
		}
		return &req, nil
	}
	msgs, err := r.ResolveItems(ctx, w, ev.Items)
	if err != nil {
		return nil, err
	}
	return &TransactionRequest{
		Messages:    msgs,
		Network:     ev.Network,
		ValidUntil:  ev.ValidUntil,
		FromAddress: from,
	}, nil
}

// ResolveItems converts items to messages, preserving order.
func (r *Resolver) ResolveItems(ctx context.Context, w Wallet, items []Item) ([]TransactionRequestMessage, error) {
	msgs := make([]TransactionRequestMessage, 0, len(items))
	for i, item := range items {
		var (
			msg *TransactionRequestMessage
			err error
		)
		switch it := item.(type) {
		case *SendTon:
			msg = resolveTon(it)
		case *SendJetton:
			msg, err = r.resolveJetton(ctx, w, it)
		case *SendNft:
			msg, err = resolveNft(w, it)
		default:
			err = fmt.Errorf("unsupported item %T", item)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve item %d: %w", i, err)
		}
		msgs = append(msgs, *msg)
	}
	return msgs, nil
}

func resolveTon(it *SendTon) *TransactionRequestMessage {
	msg := &TransactionRequestMessage{
		Address:   it.Address,
		Amount:    it.Amount,
		Payload:   it.Payload,
		StateInit: it.StateInit,
	}
	if len(it.ExtraCurrency) > 0 {
		msg.ExtraCurrency = make(map[string]string, len(it.ExtraCurrency))
		for k, v := range it.ExtraCurrency {
			msg.ExtraCurrency[k] = v
		}
	}
	return msg
}

func (r *Resolver) resolveJetton(ctx context.Context, w Wallet, it *SendJetton) (*TransactionRequestMessage, error) {
	master, err := address.ParseAddr(it.MasterAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid jetton master address: %w", err)
	}
	dest, err := address.ParseAddr(it.Destination)
	if err != nil {
		return nil, fmt.Errorf("invalid destination: %w", err)
	}
	response, err := responseDestination(w, it.ResponseDestination)
	if err != nil {
		return nil, err
	}
	amount, ok := ParseAmount(it.Amount)
	if !ok {
		return nil, fmt.Errorf("invalid jetton amount %q", it.Amount)
	}
	forwardAmount, err := optionalBig(it.ForwardTonAmount)
	if err != nil {
		return nil, err
	}
	custom, err := ParseBOC(it.CustomPayload, "custom payload")
	if err != nil {
		return nil, err
	}
	forward, err := ParseBOC(it.ForwardPayload, "forward payload")
	if err != nil {
		return nil, err
	}

	holding, err := w.JettonWalletAddress(ctx, master)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve jetton wallet for %s: %w", master.String(), err)
	}

	body, err := jetton.BuildTransfer(jetton.TransferParams{
		QueryID:             queryID(it.QueryID),
		Amount:              amount,
		Destination:         dest,
		ResponseDestination: response,
		CustomPayload:       custom,
		ForwardTonAmount:    forwardAmount,
		ForwardPayload:      forward,
	})
	if err != nil {
		return nil, err
	}

	r.lggr.Debugw("Resolved jetton transfer", "master", master.String(), "holding", holding.String(), "amount", it.Amount)
	return &TransactionRequestMessage{
		Address: holding.String(),
		Amount:  jetton.TransferGasReserve.Nano().String(),
		Payload: base64.StdEncoding.EncodeToString(body.ToBOC()),
	}, nil
}

func resolveNft(w Wallet, it *SendNft) (*TransactionRequestMessage, error) {
	if _, err := address.ParseAddr(it.NftAddress); err != nil {
		return nil, fmt.Errorf("invalid nft address: %w", err)
	}
	newOwner, err := address.ParseAddr(it.NewOwnerAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid new owner address: %w", err)
	}
	response, err := responseDestination(w, it.ResponseDestination)
	if err != nil {
		return nil, err
	}
	forwardAmount, err := optionalBig(it.ForwardTonAmount)
	if err != nil {
		return nil, err
	}
	custom, err := ParseBOC(it.CustomPayload, "custom payload")
	if err != nil {
		return nil, err
	}
	forward, err := ParseBOC(it.ForwardPayload, "forward payload")
	if err != nil {
		return nil, err
	}

	body, err := nft.BuildTransfer(nft.TransferParams{
		QueryID:             queryID(it.QueryID),
		NewOwner:            newOwner,
		ResponseDestination: response,
		CustomPayload:       custom,
		ForwardTonAmount:    forwardAmount,
		ForwardPayload:      forward,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionRequestMessage{
		Address: it.NftAddress,
		Amount:  nft.TransferGasReserve.Nano().String(),
		Payload: base64.StdEncoding.EncodeToString(body.ToBOC()),
	}, nil
}

func responseDestination(w Wallet, s string) (*address.Address, error) {
	if s == "" {
		return w.Address(), nil
	}
	a, err := address.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid response destination: %w", err)
	}
	return a, nil
}

func optionalBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := ParseAmount(s)
	if !ok {
		return nil, fmt.Errorf("invalid forward ton amount %q", s)
	}
	return v, nil
}

func queryID(q *uint64) uint64 {
	if q == nil {
		return 0
	}
	return *q
}

// ParseBOC decodes a base64 (std or url) BOC. Empty input yields a nil cell.
func ParseBOC(s, name string) (*cell.Cell, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, err = base64.URLEncoding.DecodeString(s); err != nil {
			return nil, fmt.Errorf("invalid %s: not base64: %w", name, err)
		}
	}
	c, err := cell.FromBOC(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return c, nil
}

// FetchActionURL calls an action URL on behalf of walletAddress and returns the raw body.
func (r *Resolver) FetchActionURL(ctx context.Context, actionURL, walletAddress string) ([]byte, error) {
	sep := "?"
	if strings.Contains(actionURL, "?") {
		sep = "&"
	}
	full := actionURL + sep + "address=" + url.QueryEscape(walletAddress)

	resp, err := r.http.R().SetContext(ctx).SetHeader("Accept", "application/json").Get(full)
	if err != nil {
		return nil, &NetworkError{Msg: "Action URL request failed", URL: full, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &NetworkError{Msg: "Action URL request failed", URL: full, StatusCode: resp.StatusCode(), Status: resp.Status()}
	}
	return resp.Body(), nil
}
