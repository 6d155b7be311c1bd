package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/events"
	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/ton/hash"
	"github.com/ton-connect/walletkit-go/pkg/tonconnect"
	"github.com/ton-connect/walletkit-go/pkg/wallet"
)

type SignDataEvent struct {
	ID            string                 `json:"id"`
	WalletID      string                 `json:"walletId"`
	WalletAddress string                 `json:"walletAddress"`
	TraceID       string                 `json:"traceId,omitempty"`
	DApp          *tonconnect.DAppInfo   `json:"dAppInfo,omitempty"`
	Payload       intent.SignDataPayload `json:"payload"`
	// SchemaCRC is set for cell payloads.
	SchemaCRC *uint32 `json:"schemaCrc,omitempty"`
}

type wireSignData struct {
	intent.WireSignData
	Network string `json:"network,omitempty"`
}

// SignDataResult is the signData reply body.
type SignDataResult struct {
	Signature string                 `json:"signature"`
	Address   string                 `json:"address"`
	Timestamp int64                  `json:"timestamp"`
	Domain    string                 `json:"domain"`
	Payload   intent.SignDataPayload `json:"payload"`
}

type SignDataHandler struct {
	base
}

func NewSignDataHandler(lggr logger.Logger, deps Deps, opts Options) *SignDataHandler {
	return &SignDataHandler{base: newBase(lggr, "SignDataHandler", deps, opts)}
}

func (h *SignDataHandler) Handle(ctx context.Context, req *tonconnect.BridgeEvent) (*SignDataEvent, *tonconnect.ErrorResponse) {
	if req.Method != tonconnect.MethodSignData {
		return nil, tonconnect.NewBridgeError(req.ID, tonconnect.BridgeErrorMethodNotSupported, fmt.Sprintf("Method %q is not supported", req.Method))
	}
	w, walletID, rpcErr := h.lookupWallet(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if _, ok := w.(wallet.DataSigner); !ok {
		return nil, tonconnect.NewBridgeError(req.ID, tonconnect.BridgeErrorUnknownApp, "Wallet does not support signData")
	}

	payload, errs := h.parse(req, w)
	if len(errs) > 0 {
		return nil, h.rejectInvalid(ctx, req, walletID, errs)
	}

	ev := &SignDataEvent{
		ID:            req.ID,
		WalletID:      walletID,
		WalletAddress: w.Address().String(),
		TraceID:       req.TraceID,
		DApp:          req.DApp,
		Payload:       payload,
	}
	if payload.Type == intent.SignDataCell {
		crc := hash.SchemaCRC32(payload.Schema)
		ev.SchemaCRC = &crc
	}

	h.track(ctx, "wallet-sign-data-request", req, w.Network())
	out := events.New(events.TypeSignDataRequest, req.ID, ev)
	out.WalletID = walletID
	h.emit(ctx, out)
	return ev, nil
}

func (h *SignDataHandler) parse(req *tonconnect.BridgeEvent, w wallet.Wallet) (intent.SignDataPayload, []string) {
	var wire wireSignData
	if err := singleParam(req, &wire); err != nil {
		return intent.SignDataPayload{}, []string{err.Error()}
	}
	var errs []string
	errs = append(errs, validateNetwork(wire.Network, w)...)
	errs = append(errs, validateFrom(wire.From, w)...)

	payload, err := intent.ParseSignData(&wire.WireSignData)
	if err != nil {
		return intent.SignDataPayload{}, append(errs, err.Error())
	}
	switch payload.Type {
	case intent.SignDataBinary:
		if _, err := base64.StdEncoding.DecodeString(payload.Bytes); err != nil {
			errs = append(errs, "Invalid sign data: bytes are not base64")
		}
	case intent.SignDataCell:
		if _, err := intent.ParseBOC(payload.Cell, "sign data cell"); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return payload, errs
}

// Sign signs an approved request for the dApp at ev.DApp.
func (h *SignDataHandler) Sign(ctx context.Context, ev *SignDataEvent) (*SignDataResult, error) {
	w, _, err := h.deps.Wallets.Lookup(ev.WalletID, ev.WalletAddress)
	if err != nil {
		return nil, err
	}
	signer, ok := w.(wallet.DataSigner)
	if !ok {
		return nil, fmt.Errorf("wallet %s cannot sign data", ev.WalletID)
	}
	domain := ""
	if ev.DApp != nil {
		domain = appDomain(ev.DApp.URL)
	}
	ts := h.opts.Now().Unix()
	digest, err := tonconnect.SignDataHash(ev.Payload, w.Address(), domain, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to hash sign data: %w", err)
	}
	sig, err := signer.SignData(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign data: %w", err)
	}
	return &SignDataResult{
		Signature: base64.StdEncoding.EncodeToString(sig),
		Address:   w.Address().StringRaw(),
		Timestamp: ts,
		Domain:    domain,
		Payload:   ev.Payload,
	}, nil
}

func appDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
