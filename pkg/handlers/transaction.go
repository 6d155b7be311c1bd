package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/emulation"
	"github.com/ton-connect/walletkit-go/pkg/events"
	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/tonconnect"
	"github.com/ton-connect/walletkit-go/pkg/wallet"
)

// TransactionEvent is a validated sendTransaction or signMessage request,
// ready for user approval.
type TransactionEvent struct {
	ID            string                     `json:"id"`
	Method        string                     `json:"method"`
	DeliveryMode  intent.DeliveryMode        `json:"deliveryMode"`
	WalletID      string                     `json:"walletId"`
	WalletAddress string                     `json:"walletAddress"`
	TraceID       string                     `json:"traceId,omitempty"`
	DApp          *tonconnect.DAppInfo       `json:"dAppInfo,omitempty"`
	Request       *intent.TransactionRequest `json:"request"`
	Preview       *emulation.Preview         `json:"preview,omitempty"`
}

type wireMessage struct {
	Address          string            `json:"address"`
	Amount           json.Number       `json:"amount"`
	Payload          string            `json:"payload,omitempty"`
	StateInit        string            `json:"stateInit,omitempty"`
	ExtraCurrency    map[string]string `json:"extra_currency,omitempty"`
	ExtraCurrencyAlt map[string]string `json:"extraCurrency,omitempty"`
}

type wireTransaction struct {
	ValidUntil json.Number   `json:"valid_until,omitempty"`
	Network    string        `json:"network,omitempty"`
	From       string        `json:"from,omitempty"`
	Messages   []wireMessage `json:"messages"`
}

type TransactionHandler struct {
	base
}

func NewTransactionHandler(lggr logger.Logger, deps Deps, opts Options) *TransactionHandler {
	return &TransactionHandler{base: newBase(lggr, "TransactionHandler", deps, opts)}
}

// Handle serves sendTransaction and signMessage. Failures are returned as a
// bridge error addressed to the request id.
func (h *TransactionHandler) Handle(ctx context.Context, req *tonconnect.BridgeEvent) (*TransactionEvent, *tonconnect.ErrorResponse) {
	mode := intent.DeliverySend
	switch req.Method {
	case tonconnect.MethodSendTransaction:
	case tonconnect.MethodSignMessage:
		mode = intent.DeliverySignOnly
	default:
		return nil, tonconnect.NewBridgeError(req.ID, tonconnect.BridgeErrorMethodNotSupported, fmt.Sprintf("Method %q is not supported", req.Method))
	}

	w, walletID, rpcErr := h.lookupWallet(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if mode == intent.DeliverySignOnly {
		if _, ok := w.(wallet.MessageSigner); !ok {
			return nil, tonconnect.NewBridgeError(req.ID, tonconnect.BridgeErrorUnknownApp, "Wallet does not support signMessage")
		}
	}

	tx, errs := h.parse(req, w)
	if len(errs) > 0 {
		h.lggr.Infow("Rejected transaction request", "requestID", req.ID, "method", req.Method, "errors", errs)
		return nil, h.rejectInvalid(ctx, req, walletID, errs)
	}

	ev := &TransactionEvent{
		ID:            req.ID,
		Method:        req.Method,
		DeliveryMode:  mode,
		WalletID:      walletID,
		WalletAddress: w.Address().String(),
		TraceID:       req.TraceID,
		DApp:          req.DApp,
		Request:       tx,
		Preview:       h.preview(ctx, req, w, tx),
	}

	name := "wallet-transaction-request"
	if mode == intent.DeliverySignOnly {
		name = "wallet-sign-message-request"
	}
	h.track(ctx, name, req, w.Network())

	out := events.New(events.TypeTransactionRequest, req.ID, ev)
	out.WalletID = walletID
	h.emit(ctx, out)
	return ev, nil
}

// parse decodes the request and collects every validation failure.
func (h *TransactionHandler) parse(req *tonconnect.BridgeEvent, w wallet.Wallet) (*intent.TransactionRequest, []string) {
	var wire wireTransaction
	if err := singleParam(req, &wire); err != nil {
		return nil, []string{err.Error()}
	}

	var errs []string
	validUntil, vErrs := validateValidUntil(wire.ValidUntil, h.opts.Now())
	errs = append(errs, vErrs...)
	errs = append(errs, validateNetwork(wire.Network, w)...)
	errs = append(errs, validateFrom(wire.From, w)...)

	msgs, mErrs := validateMessages(wire.Messages)
	errs = append(errs, mErrs...)
	if len(errs) > 0 {
		return nil, errs
	}

	return &intent.TransactionRequest{
		Messages:    msgs,
		Network:     string(w.Network()),
		ValidUntil:  validUntil,
		FromAddress: w.Address().String(),
	}, nil
}

func validateMessages(wire []wireMessage) ([]intent.TransactionRequestMessage, []string) {
	if len(wire) == 0 {
		return nil, []string{"Invalid messages: at least one message is required"}
	}
	var errs []string
	msgs := make([]intent.TransactionRequestMessage, 0, len(wire))
	for i, m := range wire {
		if _, err := parseAddress(m.Address); err != nil {
			errs = append(errs, fmt.Sprintf("Invalid message %d: bad address %q", i, m.Address))
		}
		if v, ok := new(big.Int).SetString(string(m.Amount), 10); !ok || v.Sign() < 0 {
			errs = append(errs, fmt.Sprintf("Invalid message %d: amount %q is not a non-negative integer", i, m.Amount))
		}
		if _, err := intent.ParseBOC(m.Payload, "payload"); err != nil {
			errs = append(errs, fmt.Sprintf("Invalid message %d: %v", i, err))
		}
		if _, err := intent.ParseBOC(m.StateInit, "stateInit"); err != nil {
			errs = append(errs, fmt.Sprintf("Invalid message %d: %v", i, err))
		}
		ec := m.ExtraCurrency
		if ec == nil {
			ec = m.ExtraCurrencyAlt
		}
		msgs = append(msgs, intent.TransactionRequestMessage{
			Address:       m.Address,
			Amount:        string(m.Amount),
			Payload:       m.Payload,
			StateInit:     m.StateInit,
			ExtraCurrency: ec,
		})
	}
	return msgs, errs
}
