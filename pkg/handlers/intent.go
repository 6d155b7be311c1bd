package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/emulation"
	"github.com/ton-connect/walletkit-go/pkg/events"
	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/tonconnect"
	"github.com/ton-connect/walletkit-go/pkg/wallet"
)

type IntentResolver interface {
	ResolveTransaction(ctx context.Context, w intent.Wallet, ev *intent.TransactionIntent) (*intent.TransactionRequest, error)
	FetchActionURL(ctx context.Context, actionURL, walletAddress string) ([]byte, error)
}

// IntentEvent is a resolved intent, ready for user approval. Exactly one of
// Request and SignData is set.
type IntentEvent struct {
	ID            string                     `json:"id"`
	Type          intent.EventType           `json:"type"`
	Origin        intent.Origin              `json:"origin"`
	ClientID      string                     `json:"clientId,omitempty"`
	WalletID      string                     `json:"walletId"`
	WalletAddress string                     `json:"walletAddress"`
	DeliveryMode  intent.DeliveryMode        `json:"deliveryMode,omitempty"`
	Request       *intent.TransactionRequest `json:"request,omitempty"`
	SignData      *intent.SignDataIntent     `json:"signData,omitempty"`
	Preview       *emulation.Preview         `json:"preview,omitempty"`
	// ActionURL is set when the intent came from an action URL response.
	ActionURL string `json:"actionUrl,omitempty"`
}

type IntentHandler struct {
	base
	resolver IntentResolver
}

func NewIntentHandler(lggr logger.Logger, resolver IntentResolver, deps Deps, opts Options) *IntentHandler {
	return &IntentHandler{base: newBase(lggr, "IntentHandler", deps, opts), resolver: resolver}
}

// Handle resolves ev for the wallet given by id or address. Action intents
// are fetched and the response handled once; a response that is itself an
// action is rejected.
func (h *IntentHandler) Handle(ctx context.Context, ev intent.Event, walletID, walletAddress string) (*IntentEvent, *tonconnect.ErrorResponse) {
	id := ev.Base().ID
	w, resolvedID, err := h.deps.Wallets.Lookup(walletID, walletAddress)
	if err != nil {
		return nil, tonconnect.NewIntentError(id, tonconnect.IntentErrorUnknownApp, "Wallet not found")
	}

	out, rpcErr := h.handle(ctx, ev, w, resolvedID, "", 0)
	if rpcErr != nil {
		evErr := events.New(events.TypeError, id, rpcErr)
		evErr.WalletID = resolvedID
		h.emit(ctx, evErr)
		return nil, rpcErr
	}
	notify := events.New(events.TypeIntent, id, out)
	notify.WalletID = resolvedID
	h.emit(ctx, notify)
	return out, nil
}

func (h *IntentHandler) handle(ctx context.Context, ev intent.Event, w wallet.Wallet, walletID, actionURL string, depth int) (*IntentEvent, *tonconnect.ErrorResponse) {
	b := ev.Base()
	out := &IntentEvent{
		ID:            b.ID,
		Type:          ev.Type(),
		Origin:        b.Origin,
		ClientID:      b.ClientID,
		WalletID:      walletID,
		WalletAddress: w.Address().String(),
		ActionURL:     actionURL,
	}

	switch e := ev.(type) {
	case *intent.TransactionIntent:
		if errs := h.checkTransaction(e, w); len(errs) > 0 {
			return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorBadRequest, joinErrors(errs))
		}
		req, err := h.resolver.ResolveTransaction(ctx, w, e)
		if err != nil {
			return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorBadRequest, err.Error())
		}
		if req.Network == "" {
			req.Network = string(w.Network())
		}
		out.DeliveryMode = e.DeliveryMode
		out.Request = req
		out.Preview = h.preview(ctx, &tonconnect.BridgeEvent{RPCRequest: tonconnect.RPCRequest{ID: b.ID}}, w, req)
		return out, nil

	case *intent.SignDataIntent:
		if errs := validateNetwork(e.Network, w); len(errs) > 0 {
			return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorBadRequest, joinErrors(errs))
		}
		if errs := validateFrom(e.Payload.From, w); len(errs) > 0 {
			return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorBadRequest, joinErrors(errs))
		}
		out.SignData = e
		return out, nil

	case *intent.ActionIntent:
		if depth > 0 {
			return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorBadRequest, "Action response cannot be another action")
		}
		body, err := h.resolver.FetchActionURL(ctx, e.ActionURL, w.Address().String())
		if err != nil {
			h.lggr.Infow("Action URL unreachable", "id", b.ID, "url", e.ActionURL, "err", err)
			return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorActionURLUnreachable, err.Error())
		}
		next, err := intent.ParseActionResponse(body, e)
		if err != nil {
			var verr *intent.ValidationError
			if errors.As(err, &verr) {
				return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorBadRequest, verr.Error())
			}
			return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorUnknown, err.Error())
		}
		return h.handle(ctx, next, w, walletID, e.ActionURL, depth+1)

	default:
		return nil, tonconnect.NewIntentError(b.ID, tonconnect.IntentErrorMethodNotSupported, fmt.Sprintf("Unsupported intent %T", ev))
	}
}

func (h *IntentHandler) checkTransaction(e *intent.TransactionIntent, w wallet.Wallet) []string {
	errs := validateNetwork(e.Network, w)
	if e.ValidUntil != nil && *e.ValidUntil < h.opts.Now().Unix() {
		errs = append(errs, fmt.Sprintf("Invalid valid_until %d: already expired", *e.ValidUntil))
	}
	if e.DeliveryMode == intent.DeliverySignOnly {
		if _, ok := w.(wallet.MessageSigner); !ok {
			errs = append(errs, "Wallet does not support signMessage")
		}
	}
	return errs
}
