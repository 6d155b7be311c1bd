package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xssnick/tonutils-go/address"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/analytics"
	"github.com/ton-connect/walletkit-go/pkg/emulation"
	"github.com/ton-connect/walletkit-go/pkg/events"
	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/tonconnect"
	"github.com/ton-connect/walletkit-go/pkg/wallet"
)

type WalletLookup interface {
	Lookup(id, addr string) (wallet.Wallet, string, error)
}

type SessionLookup interface {
	SessionByClientID(clientID string) (*tonconnect.Session, error)
}

type Previewer interface {
	Emulate(ctx context.Context, w emulation.Wallet, req *intent.TransactionRequest) (*emulation.Preview, error)
}

// Deps are the collaborators shared by all handlers. Sessions, Analytics and
// Previewer are optional.
type Deps struct {
	Wallets   WalletLookup
	Sessions  SessionLookup
	Previewer Previewer
	Emitter   events.Emitter
	Analytics analytics.Sink
}

type Options struct {
	DisablePreview bool
	Now            func() time.Time
}

type base struct {
	lggr logger.Logger
	deps Deps
	opts Options
}

func newBase(lggr logger.Logger, name string, deps Deps, opts Options) base {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return base{lggr: logger.Named(lggr, name), deps: deps, opts: opts}
}

func (b *base) emit(ctx context.Context, ev events.Event) {
	events.EmitBestEffort(ctx, b.lggr, b.deps.Emitter, ev)
}

// rejectInvalid notifies listeners and builds the BAD_REQUEST reply.
func (b *base) rejectInvalid(ctx context.Context, req *tonconnect.BridgeEvent, walletID string, errs []string) *tonconnect.ErrorResponse {
	msg := "Invalid request: " + joinErrors(errs)
	ev := events.New(events.TypeError, req.ID, map[string]any{"method": req.Method, "errors": errs})
	ev.WalletID = walletID
	b.emit(ctx, ev)
	return tonconnect.NewBridgeError(req.ID, tonconnect.BridgeErrorBadRequest, msg)
}

func (b *base) lookupWallet(req *tonconnect.BridgeEvent) (wallet.Wallet, string, *tonconnect.ErrorResponse) {
	w, id, err := b.deps.Wallets.Lookup(req.WalletID, req.WalletAddress)
	if err != nil {
		b.lggr.Debugw("Wallet not found", "requestID", req.ID, "walletID", req.WalletID, "err", err)
		return nil, "", tonconnect.NewBridgeError(req.ID, tonconnect.BridgeErrorUnknownApp, "Wallet not found")
	}
	return w, id, nil
}

// preview emulates req. Failures become an error preview.
func (b *base) preview(ctx context.Context, req *tonconnect.BridgeEvent, w wallet.Wallet, tx *intent.TransactionRequest) *emulation.Preview {
	if b.opts.DisablePreview || b.deps.Previewer == nil {
		return nil
	}
	ew, ok := w.(emulation.Wallet)
	if !ok {
		return emulation.ErrorPreview(fmt.Errorf("wallet %s cannot build emulation messages", w.Address().String()))
	}
	p, err := b.deps.Previewer.Emulate(ctx, ew, tx)
	if err != nil {
		b.lggr.Warnw("Emulation failed", "requestID", req.ID, "err", err)
		return emulation.ErrorPreview(err)
	}
	b.emit(ctx, events.New(events.TypeEmulationResult, req.ID, p))
	return p
}

// track records analytics only for requests of a known session.
func (b *base) track(ctx context.Context, name string, req *tonconnect.BridgeEvent, network wallet.Network) {
	if b.deps.Analytics == nil || b.deps.Sessions == nil {
		return
	}
	sess, err := b.deps.Sessions.SessionByClientID(req.From)
	if err != nil {
		return
	}
	dapp := sess.DApp
	if req.DApp != nil {
		dapp = *req.DApp
	}
	ev := analytics.Event{
		Name:             name,
		TraceID:          req.TraceID,
		SessionPublicKey: sess.SessionID,
		DAppName:         dapp.Name,
		NetworkID:        string(network),
		OriginURL:        dapp.URL,
	}
	if err := b.deps.Analytics.Track(ctx, analytics.Stamp(ev)); err != nil {
		b.lggr.Warnw("Failed to track analytics event", "name", name, "requestID", req.ID, "err", err)
	}
}

// singleParam decodes the one JSON-encoded string parameter of a bridge request.
func singleParam(req *tonconnect.BridgeEvent, v any) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one request parameter, got %d", len(req.Params))
	}
	if err := json.Unmarshal([]byte(req.Params[0]), v); err != nil {
		return fmt.Errorf("malformed request parameter: %v", err)
	}
	return nil
}

func validateNetwork(raw string, w wallet.Wallet) []string {
	if raw == "" {
		return nil
	}
	n, err := wallet.ParseNetwork(raw)
	if err != nil {
		return []string{"Invalid network: " + err.Error()}
	}
	if n != w.Network() {
		return []string{fmt.Sprintf("Invalid network: request is for %s but wallet is on %s", n, w.Network())}
	}
	return nil
}

func validateFrom(raw string, w wallet.Wallet) []string {
	if raw == "" {
		return nil
	}
	a, err := parseAddress(raw)
	if err != nil {
		return []string{fmt.Sprintf("Invalid from address %q", raw)}
	}
	if a.StringRaw() != w.Address().StringRaw() {
		return []string{fmt.Sprintf("Invalid from address: %s does not match wallet %s", raw, w.Address().String())}
	}
	return nil
}

// validateValidUntil accepts integer or fractional seconds; fractions are truncated.
func validateValidUntil(raw json.Number, now time.Time) (*int64, []string) {
	if raw == "" {
		return nil, nil
	}
	v, err := raw.Int64()
	if err != nil {
		f, ferr := strconv.ParseFloat(string(raw), 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
			return nil, []string{fmt.Sprintf("Invalid valid_until %q: not a finite number", raw)}
		}
		v = int64(f)
	}
	if v < now.Unix() {
		return nil, []string{fmt.Sprintf("Invalid valid_until %d: already expired", v)}
	}
	return &v, nil
}

func parseAddress(s string) (*address.Address, error) {
	a, err := address.ParseAddr(s)
	if err == nil {
		return a, nil
	}
	return address.ParseRawAddr(s)
}

func joinErrors(errs []string) string {
	return strings.Join(errs, "; ")
}
