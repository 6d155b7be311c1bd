package emulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/xssnick/tonutils-go/address"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/ton/accountevent"
	"github.com/ton-connect/walletkit-go/pkg/toncenter"
	"github.com/ton-connect/walletkit-go/pkg/utils"
)

type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
)

const ErrorCodeUnknown = "UNKNOWN_EMULATION_ERROR"

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type JettonDelta struct {
	Jetton accountevent.JettonPreview `json:"jetton"`
	// Amount is signed: negative when the account spends.
	Amount string `json:"amount"`
}

// MoneyFlow sums what the previewed account sends and receives.
type MoneyFlow struct {
	Inputs       string        `json:"inputs"`
	Outputs      string        `json:"outputs"`
	JettonDeltas []JettonDelta `json:"jettonDeltas"`
	OurAddress   string        `json:"ourAddress"`
}

type Preview struct {
	Result    Result              `json:"result"`
	Error     *Error              `json:"emulationError,omitempty"`
	Event     *accountevent.Event `json:"event,omitempty"`
	MoneyFlow *MoneyFlow          `json:"moneyFlow,omitempty"`
}

// ErrorPreview wraps err as an unknown emulation failure.
func ErrorPreview(err error) *Preview {
	return &Preview{Result: ResultError, Error: &Error{Code: ErrorCodeUnknown, Message: err.Error()}}
}

// Wallet is what the emulator needs from a wallet.
type Wallet interface {
	Address() *address.Address
	EmulationMessage(ctx context.Context, req *intent.TransactionRequest) (string, error)
}

type Emulator struct {
	lggr    logger.Logger
	api     toncenter.ApiClient
	decoder *accountevent.Decoder
	retry   utils.RetryConfig
}

func NewEmulator(lggr logger.Logger, api toncenter.ApiClient, decoder *accountevent.Decoder, retry utils.RetryConfig) *Emulator {
	lggr = logger.Named(lggr, "Emulator")
	if decoder == nil {
		decoder = accountevent.NewDecoder(lggr, nil)
	}
	return &Emulator{lggr: lggr, api: api, decoder: decoder, retry: retry}
}

// Emulate previews req as sent by w. Trace fetches are retried.
func (e *Emulator) Emulate(ctx context.Context, w Wallet, req *intent.TransactionRequest) (*Preview, error) {
	boc, err := e.externalMessage(ctx, w, req)
	if err != nil {
		return nil, err
	}
	trace, err := utils.Retry(ctx, e.retry, func(ctx context.Context) (*toncenter.Trace, error) {
		return e.api.EmulateTrace(ctx, boc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to emulate trace: %w", err)
	}
	ev, err := e.decoder.Decode(trace, w.Address().StringRaw())
	if err != nil {
		return nil, fmt.Errorf("failed to decode emulated trace: %w", err)
	}
	e.lggr.Debugw("Emulated transaction", "wallet", w.Address().String(), "actions", len(ev.Actions))
	return &Preview{Result: ResultSuccess, Event: ev, MoneyFlow: BuildMoneyFlow(ev)}, nil
}

func (e *Emulator) externalMessage(ctx context.Context, w Wallet, req *intent.TransactionRequest) (string, error) {
	if req == nil || len(req.Messages) == 0 {
		return "", errors.New("nothing to emulate")
	}
	boc, err := utils.Retry(ctx, e.retry, func(ctx context.Context) (string, error) {
		return w.EmulationMessage(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("failed to build emulation message: %w", err)
	}
	return boc, nil
}

// BuildMoneyFlow sums TON and jetton movements of the event's account.
func BuildMoneyFlow(ev *accountevent.Event) *MoneyFlow {
	us := ev.Account.Address
	in, out := new(big.Int), new(big.Int)
	deltas := make(map[string]*JettonDelta)
	jettons := make(map[string]*big.Int)
	var order []string

	addJetton := func(j accountevent.JettonPreview, amount string, sign int) {
		v, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return
		}
		if _, seen := deltas[j.Address]; !seen {
			deltas[j.Address] = &JettonDelta{Jetton: j}
			jettons[j.Address] = new(big.Int)
			order = append(order, j.Address)
		}
		if sign < 0 {
			v.Neg(v)
		}
		jettons[j.Address].Add(jettons[j.Address], v)
	}
	addTon := func(dst *big.Int, amount string) {
		if v, ok := new(big.Int).SetString(amount, 10); ok {
			dst.Add(dst, v)
		}
	}

	for _, a := range ev.Actions {
		switch act := a.(type) {
		case *accountevent.TonTransferAction:
			if act.Sender.Address == us {
				addTon(out, act.Amount)
			}
			if act.Recipient.Address == us {
				addTon(in, act.Amount)
			}
		case *accountevent.SmartContractExecAction:
			addTon(out, act.TonAttached)
		case *accountevent.JettonTransferAction:
			if act.Sender != nil && act.Sender.Address == us {
				addJetton(act.Jetton, act.Amount, -1)
			}
			if act.Recipient != nil && act.Recipient.Address == us {
				addJetton(act.Jetton, act.Amount, 1)
			}
		case *accountevent.JettonSwapAction:
			if act.JettonMasterIn != nil {
				addJetton(*act.JettonMasterIn, act.AmountIn, -1)
			} else if act.TonIn != "" {
				addTon(out, act.TonIn)
			}
			if act.JettonMasterOut != nil {
				addJetton(*act.JettonMasterOut, act.AmountOut, 1)
			} else if act.TonOut != "" {
				addTon(in, act.TonOut)
			}
		}
	}

	sort.Strings(order)
	flow := &MoneyFlow{Inputs: in.String(), Outputs: out.String(), OurAddress: us, JettonDeltas: []JettonDelta{}}
	for _, k := range order {
		d := deltas[k]
		d.Amount = jettons[k].String()
		flow.JettonDeltas = append(flow.JettonDeltas, *d)
	}
	return flow
}
