package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
)

type Type string

const (
	TypeError              Type = "event:error"
	TypeEmulationResult    Type = "emulation:result"
	TypeTransactionRequest Type = "event:transaction_request"
	TypeSignDataRequest    Type = "event:sign_data_request"
	TypeIntent             Type = "event:intent"
)

// Event is one notification. Payload is owned by the receiver once emitted.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	RequestID string    `json:"requestId,omitempty"`
	WalletID  string    `json:"walletId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func New(typ Type, requestID string, payload any) Event {
	return Event{ID: uuid.NewString(), Type: typ, RequestID: requestID, Payload: payload, CreatedAt: time.Now()}
}

type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

type Handler func(ctx context.Context, ev Event) error

// Bus delivers events synchronously, in subscription order, to every handler
// of the event's type and then to the catch-all handlers.
type Bus struct {
	lggr logger.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[Type][]subscription
	all    []subscription
}

type subscription struct {
	id int
	fn Handler
}

var _ Emitter = (*Bus)(nil)

func NewBus(lggr logger.Logger) *Bus {
	return &Bus{lggr: logger.Named(lggr, "EventBus"), subs: make(map[Type][]subscription)}
}

// Subscribe registers fn for typ, or for every type when typ is empty. The
// returned func removes the subscription.
func (b *Bus) Subscribe(typ Type, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := subscription{id: b.nextID, fn: fn}
	if typ == "" {
		b.all = append(b.all, s)
	} else {
		b.subs[typ] = append(b.subs[typ], s)
	}
	return func() { b.unsubscribe(typ, s.id) }
}

func (b *Bus) unsubscribe(typ Type, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remove := func(list []subscription) []subscription {
		out := list[:0]
		for _, s := range list {
			if s.id != id {
				out = append(out, s)
			}
		}
		return out
	}
	if typ == "" {
		b.all = remove(b.all)
		return
	}
	b.subs[typ] = remove(b.subs[typ])
}

// Emit runs every matching handler and joins their errors.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	if ev.Type == "" {
		return errors.New("event type is required")
	}
	b.mu.RLock()
	handlers := make([]subscription, 0, len(b.subs[ev.Type])+len(b.all))
	handlers = append(handlers, b.subs[ev.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range handlers {
		if err := s.fn(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("handler %d for %s: %w", s.id, ev.Type, err))
		}
	}
	if len(errs) > 0 {
		b.lggr.Debugw("Event handlers failed", "type", ev.Type, "id", ev.ID, "failed", len(errs))
	}
	return errors.Join(errs...)
}

// EmitBestEffort emits ev and logs a failure instead of returning it.
func EmitBestEffort(ctx context.Context, lggr logger.Logger, e Emitter, ev Event) {
	if e == nil {
		return
	}
	if err := e.Emit(ctx, ev); err != nil {
		lggr.Warnw("Failed to emit event", "type", ev.Type, "requestID", ev.RequestID, "err", err)
	}
}
