package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
)

// Event is one analytics record of a handled wallet request.
type Event struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	TraceID          string    `json:"traceId,omitempty"`
	SessionPublicKey string    `json:"sessionPublicKey,omitempty"`
	DAppName         string    `json:"dAppName,omitempty"`
	NetworkID        string    `json:"networkId,omitempty"`
	OriginURL        string    `json:"originUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Sink interface {
	Track(ctx context.Context, ev Event) error
}

// Stamp fills the id and timestamp of ev when unset.
func Stamp(ev Event) Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	return ev
}

type LogSink struct {
	lggr logger.Logger
}

var _ Sink = (*LogSink)(nil)

func NewLogSink(lggr logger.Logger) *LogSink {
	return &LogSink{lggr: logger.Named(lggr, "Analytics")}
}

func (s *LogSink) Track(_ context.Context, ev Event) error {
	ev = Stamp(ev)
	s.lggr.Infow("Tracked event",
		"id", ev.ID,
		"name", ev.Name,
		"traceID", ev.TraceID,
		"session", ev.SessionPublicKey,
		"dApp", ev.DAppName,
		"network", ev.NetworkID,
		"origin", ev.OriginURL,
	)
	return nil
}
