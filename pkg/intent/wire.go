package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// WireRequest is the short-field JSON carried by an intent link.
type WireRequest struct {
	ID          string          `json:"id"`
	Method      string          `json:"m"`
	Connect     *ConnectRequest `json:"c,omitempty"`
	Items       []WireItem      `json:"i,omitempty"`
	ValidUntil  Numeric         `json:"vu,omitempty"`
	Network     Numeric         `json:"n,omitempty"`
	ManifestURL string          `json:"mu,omitempty"`
	Payload     *WireSignData   `json:"p,omitempty"`
	ActionURL   string          `json:"a,omitempty"`
}

// WireItem is the union of the ton, jetton and nft item shapes, selected by T.
type WireItem struct {
	T string `json:"t"`

	// ton
	Address       string             `json:"a,omitempty"`
	Amount        Numeric            `json:"am,omitempty"`
	Payload       string             `json:"p,omitempty"`
	StateInit     string             `json:"si,omitempty"`
	ExtraCurrency map[string]Numeric `json:"ec,omitempty"`

	// jetton
	MasterAddress string  `json:"ma,omitempty"`
	JettonAmount  Numeric `json:"ja,omitempty"`
	Destination   string  `json:"d,omitempty"`

	// nft
	NftAddress string `json:"na,omitempty"`
	NewOwner   string `json:"no,omitempty"`

	// jetton and nft
	ResponseDestination string  `json:"rd,omitempty"`
	CustomPayload       string  `json:"cp,omitempty"`
	ForwardTonAmount    Numeric `json:"fta,omitempty"`
	ForwardPayload      string  `json:"fp,omitempty"`
	QueryID             Numeric `json:"qi,omitempty"`
}

type WireSignData struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Bytes  string `json:"bytes,omitempty"`
	Schema string `json:"schema,omitempty"`
	Cell   string `json:"cell,omitempty"`
	From   string `json:"from,omitempty"`
}

// Numeric keeps the literal text of a JSON string or number. Amounts stay
// decimal strings and are never routed through float64.
type Numeric string

func (n *Numeric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Numeric(s)
	default:
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return fmt.Errorf("expected a string or number, got %s", b)
		}
		*n = Numeric(num.String())
	}
	return nil
}

// ParseAmount parses a non-negative decimal integer string.
func ParseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, false
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	return v, ok
}

func (n Numeric) int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

func (n Numeric) uint64() (uint64, error) {
	return strconv.ParseUint(string(n), 10, 64)
}
