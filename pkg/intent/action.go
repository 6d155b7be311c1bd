package intent

import (
	"encoding/json"
	"strings"
)

const (
	ActionTypeSendTransaction = "sendTransaction"
	ActionTypeSignData        = "signData"
)

type actionResponse struct {
	ActionType string          `json:"action_type"`
	Action     json.RawMessage `json:"action"`
}

type actionTransaction struct {
	Messages        []actionMessage `json:"messages"`
	ValidUntil      Numeric         `json:"valid_until"`
	ValidUntilCamel Numeric         `json:"validUntil"`
	Network         Numeric         `json:"network"`
	From            string          `json:"from"`
}

// actionMessage accepts both camelCase and snake_case spellings.
type actionMessage struct {
	Address            string             `json:"address"`
	Amount             Numeric            `json:"amount"`
	Payload            string             `json:"payload"`
	StateInit          string             `json:"stateInit"`
	StateInitSnake     string             `json:"state_init"`
	ExtraCurrency      map[string]Numeric `json:"extraCurrency"`
	ExtraCurrencySnake map[string]Numeric `json:"extra_currency"`
}

// ParseActionResponse maps the body returned by an action URL into an event
// that reuses the id, origin and client of the originating action intent.
func ParseActionResponse(payload []byte, source *ActionIntent) (Event, error) {
	if source == nil {
		return nil, validationErrorf("Invalid action response: missing source action")
	}
	var resp actionResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, &ValidationError{Msg: "Invalid action response: malformed JSON", Err: err}
	}
	if len(resp.Action) == 0 || string(resp.Action) == "null" {
		return nil, validationErrorf("Invalid action response: missing action")
	}
	base := source.EventBase

	switch resp.ActionType {
	case ActionTypeSendTransaction:
		var tx actionTransaction
		if err := json.Unmarshal(resp.Action, &tx); err != nil {
			return nil, &ValidationError{Msg: "Invalid action response: malformed transaction", Err: err}
		}
		return buildActionTransaction(base, &tx)
	case ActionTypeSignData:
		var w WireSignData
		if err := json.Unmarshal(resp.Action, &w); err != nil {
			return nil, &ValidationError{Msg: "Invalid action response: malformed sign data", Err: err}
		}
		p, err := ParseSignData(&w)
		if err != nil {
			return nil, err
		}
		return &SignDataIntent{EventBase: base, ManifestURL: source.ActionURL, Payload: p}, nil
	case "":
		return nil, validationErrorf("Invalid action response: missing action_type")
	default:
		return nil, validationErrorf("Invalid action response: unsupported action_type %q", resp.ActionType)
	}
}

func buildActionTransaction(base EventBase, tx *actionTransaction) (*TransactionIntent, error) {
	if len(tx.Messages) == 0 {
		return nil, validationErrorf("Invalid action response: missing messages")
	}

	req := &TransactionRequest{Network: string(tx.Network), FromAddress: tx.From}
	vu := tx.ValidUntil
	if vu == "" {
		vu = tx.ValidUntilCamel
	}
	if vu != "" {
		v, err := vu.int64()
		if err != nil {
			return nil, &ValidationError{Msg: "Invalid action response: invalid valid_until", Err: err}
		}
		req.ValidUntil = &v
	}

	for i, m := range tx.Messages {
		if strings.TrimSpace(m.Address) == "" {
			return nil, validationErrorf("Invalid action response: message %d: missing address", i)
		}
		if m.Amount == "" {
			return nil, validationErrorf("Invalid action response: message %d: missing amount", i)
		}
		msg := TransactionRequestMessage{
			Address:   m.Address,
			Amount:    string(m.Amount),
			Payload:   m.Payload,
			StateInit: firstNonEmpty(m.StateInit, m.StateInitSnake),
		}
		ec := m.ExtraCurrency
		if len(ec) == 0 {
			ec = m.ExtraCurrencySnake
		}
		if len(ec) > 0 {
			msg.ExtraCurrency = make(map[string]string, len(ec))
			for id, v := range ec {
				msg.ExtraCurrency[id] = string(v)
			}
		}
		req.Messages = append(req.Messages, msg)
	}

	return &TransactionIntent{
		EventBase:           base,
		DeliveryMode:        DeliverySend,
		Network:             req.Network,
		ValidUntil:          req.ValidUntil,
		ResolvedTransaction: req,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
