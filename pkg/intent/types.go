package intent

import (
	"encoding/json"
	"fmt"
)

type Origin string

const (
	OriginDeepLink      Origin = "deepLink"
	OriginObjectStorage Origin = "objectStorage"
)

type DeliveryMode string

const (
	DeliverySend     DeliveryMode = "send"
	DeliverySignOnly DeliveryMode = "signOnly"
)

// Wire values of the `m` field.
const (
	MethodTxIntent     = "txIntent"
	MethodSignMsg      = "signMsg"
	MethodSignIntent   = "signIntent"
	MethodActionIntent = "actionIntent"
)

type EventType string

const (
	EventTypeTransaction EventType = "transaction"
	EventTypeSignData    EventType = "signData"
	EventTypeAction      EventType = "action"
)

// Event is a parsed intent. The set of implementations is closed:
// *TransactionIntent, *SignDataIntent and *ActionIntent.
type Event interface {
	Type() EventType
	Base() *EventBase
	isEvent()
}

type EventBase struct {
	ID                string `json:"id"`
	Origin            Origin `json:"origin"`
	ClientID          string `json:"clientId,omitempty"`
	HasConnectRequest bool   `json:"hasConnectRequest"`
}

func (b *EventBase) Base() *EventBase { return b }

type TransactionIntent struct {
	EventBase
	TraceID      string       `json:"traceId,omitempty"`
	DeliveryMode DeliveryMode `json:"deliveryMode"`
	Network      string       `json:"network,omitempty"`
	ValidUntil   *int64       `json:"validUntil,omitempty"`
	Items        []Item       `json:"-"`
	// ResolvedTransaction is set when the messages came from an action URL response.
	ResolvedTransaction *TransactionRequest `json:"resolvedTransaction,omitempty"`
}

type SignDataIntent struct {
	EventBase
	ManifestURL string          `json:"manifestUrl"`
	Payload     SignDataPayload `json:"payload"`
	Network     string          `json:"network,omitempty"`
}

type ActionIntent struct {
	EventBase
	ActionURL string `json:"actionUrl"`
}

func (*TransactionIntent) Type() EventType { return EventTypeTransaction }
func (*SignDataIntent) Type() EventType    { return EventTypeSignData }
func (*ActionIntent) Type() EventType      { return EventTypeAction }

func (*TransactionIntent) isEvent() {}
func (*SignDataIntent) isEvent()    {}
func (*ActionIntent) isEvent()      {}

func (e *TransactionIntent) MarshalJSON() ([]byte, error) {
	type alias TransactionIntent
	items := make([]taggedValue, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, taggedValue{Type: string(it.Type()), Value: it})
	}
	return json.Marshal(struct {
		*alias
		Items []taggedValue `json:"items"`
	}{alias: (*alias)(e), Items: items})
}

type taggedValue struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// MarshalEvent renders an event as {"type": ..., "value": ...}.
func MarshalEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("nil event")
	}
	return json.Marshal(taggedValue{Type: string(e.Type()), Value: e})
}

type ItemType string

const (
	ItemTypeSendTon    ItemType = "sendTon"
	ItemTypeSendJetton ItemType = "sendJetton"
	ItemTypeSendNft    ItemType = "sendNft"
)

// Item is one abstract action of a transaction intent. Implementations:
// *SendTon, *SendJetton and *SendNft.
type Item interface {
	Type() ItemType
	isItem()
}

// SendTon is fully specified by the dApp and is forwarded as is.
type SendTon struct {
	Address       string            `json:"address"`
	Amount        string            `json:"amount"`
	Payload       string            `json:"payload,omitempty"`
	StateInit     string            `json:"stateInit,omitempty"`
	ExtraCurrency map[string]string `json:"extraCurrency,omitempty"`
}

type SendJetton struct {
	MasterAddress       string  `json:"jettonMasterAddress"`
	Amount              string  `json:"jettonAmount"`
	Destination         string  `json:"destination"`
	ResponseDestination string  `json:"responseDestination,omitempty"`
	CustomPayload       string  `json:"customPayload,omitempty"`
	ForwardTonAmount    string  `json:"forwardTonAmount,omitempty"`
	ForwardPayload      string  `json:"forwardPayload,omitempty"`
	QueryID             *uint64 `json:"queryId,omitempty"`
}

type SendNft struct {
	NftAddress          string  `json:"nftAddress"`
	NewOwnerAddress     string  `json:"newOwnerAddress"`
	ResponseDestination string  `json:"responseDestination,omitempty"`
	CustomPayload       string  `json:"customPayload,omitempty"`
	ForwardTonAmount    string  `json:"forwardTonAmount,omitempty"`
	ForwardPayload      string  `json:"forwardPayload,omitempty"`
	QueryID             *uint64 `json:"queryId,omitempty"`
}

func (*SendTon) Type() ItemType    { return ItemTypeSendTon }
func (*SendJetton) Type() ItemType { return ItemTypeSendJetton }
func (*SendNft) Type() ItemType    { return ItemTypeSendNft }

func (*SendTon) isItem()    {}
func (*SendJetton) isItem() {}
func (*SendNft) isItem()    {}

type SignDataType string

const (
	SignDataText   SignDataType = "text"
	SignDataBinary SignDataType = "binary"
	SignDataCell   SignDataType = "cell"
)

// SignDataPayload carries exactly the content field matching Type.
type SignDataPayload struct {
	Type   SignDataType `json:"type"`
	Text   string       `json:"text,omitempty"`
	Bytes  string       `json:"bytes,omitempty"`
	Schema string       `json:"schema,omitempty"`
	Cell   string       `json:"cell,omitempty"`
	From   string       `json:"from,omitempty"`
}

// TransactionRequestMessage is one outbound message, ready for signing.
type TransactionRequestMessage struct {
	Address       string            `json:"address"`
	Amount        string            `json:"amount"`
	Payload       string            `json:"payload,omitempty"`
	StateInit     string            `json:"stateInit,omitempty"`
	ExtraCurrency map[string]string `json:"extra_currency,omitempty"`
}

type TransactionRequest struct {
	Messages    []TransactionRequestMessage `json:"messages"`
	Network     string                      `json:"network,omitempty"`
	ValidUntil  *int64                      `json:"valid_until,omitempty"`
	FromAddress string                      `json:"from,omitempty"`
}

type ConnectItem struct {
	Name    string `json:"name"`
	Payload string `json:"payload,omitempty"`
}

type ConnectRequest struct {
	ManifestURL string        `json:"manifestUrl"`
	Items       []ConnectItem `json:"items,omitempty"`
}

type ParseResult struct {
	Event          Event
	ConnectRequest *ConnectRequest
}
