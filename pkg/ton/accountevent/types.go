package accountevent

import (
	"encoding/json"
	"fmt"
)

type ActionType string

const (
	ActionTonTransfer       ActionType = "TonTransfer"
	ActionJettonTransfer    ActionType = "JettonTransfer"
	ActionNftItemTransfer   ActionType = "NftItemTransfer"
	ActionSmartContractExec ActionType = "SmartContractExec"
	ActionContractDeploy    ActionType = "ContractDeploy"
	ActionJettonSwap        ActionType = "JettonSwap"
	ActionUnknown           ActionType = "Unknown"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Action is one semantic step of an Event. The concrete types below are the
// only implementations.
type Action interface {
	Type() ActionType
	Base() *ActionBase
	isAction()
}

type ActionBase struct {
	// ID is the representative transaction of the action.
	ID               string        `json:"id"`
	Status           Status        `json:"status"`
	FailureReason    string        `json:"failureReason,omitempty"`
	SimplePreview    SimplePreview `json:"simplePreview"`
	BaseTransactions []string      `json:"baseTransactions"`
}

func (b *ActionBase) Base() *ActionBase { return b }
func (*ActionBase) isAction()           {}

type SimplePreview struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Value       string           `json:"value,omitempty"`
	ValueImage  string           `json:"valueImage,omitempty"`
	Accounts    []AccountAddress `json:"accounts"`
}

type AccountAddress struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	IsScam   bool   `json:"isScam"`
	IsWallet bool   `json:"isWallet"`
}

type JettonPreview struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals int    `json:"decimals"`
	Image    string `json:"image,omitempty"`
}

// Amounts are decimal strings of the smallest unit.

type TonTransferAction struct {
	ActionBase
	Sender    AccountAddress `json:"sender"`
	Recipient AccountAddress `json:"recipient"`
	Amount    string         `json:"amount"`
	Comment   string         `json:"comment,omitempty"`
	Encrypted bool           `json:"encryptedComment,omitempty"`
}

type JettonTransferAction struct {
	ActionBase
	Sender           *AccountAddress `json:"sender,omitempty"`
	Recipient        *AccountAddress `json:"recipient,omitempty"`
	SendersWallet    string          `json:"sendersWallet,omitempty"`
	RecipientsWallet string          `json:"recipientsWallet,omitempty"`
	Amount           string          `json:"amount"`
	Jetton           JettonPreview   `json:"jetton"`
	Comment          string          `json:"comment,omitempty"`
}

type NftItemTransferAction struct {
	ActionBase
	Sender    *AccountAddress `json:"sender,omitempty"`
	Recipient *AccountAddress `json:"recipient,omitempty"`
	Nft       string          `json:"nft"`
	Comment   string          `json:"comment,omitempty"`
}

type SmartContractExecAction struct {
	ActionBase
	Executor    AccountAddress `json:"executor"`
	Contract    AccountAddress `json:"contract"`
	TonAttached string         `json:"tonAttached"`
	Operation   string         `json:"operation"`
	Payload     string         `json:"payload,omitempty"`
}

type ContractDeployAction struct {
	ActionBase
	Address    string   `json:"address"`
	Interfaces []string `json:"interfaces,omitempty"`
}

type JettonSwapAction struct {
	ActionBase
	Dex             string         `json:"dex,omitempty"`
	AmountIn        string         `json:"amountIn,omitempty"`
	AmountOut       string         `json:"amountOut,omitempty"`
	TonIn           string         `json:"tonIn,omitempty"`
	TonOut          string         `json:"tonOut,omitempty"`
	UserWallet      AccountAddress `json:"userWallet"`
	Router          AccountAddress `json:"router"`
	JettonMasterIn  *JettonPreview `json:"jettonMasterIn,omitempty"`
	JettonMasterOut *JettonPreview `json:"jettonMasterOut,omitempty"`
}

type UnknownAction struct {
	ActionBase
}

func (*TonTransferAction) Type() ActionType       { return ActionTonTransfer }
func (*JettonTransferAction) Type() ActionType    { return ActionJettonTransfer }
func (*NftItemTransferAction) Type() ActionType   { return ActionNftItemTransfer }
func (*SmartContractExecAction) Type() ActionType { return ActionSmartContractExec }
func (*ContractDeployAction) Type() ActionType    { return ActionContractDeploy }
func (*JettonSwapAction) Type() ActionType        { return ActionJettonSwap }
func (*UnknownAction) Type() ActionType           { return ActionUnknown }

// Event is everything a trace did from the point of view of one account.
type Event struct {
	EventID      string         `json:"eventId"`
	Account      AccountAddress `json:"account"`
	Timestamp    int64          `json:"timestamp"`
	Actions      []Action       `json:"-"`
	IsScam       bool           `json:"isScam"`
	Lt           uint64         `json:"lt"`
	InProgress   bool           `json:"inProgress"`
	Transactions []string       `json:"transactions"`
}

// MarshalJSON renders each action with its "type" tag next to its fields.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	actions := make([]json.RawMessage, 0, len(e.Actions))
	for i, a := range e.Actions {
		raw, err := MarshalAction(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode action %d: %w", i, err)
		}
		actions = append(actions, raw)
	}
	return json.Marshal(struct {
		plain
		Actions []json.RawMessage `json:"actions"`
	}{plain: plain(e), Actions: actions})
}

func MarshalAction(a Action) ([]byte, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, err := json.Marshal(a.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}
