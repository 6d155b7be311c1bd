package toncenter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Opcode is a message op code. The index renders it as "0x0f8a7ea5"; plain
// numbers are accepted too.
type Opcode uint32

func (o Opcode) String() string {
	return fmt.Sprintf("0x%08x", uint32(o))
}

func (o Opcode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

func (o *Opcode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return fmt.Errorf("invalid opcode %s: %w", b, err)
	}
	*o = Opcode(uint32(v))
	return nil
}

type DecodedContent struct {
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

type MessageContent struct {
	Hash    string          `json:"hash,omitempty"`
	Body    string          `json:"body,omitempty"`
	Decoded json.RawMessage `json:"decoded,omitempty"`
}

// DecodedType returns decoded.type, or "" when absent.
func (c *MessageContent) DecodedType() string {
	if c == nil || len(c.Decoded) == 0 {
		return ""
	}
	var d DecodedContent
	if err := json.Unmarshal(c.Decoded, &d); err != nil {
		return ""
	}
	return d.Type
}

type Message struct {
	Hash          string          `json:"hash"`
	Source        string          `json:"source,omitempty"`
	Destination   string          `json:"destination,omitempty"`
	Value         string          `json:"value,omitempty"`
	FwdFee        string          `json:"fwd_fee,omitempty"`
	CreatedLt     string          `json:"created_lt,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	Opcode        *Opcode         `json:"opcode,omitempty"`
	DecodedOpcode string          `json:"decoded_opcode,omitempty"`
	Bounce        *bool           `json:"bounce,omitempty"`
	Bounced       *bool           `json:"bounced,omitempty"`
	InMsgTxHash   string          `json:"in_msg_tx_hash,omitempty"`
	OutMsgTxHash  string          `json:"out_msg_tx_hash,omitempty"`
	Content       *MessageContent `json:"message_content,omitempty"`
	InitState     *MessageContent `json:"init_state,omitempty"`
}

type ComputePhase struct {
	Skipped  bool   `json:"skipped,omitempty"`
	Success  *bool  `json:"success,omitempty"`
	ExitCode *int32 `json:"exit_code,omitempty"`
}

type ActionPhase struct {
	Success    *bool  `json:"success,omitempty"`
	ResultCode *int32 `json:"result_code,omitempty"`
}

type TransactionDescr struct {
	Type      string        `json:"type"`
	Aborted   bool          `json:"aborted"`
	Destroyed bool          `json:"destroyed,omitempty"`
	ComputePh *ComputePhase `json:"compute_ph,omitempty"`
	Action    *ActionPhase  `json:"action,omitempty"`
}

type Transaction struct {
	Account    string           `json:"account"`
	Hash       string           `json:"hash"`
	Lt         string           `json:"lt"`
	Now        int64            `json:"now"`
	TraceID    string           `json:"trace_id,omitempty"`
	OrigStatus string           `json:"orig_status"`
	EndStatus  string           `json:"end_status"`
	TotalFees  string           `json:"total_fees,omitempty"`
	Descr      TransactionDescr `json:"description"`
	InMsg      *Message         `json:"in_msg,omitempty"`
	OutMsgs    []*Message       `json:"out_msgs"`
	Emulated   bool             `json:"emulated,omitempty"`
}

// LtValue parses the logical time; malformed values sort first.
func (t *Transaction) LtValue() uint64 {
	v, _ := strconv.ParseUint(t.Lt, 10, 64)
	return v
}

type TraceNode struct {
	TxHash    string       `json:"tx_hash,omitempty"`
	InMsgHash string       `json:"in_msg_hash,omitempty"`
	Children  []*TraceNode `json:"children"`
}

type AddressBookRow struct {
	UserFriendly string   `json:"user_friendly"`
	Domain       string   `json:"domain,omitempty"`
	Interfaces   []string `json:"interfaces,omitempty"`
}

type AddressBook map[string]AddressBookRow

type TokenInfo struct {
	Type   string         `json:"type,omitempty"`
	Name   string         `json:"name,omitempty"`
	Symbol string         `json:"symbol,omitempty"`
	Image  string         `json:"image,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// ExtraString returns extra[key] when it is a string.
func (t TokenInfo) ExtraString(key string) string {
	s, _ := t.Extra[key].(string)
	return s
}

type AddressMetadata struct {
	IsIndexed bool        `json:"is_indexed"`
	TokenInfo []TokenInfo `json:"token_info"`
}

type Metadata map[string]AddressMetadata

// Trace is one trace from /api/v3/traces or an emulation result.
type Trace struct {
	TraceID           string                  `json:"trace_id,omitempty"`
	ExternalHash      string                  `json:"external_hash,omitempty"`
	StartLt           string                  `json:"start_lt,omitempty"`
	StartUtime        int64                   `json:"start_utime,omitempty"`
	IsIncomplete      bool                    `json:"is_incomplete"`
	Root              *TraceNode              `json:"trace,omitempty"`
	TransactionsOrder []string                `json:"transactions_order,omitempty"`
	Transactions      map[string]*Transaction `json:"transactions"`
	AddressBook       AddressBook             `json:"address_book,omitempty"`
	Metadata          Metadata                `json:"metadata,omitempty"`
}

type TracesResponse struct {
	Traces      []Trace     `json:"traces"`
	AddressBook AddressBook `json:"address_book"`
	Metadata    Metadata    `json:"metadata"`
}

type EmulateRequest struct {
	Boc                string `json:"boc"`
	IgnoreChksig       bool   `json:"ignore_chksig"`
	WithActions        bool   `json:"with_actions"`
	IncludeAddressBook bool   `json:"include_address_book"`
	IncludeMetadata    bool   `json:"include_metadata"`
}

type EmulateTraceResponse struct {
	McBlockSeqno uint32                  `json:"mc_block_seqno"`
	Root         TraceNode               `json:"trace"`
	Transactions map[string]*Transaction `json:"transactions"`
	AddressBook  AddressBook             `json:"address_book,omitempty"`
	Metadata     Metadata                `json:"metadata,omitempty"`
	RandSeed     string                  `json:"rand_seed"`
	IsIncomplete bool                    `json:"is_incomplete"`
}

// Trace views the emulation result as a regular trace.
func (r *EmulateTraceResponse) Trace() *Trace {
	root := r.Root
	return &Trace{
		TraceID:      root.TxHash,
		IsIncomplete: r.IsIncomplete,
		Root:         &root,
		Transactions: r.Transactions,
		AddressBook:  r.AddressBook,
		Metadata:     r.Metadata,
	}
}

type AccountState struct {
	Address       string `json:"address"`
	Balance       string `json:"balance"`
	AccountStatus string `json:"status"`
	CodeHash      string `json:"code_hash,omitempty"`
	DataHash      string `json:"data_hash,omitempty"`
	LastTxHash    string `json:"last_transaction_hash,omitempty"`
	LastTxLt      string `json:"last_transaction_lt,omitempty"`
}

type AccountStatesResponse struct {
	Accounts    []AccountState `json:"accounts"`
	AddressBook AddressBook    `json:"address_book"`
}

type SendMessageRequest struct {
	Boc string `json:"boc"`
}

type SendMessageResult struct {
	MessageHash     string `json:"message_hash,omitempty"`
	MessageHashNorm string `json:"message_hash_norm,omitempty"`
}
