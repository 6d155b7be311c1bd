package tonconnect

import "fmt"

// IntentErrorCode is returned to the dApp when an intent cannot be served.
type IntentErrorCode int

const (
	IntentErrorUnknown              IntentErrorCode = 0
	IntentErrorBadRequest           IntentErrorCode = 1
	IntentErrorUnknownApp           IntentErrorCode = 100
	IntentErrorActionURLUnreachable IntentErrorCode = 200
	IntentErrorUserDeclined         IntentErrorCode = 300
	IntentErrorMethodNotSupported   IntentErrorCode = 400
)

func (c IntentErrorCode) String() string {
	switch c {
	case IntentErrorUnknown:
		return "UNKNOWN"
	case IntentErrorBadRequest:
		return "BAD_REQUEST"
	case IntentErrorUnknownApp:
		return "UNKNOWN_APP"
	case IntentErrorActionURLUnreachable:
		return "ACTION_URL_UNREACHABLE"
	case IntentErrorUserDeclined:
		return "USER_DECLINED"
	case IntentErrorMethodNotSupported:
		return "METHOD_NOT_SUPPORTED"
	default:
		return fmt.Sprintf("IntentErrorCode(%d)", int(c))
	}
}

// BridgeErrorCode is the error set of bridge RPC responses
// (sendTransaction, signMessage, signData).
type BridgeErrorCode int

const (
	BridgeErrorUnknown            BridgeErrorCode = 0
	BridgeErrorBadRequest         BridgeErrorCode = 1
	BridgeErrorUnknownApp         BridgeErrorCode = 100
	BridgeErrorUserRejects        BridgeErrorCode = 300
	BridgeErrorMethodNotSupported BridgeErrorCode = 400
)

func (c BridgeErrorCode) String() string {
	switch c {
	case BridgeErrorUnknown:
		return "UNKNOWN_ERROR"
	case BridgeErrorBadRequest:
		return "BAD_REQUEST_ERROR"
	case BridgeErrorUnknownApp:
		return "UNKNOWN_APP_ERROR"
	case BridgeErrorUserRejects:
		return "USER_REJECTS_ERROR"
	case BridgeErrorMethodNotSupported:
		return "METHOD_NOT_SUPPORTED"
	default:
		return fmt.Sprintf("BridgeErrorCode(%d)", int(c))
	}
}

type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is relayed to the dApp as is. It is a value, not a Go error:
// handlers return it next to their result.
type ErrorResponse struct {
	ID    string    `json:"id"`
	Error WireError `json:"error"`
}

func NewBridgeError(id string, code BridgeErrorCode, msg string) *ErrorResponse {
	return &ErrorResponse{ID: id, Error: WireError{Code: int(code), Message: msg}}
}

func NewIntentError(id string, code IntentErrorCode, msg string) *ErrorResponse {
	return &ErrorResponse{ID: id, Error: WireError{Code: int(code), Message: msg}}
}
