package tonconnect

import "time"

// Bridge RPC methods.
const (
	MethodSendTransaction = "sendTransaction"
	MethodSignMessage     = "signMessage"
	MethodSignData        = "signData"
	MethodDisconnect      = "disconnect"
)

type RPCRequest struct {
	ID     string   `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

type DAppInfo struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	IconURL     string `json:"iconUrl,omitempty"`
	ManifestURL string `json:"manifestUrl,omitempty"`
}

// BridgeEvent is an RPC request together with the routing data of the
// transport that delivered it.
type BridgeEvent struct {
	RPCRequest
	// From is the client id of the sending dApp.
	From          string    `json:"from"`
	WalletID      string    `json:"walletId,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	TraceID       string    `json:"traceId,omitempty"`
	DApp          *DAppInfo `json:"dAppInfo,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt"`
}
