package intent

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
)

// Parser turns intent links into events. It holds no per-call state and is
// safe for concurrent use.
type Parser struct {
	lggr   logger.Logger
	scheme string
	http   *resty.Client
}

type ParserOption func(*Parser)

// WithScheme replaces the default "tc" link scheme.
func WithScheme(scheme string) ParserOption {
	return func(p *Parser) {
		if scheme != "" {
			p.scheme = scheme
		}
	}
}

// WithHTTPClient sets the client used for object storage fetches.
func WithHTTPClient(c *http.Client) ParserOption {
	return func(p *Parser) { p.http = resty.NewWithClient(c) }
}

func NewParser(lggr logger.Logger, opts ...ParserOption) *Parser {
	p := &Parser{
		lggr:   logger.Named(lggr, "IntentParser"),
		scheme: DefaultScheme,
		http:   resty.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) prefix(host string) string {
	return strings.ToLower(p.scheme) + "://" + host
}

// IsIntentURL reports whether raw uses one of the intent link schemes.
func (p *Parser) IsIntentURL(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(s, p.prefix(inlineHost)) || strings.HasPrefix(s, p.prefix(objectStorageHost))
}

// Parse decodes, validates and maps an intent link. All failures are
// *ValidationError or *NetworkError.
func (p *Parser) Parse(ctx context.Context, raw string) (*ParseResult, error) {
	parsed, err := p.decodeURL(ctx, raw)
	if err != nil {
		return nil, err
	}
	ev, err := buildEvent(parsed)
	if err != nil {
		return nil, err
	}
	p.lggr.Debugw("Parsed intent", "id", ev.Base().ID, "type", ev.Type(), "origin", parsed.Origin)
	return &ParseResult{Event: ev, ConnectRequest: parsed.Request.Connect}, nil
}

func (p *Parser) decodeURL(ctx context.Context, raw string) (*parsedURL, error) {
	trimmed := strings.TrimSpace(raw)
	if !p.IsIntentURL(trimmed) {
		return nil, validationErrorf("Invalid intent URL: expected %s or %s", p.prefix(inlineHost), p.prefix(objectStorageHost))
	}

	if i := strings.IndexByte(trimmed, '#'); i >= 0 {
		trimmed = trimmed[:i]
	}
	var query string
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		query = trimmed[i+1:]
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return nil, &ValidationError{Msg: "Invalid intent URL query", Err: err}
	}

	if strings.HasPrefix(strings.ToLower(trimmed), p.prefix(inlineHost)) {
		return p.decodeInline(q)
	}
	return p.decodeObjectStorage(ctx, q)
}

func buildEvent(parsed *parsedURL) (Event, error) {
	req := parsed.Request
	if strings.TrimSpace(req.ID) == "" {
		return nil, validationErrorf("Invalid intent: missing id")
	}
	base := EventBase{
		ID:                req.ID,
		Origin:            parsed.Origin,
		ClientID:          parsed.ClientID,
		HasConnectRequest: req.Connect != nil,
	}

	switch req.Method {
	case MethodTxIntent, MethodSignMsg:
		return buildTransactionIntent(base, parsed.TraceID, req)
	case MethodSignIntent:
		return buildSignDataIntent(base, req)
	case MethodActionIntent:
		if strings.TrimSpace(req.ActionURL) == "" {
			return nil, validationErrorf("Invalid intent: missing action URL")
		}
		return &ActionIntent{EventBase: base, ActionURL: req.ActionURL}, nil
	default:
		return nil, validationErrorf("Invalid intent method: %q", req.Method)
	}
}

func buildTransactionIntent(base EventBase, traceID string, req *WireRequest) (*TransactionIntent, error) {
	if len(req.Items) == 0 {
		return nil, validationErrorf("Invalid intent: missing items")
	}
	ev := &TransactionIntent{
		EventBase:    base,
		TraceID:      traceID,
		DeliveryMode: DeliverySend,
		Network:      string(req.Network),
	}
	if req.Method == MethodSignMsg {
		ev.DeliveryMode = DeliverySignOnly
	}
	if req.ValidUntil != "" {
		vu, err := req.ValidUntil.int64()
		if err != nil {
			return nil, &ValidationError{Msg: "Invalid intent: invalid validUntil", Err: err}
		}
		ev.ValidUntil = &vu
	}
	for i := range req.Items {
		item, err := buildItem(&req.Items[i])
		if err != nil {
			return nil, &ValidationError{Msg: "Invalid intent item " + strconv.Itoa(i), Err: err}
		}
		ev.Items = append(ev.Items, item)
	}
	return ev, nil
}

func buildItem(w *WireItem) (Item, error) {
	switch w.T {
	case "ton":
		if w.Address == "" {
			return nil, validationErrorf("missing address")
		}
		if w.Amount == "" {
			return nil, validationErrorf("missing amount")
		}
		if _, ok := ParseAmount(string(w.Amount)); !ok {
			return nil, validationErrorf("invalid amount %q", w.Amount)
		}
		item := &SendTon{Address: w.Address, Amount: string(w.Amount), Payload: w.Payload, StateInit: w.StateInit}
		if len(w.ExtraCurrency) > 0 {
			item.ExtraCurrency = make(map[string]string, len(w.ExtraCurrency))
			for id, amount := range w.ExtraCurrency {
				if _, ok := ParseAmount(string(amount)); !ok {
					return nil, validationErrorf("invalid extra currency amount for %s", id)
				}
				item.ExtraCurrency[id] = string(amount)
			}
		}
		return item, nil
	case "jetton":
		if w.MasterAddress == "" {
			return nil, validationErrorf("missing jetton master address")
		}
		if w.JettonAmount == "" {
			return nil, validationErrorf("missing jetton amount")
		}
		if _, ok := ParseAmount(string(w.JettonAmount)); !ok {
			return nil, validationErrorf("invalid jetton amount %q", w.JettonAmount)
		}
		if w.Destination == "" {
			return nil, validationErrorf("missing destination")
		}
		qid, err := optionalQueryID(w.QueryID)
		if err != nil {
			return nil, err
		}
		if err := optionalAmount(w.ForwardTonAmount); err != nil {
			return nil, err
		}
		return &SendJetton{
			MasterAddress:       w.MasterAddress,
			Amount:              string(w.JettonAmount),
			Destination:         w.Destination,
			ResponseDestination: w.ResponseDestination,
			CustomPayload:       w.CustomPayload,
			ForwardTonAmount:    string(w.ForwardTonAmount),
			ForwardPayload:      w.ForwardPayload,
			QueryID:             qid,
		}, nil
	case "nft":
		if w.NftAddress == "" {
			return nil, validationErrorf("missing nft address")
		}
		if w.NewOwner == "" {
			return nil, validationErrorf("missing new owner address")
		}
		qid, err := optionalQueryID(w.QueryID)
		if err != nil {
			return nil, err
		}
		if err := optionalAmount(w.ForwardTonAmount); err != nil {
			return nil, err
		}
		return &SendNft{
			NftAddress:          w.NftAddress,
			NewOwnerAddress:     w.NewOwner,
			ResponseDestination: w.ResponseDestination,
			CustomPayload:       w.CustomPayload,
			ForwardTonAmount:    string(w.ForwardTonAmount),
			ForwardPayload:      w.ForwardPayload,
			QueryID:             qid,
		}, nil
	default:
		return nil, validationErrorf("Invalid intent item type: %q", w.T)
	}
}

func optionalQueryID(n Numeric) (*uint64, error) {
	if n == "" {
		return nil, nil
	}
	v, err := n.uint64()
	if err != nil {
		return nil, &ValidationError{Msg: "invalid query id", Err: err}
	}
	return &v, nil
}

func optionalAmount(n Numeric) error {
	if n == "" {
		return nil
	}
	if _, ok := ParseAmount(string(n)); !ok {
		return validationErrorf("invalid forward ton amount %q", n)
	}
	return nil
}

func buildSignDataIntent(base EventBase, req *WireRequest) (*SignDataIntent, error) {
	manifest := req.ManifestURL
	if manifest == "" && req.Connect != nil {
		manifest = req.Connect.ManifestURL
	}
	if manifest == "" {
		return nil, validationErrorf("Invalid intent: missing manifest URL")
	}
	if req.Payload == nil {
		return nil, validationErrorf("Invalid intent: missing payload")
	}
	payload, err := ParseSignData(req.Payload)
	if err != nil {
		return nil, err
	}
	return &SignDataIntent{EventBase: base, ManifestURL: manifest, Payload: payload, Network: string(req.Network)}, nil
}

// ParseSignData validates a sign-data payload of type text, binary or cell.
func ParseSignData(w *WireSignData) (SignDataPayload, error) {
	if w == nil || w.Type == "" {
		return SignDataPayload{}, validationErrorf("Invalid sign data: missing payload type")
	}
	p := SignDataPayload{Type: SignDataType(w.Type), From: w.From}
	switch p.Type {
	case SignDataText:
		if w.Text == "" {
			return SignDataPayload{}, validationErrorf("Invalid sign data: missing text")
		}
		p.Text = w.Text
	case SignDataBinary:
		if w.Bytes == "" {
			return SignDataPayload{}, validationErrorf("Invalid sign data: missing bytes")
		}
		p.Bytes = w.Bytes
	case SignDataCell:
		if w.Schema == "" {
			return SignDataPayload{}, validationErrorf("Invalid sign data: missing schema")
		}
		if w.Cell == "" {
			return SignDataPayload{}, validationErrorf("Invalid sign data: missing cell")
		}
		p.Schema, p.Cell = w.Schema, w.Cell
	default:
		return SignDataPayload{}, validationErrorf("Unsupported sign data type: %q", w.Type)
	}
	return p, nil
}
