package intent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/crypto/nacl/box"
)

const (
	DefaultScheme = "tc"

	inlineHost        = "intent_inline"
	objectStorageHost = "intent"

	nonceSize = 24
	keySize   = 32
)

// envelopeFields are probed in order when object storage answers with JSON.
var envelopeFields = []string{"data", "payload", "body"}

// parsedURL is the transport-level view of an intent link.
type parsedURL struct {
	ClientID string
	Request  *WireRequest
	Origin   Origin
	TraceID  string
}

// EncodeBase64URL encodes s as unpadded base64url.
func EncodeBase64URL(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// DecodeBase64URL accepts padded or unpadded base64url (and plain base64) and
// requires the result to be valid UTF-8.
func DecodeBase64URL(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "+", "_", "/", " ", "+").Replace(s)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", &ValidationError{Msg: "Invalid base64url payload", Err: err}
	}
	if !utf8.Valid(raw) {
		return "", validationErrorf("Invalid base64url payload: not UTF-8")
	}
	return string(raw), nil
}

// BuildInlineURL renders request as an inline intent link.
func BuildInlineURL(scheme, clientID string, request any, traceID string) (string, error) {
	if scheme == "" {
		scheme = DefaultScheme
	}
	raw, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("id", clientID)
	q.Set("r", EncodeBase64URL(string(raw)))
	if traceID != "" {
		q.Set("trace_id", traceID)
	}
	return scheme + "://" + inlineHost + "?" + q.Encode(), nil
}

// decodeInlinePayload turns the already query-decoded `r` value into JSON text.
func decodeInlinePayload(v string) (string, error) {
	v = strings.TrimSpace(v)
	for i := 0; i < 2 && hasPercentBrace(v); i++ {
		d, err := url.PathUnescape(v)
		if err != nil {
			return "", &ValidationError{Msg: "Invalid percent-encoded payload", Err: err}
		}
		v = strings.TrimSpace(d)
	}
	if strings.HasPrefix(v, "{") {
		return v, nil
	}
	if hasPercentBrace(v) {
		return "", validationErrorf("Invalid percent-encoded payload")
	}
	return DecodeBase64URL(v)
}

func hasPercentBrace(v string) bool {
	upper := strings.ToUpper(v)
	return strings.HasPrefix(upper, "%7B") || strings.HasPrefix(upper, "%257B")
}

func decodeWireRequest(text string) (*WireRequest, error) {
	var req WireRequest
	if err := json.Unmarshal([]byte(text), &req); err != nil {
		return nil, &ValidationError{Msg: "Invalid JSON payload", Err: err}
	}
	return &req, nil
}

func (p *Parser) decodeInline(q url.Values) (*parsedURL, error) {
	r := q.Get("r")
	if r == "" {
		return nil, validationErrorf("Missing payload")
	}
	clientID := q.Get("id")
	if clientID == "" {
		return nil, validationErrorf("Missing client ID")
	}
	text, err := decodeInlinePayload(r)
	if err != nil {
		return nil, err
	}
	req, err := decodeWireRequest(text)
	if err != nil {
		return nil, err
	}
	return &parsedURL{ClientID: clientID, Request: req, Origin: OriginDeepLink, TraceID: q.Get("trace_id")}, nil
}

func (p *Parser) decodeObjectStorage(ctx context.Context, q url.Values) (*parsedURL, error) {
	clientID := q.Get("id")
	if clientID == "" {
		return nil, validationErrorf("Missing client ID (id) required for decryption")
	}
	walletKeyHex := q.Get("pk")
	if walletKeyHex == "" {
		return nil, validationErrorf("Missing wallet private key (pk) required for decryption")
	}
	getURL := q.Get("get_url")
	if getURL == "" {
		return nil, validationErrorf("Missing get_url")
	}

	clientPub, err := decodeKey(clientID, "client public key")
	if err != nil {
		return nil, err
	}
	walletPriv, err := decodeKey(walletKeyHex, "wallet private key")
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(getURL)
	if err != nil || u.Host == "" {
		return nil, validationErrorf("Invalid get_url")
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return nil, validationErrorf("Invalid get_url: https is required")
	}

	payload, err := p.fetchObjectStorage(ctx, getURL)
	if err != nil {
		return nil, err
	}
	plain, err := openBox(payload, clientPub, walletPriv)
	if err != nil {
		return nil, err
	}
	req, err := decodeWireRequest(string(plain))
	if err != nil {
		return nil, err
	}
	return &parsedURL{ClientID: clientID, Request: req, Origin: OriginObjectStorage, TraceID: q.Get("trace_id")}, nil
}

func decodeKey(h, name string) (*[keySize]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(h))
	if err != nil {
		return nil, &ValidationError{Msg: "Invalid " + name + ": not hex", Err: err}
	}
	if len(raw) != keySize {
		return nil, validationErrorf("Invalid %s: expected %d bytes, got %d", name, keySize, len(raw))
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// openBox opens nonce[24] || box(ciphertext).
func openBox(payload []byte, clientPub, walletPriv *[keySize]byte) ([]byte, error) {
	if len(payload) <= nonceSize {
		return nil, validationErrorf("Encrypted payload too short: expected more than %d bytes, got %d", nonceSize, len(payload))
	}
	var nonce [nonceSize]byte
	copy(nonce[:], payload[:nonceSize])
	plain, ok := box.Open(nil, payload[nonceSize:], &nonce, clientPub, walletPriv)
	if !ok {
		return nil, validationErrorf("Failed to decrypt intent payload")
	}
	return plain, nil
}

// SealBox encrypts plain for the wallet key pair; it is the dApp side of openBox.
func SealBox(plain []byte, nonce *[nonceSize]byte, walletPub, clientPriv *[keySize]byte) []byte {
	return box.Seal(append([]byte{}, nonce[:]...), plain, nonce, walletPub, clientPriv)
}

func (p *Parser) fetchObjectStorage(ctx context.Context, getURL string) ([]byte, error) {
	resp, err := p.http.R().SetContext(ctx).Get(getURL)
	if err != nil {
		return nil, &NetworkError{Msg: "Failed to fetch intent payload", URL: getURL, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &NetworkError{Msg: "Failed to fetch intent payload", URL: getURL, StatusCode: resp.StatusCode(), Status: resp.Status()}
	}
	return extractCiphertext(resp.Header().Get("Content-Type"), resp.Body())
}

func extractCiphertext(contentType string, body []byte) ([]byte, error) {
	ct := strings.ToLower(contentType)
	if !strings.Contains(ct, "json") && !strings.HasPrefix(ct, "text/") {
		return body, nil
	}

	trimmed := bytes.TrimSpace(body)
	if gjson.ValidBytes(trimmed) {
		root := gjson.ParseBytes(trimmed)
		if root.IsObject() {
			for _, field := range envelopeFields {
				if v := root.Get(field); v.Type == gjson.String {
					return decodeAnyBase64(v.String())
				}
			}
		}
		if root.Type == gjson.String {
			return decodeAnyBase64(root.String())
		}
	}
	return decodeAnyBase64(string(trimmed))
}

func decodeAnyBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	return nil, validationErrorf("Invalid object storage payload: not base64")
}
