package handlers

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ton-connect/walletkit-go/pkg/events"
	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/ton/hash"
	"github.com/ton-connect/walletkit-go/pkg/tonconnect"
)

func TestSignDataHandler(t *testing.T) {
	boc := base64.StdEncoding.EncodeToString(cell.BeginCell().MustStoreUInt(7, 8).EndCell().ToBOC())
	schema := "message#_ text:string = Message;"

	testCases := []struct {
		name     string
		param    map[string]any
		wantType intent.SignDataType
		wantCRC  bool
		wantErr  []string
	}{
		{name: "text", param: map[string]any{"type": "text", "text": "hello"}, wantType: intent.SignDataText},
		{name: "binary", param: map[string]any{"type": "binary", "bytes": base64.StdEncoding.EncodeToString([]byte("raw"))}, wantType: intent.SignDataBinary},
		{name: "cell", param: map[string]any{"type": "cell", "schema": schema, "cell": boc}, wantType: intent.SignDataCell, wantCRC: true},
		{name: "unknown type", param: map[string]any{"type": "image"}, wantErr: []string{"Unsupported sign data type"}},
		{name: "binary not base64", param: map[string]any{"type": "binary", "bytes": "%%%"}, wantErr: []string{"bytes are not base64"}},
		{name: "cell not a boc", param: map[string]any{"type": "cell", "schema": schema, "cell": "AAAA"}, wantErr: []string{"invalid sign data cell"}},
		{
			name:    "network and payload errors together",
			param:   map[string]any{"type": "text", "network": "-3"},
			wantErr: []string{"Invalid network", "missing text"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			h := NewSignDataHandler(f.lggr, f.deps, f.opts)
			ev, rpcErr := h.Handle(context.Background(), bridgeRequest(t, tonconnect.MethodSignData, f.fullID, tc.param))
			if len(tc.wantErr) > 0 {
				require.NotNil(t, rpcErr)
				assert.Equal(t, int(tonconnect.BridgeErrorBadRequest), rpcErr.Error.Code)
				for _, m := range tc.wantErr {
					assert.Contains(t, rpcErr.Error.Message, m)
				}
				assert.Equal(t, []events.Type{events.TypeError}, f.types())
				return
			}
			require.Nil(t, rpcErr)
			assert.Equal(t, tc.wantType, ev.Payload.Type)
			if tc.wantCRC {
				require.NotNil(t, ev.SchemaCRC)
				assert.Equal(t, hash.SchemaCRC32(schema), *ev.SchemaCRC)
			} else {
				assert.Nil(t, ev.SchemaCRC)
			}
			assert.Equal(t, []events.Type{events.TypeSignDataRequest}, f.types())
		})
	}
}

func TestSignDataHandlerRequiresSigner(t *testing.T) {
	f := newFixture(t)
	_, rpcErr := NewSignDataHandler(f.lggr, f.deps, f.opts).Handle(context.Background(),
		bridgeRequest(t, tonconnect.MethodSignData, f.plainID, map[string]any{"type": "text", "text": "x"}))
	require.NotNil(t, rpcErr)
	assert.Equal(t, int(tonconnect.BridgeErrorUnknownApp), rpcErr.Error.Code)
}

func TestSignDataSign(t *testing.T) {
	f := newFixture(t)
	h := NewSignDataHandler(f.lggr, f.deps, f.opts)
	req := bridgeRequest(t, tonconnect.MethodSignData, f.fullID, map[string]any{"type": "text", "text": "hello"})
	req.DApp = &tonconnect.DAppInfo{Name: "Demo", URL: "https://demo.example/app"}

	ev, rpcErr := h.Handle(context.Background(), req)
	require.Nil(t, rpcErr)

	res, err := h.Sign(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, "demo.example", res.Domain)
	assert.Equal(t, testNow.Unix(), res.Timestamp)
	assert.Equal(t, f.full.addr.StringRaw(), res.Address)

	digest, err := tonconnect.SignDataHash(ev.Payload, f.full.addr, "demo.example", testNow.Unix())
	require.NoError(t, err)
	sig, err := base64.StdEncoding.DecodeString(res.Signature)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(f.full.key.Public().(ed25519.PublicKey), digest, sig))
}
