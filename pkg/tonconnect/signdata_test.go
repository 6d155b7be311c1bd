package tonconnect

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ton-connect/walletkit-go/pkg/intent"
)

func TestSignDataHashText(t *testing.T) {
	addr := address.NewAddress(0, 0, bytes.Repeat([]byte{0xab}, 32))
	got, err := SignDataHash(intent.SignDataPayload{Type: intent.SignDataText, Text: "hi"}, addr, "app.example", 1700000000)
	require.NoError(t, err)

	var buf []byte
	buf = append(buf, 0xff, 0xff)
	buf = append(buf, "ton-connect/sign-data/"...)
	buf = binary.BigEndian.AppendUint32(buf, 0)
	buf = append(buf, bytes.Repeat([]byte{0xab}, 32)...)
	buf = binary.BigEndian.AppendUint32(buf, 11)
	buf = append(buf, "app.example"...)
	buf = binary.BigEndian.AppendUint64(buf, 1700000000)
	buf = append(buf, "txt"...)
	buf = binary.BigEndian.AppendUint32(buf, 2)
	buf = append(buf, "hi"...)
	want := sha256.Sum256(buf)
	assert.Equal(t, want[:], got)
}

func TestSignDataHashKinds(t *testing.T) {
	addr := address.NewAddress(0, 0, bytes.Repeat([]byte{0x01}, 32))
	payloadCell := cell.BeginCell().MustStoreUInt(42, 32).EndCell()
	bocB64 := base64.StdEncoding.EncodeToString(payloadCell.ToBOC())

	testCases := []struct {
		name    string
		payload intent.SignDataPayload
		wantErr bool
	}{
		{name: "binary", payload: intent.SignDataPayload{Type: intent.SignDataBinary, Bytes: base64.StdEncoding.EncodeToString([]byte{1, 2, 3})}},
		{name: "binary not base64", payload: intent.SignDataPayload{Type: intent.SignDataBinary, Bytes: "***"}, wantErr: true},
		{name: "cell", payload: intent.SignDataPayload{Type: intent.SignDataCell, Schema: "message#_ text:string = Message;", Cell: bocB64}},
		{name: "cell missing", payload: intent.SignDataPayload{Type: intent.SignDataCell, Schema: "x"}, wantErr: true},
		{name: "unknown", payload: intent.SignDataPayload{Type: "image"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := SignDataHash(tc.payload, addr, "app.example", 1)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, h, 32)
		})
	}
}

func TestSignDataHashDependsOnDomain(t *testing.T) {
	addr := address.NewAddress(0, 0, bytes.Repeat([]byte{0x01}, 32))
	p := intent.SignDataPayload{Type: intent.SignDataText, Text: "same"}
	a, err := SignDataHash(p, addr, "a.example", 1)
	require.NoError(t, err)
	b, err := SignDataHash(p, addr, "b.example", 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
