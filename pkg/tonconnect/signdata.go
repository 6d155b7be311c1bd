package tonconnect

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"github.com/ton-connect/walletkit-go/pkg/intent"
	"github.com/ton-connect/walletkit-go/pkg/ton/hash"
)

const (
	signDataPrefix = "ton-connect/sign-data/"
	// message#75569022 schema_hash:uint32 timestamp:uint64 userAddress:MsgAddress
	// {n:#} appDomain:^(SnakeData ~n) payload:^Cell = Message;
	signDataCellTag = 0x75569022
)

// SignDataHash returns the digest a wallet signs for a signData request.
func SignDataHash(p intent.SignDataPayload, addr *address.Address, domain string, timestamp int64) ([]byte, error) {
	switch p.Type {
	case intent.SignDataText:
		return binaryDigest(addr, domain, timestamp, "txt", []byte(p.Text)), nil
	case intent.SignDataBinary:
		raw, err := base64.StdEncoding.DecodeString(p.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid sign data bytes: %w", err)
		}
		return binaryDigest(addr, domain, timestamp, "bin", raw), nil
	case intent.SignDataCell:
		return cellDigest(p, addr, domain, timestamp)
	default:
		return nil, fmt.Errorf("unsupported sign data type %q", p.Type)
	}
}

// 0xffff | prefix | workchain(be32) | hash | domain_len(be32) | domain | timestamp(be64) | kind | len(be32) | payload
func binaryDigest(addr *address.Address, domain string, timestamp int64, kind string, payload []byte) []byte {
	buf := make([]byte, 0, 2+len(signDataPrefix)+4+32+4+len(domain)+8+len(kind)+4+len(payload))
	buf = append(buf, 0xff, 0xff)
	buf = append(buf, signDataPrefix...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(addr.Workchain()))
	buf = append(buf, addr.Data()...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(domain)))
	buf = append(buf, domain...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	buf = append(buf, kind...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	h := sha256.Sum256(buf)
	return h[:]
}

func cellDigest(p intent.SignDataPayload, addr *address.Address, domain string, timestamp int64) ([]byte, error) {
	payload, err := intent.ParseBOC(p.Cell, "sign data cell")
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("empty sign data cell")
	}
	domainCell := cell.BeginCell()
	if err := domainCell.StoreStringSnake(domain); err != nil {
		return nil, fmt.Errorf("failed to store domain: %w", err)
	}
	msg := cell.BeginCell().
		MustStoreUInt(signDataCellTag, 32).
		MustStoreUInt(uint64(hash.SchemaCRC32(p.Schema)), 32).
		MustStoreUInt(uint64(timestamp), 64).
		MustStoreAddr(addr).
		MustStoreRef(domainCell.EndCell()).
		MustStoreRef(payload).
		EndCell()
	return msg.Hash(), nil
}
