package tonconnect

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
)

const (
	proofItemPrefix   = "ton-proof-item-v2/"
	proofSignaturePre = "ton-connect"
)

type Domain struct {
	LengthBytes uint32 `json:"lengthBytes"`
	Value       string `json:"value"`
}

// Proof is the ton_proof item of a connect reply.
type Proof struct {
	Timestamp int64  `json:"timestamp"`
	Domain    Domain `json:"domain"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
	StateInit string `json:"stateInit,omitempty"`
}

type ProofReply struct {
	Name  string `json:"name"`
	Proof Proof  `json:"proof"`
}

// ProofMessage is the verifier-side view of a proof. The `timstamp` spelling
// is what proof verifiers consuming this structure read.
type ProofMessage struct {
	Workchain int32  `json:"workchain"`
	Address   []byte `json:"address"`
	Timstamp  int64  `json:"timstamp"`
	Domain    Domain `json:"domain"`
	Signature []byte `json:"signature"`
	Payload   string `json:"payload"`
	StateInit string `json:"stateInit"`
}

func NewProofMessage(addr *address.Address, domain string, timestamp int64, payload, stateInit string) *ProofMessage {
	return &ProofMessage{
		Workchain: addr.Workchain(),
		Address:   addr.Data(),
		Timstamp:  timestamp,
		Domain:    Domain{LengthBytes: uint32(len(domain)), Value: domain},
		Payload:   payload,
		StateInit: stateInit,
	}
}

// ProofMessageFromReply maps a wallet reply for rawAddress into a ProofMessage.
func ProofMessageFromReply(rawAddress string, reply ProofReply) (*ProofMessage, error) {
	addr, err := address.ParseAddr(rawAddress)
	if err != nil {
		if addr, err = address.ParseRawAddr(rawAddress); err != nil {
			return nil, fmt.Errorf("invalid proof address: %w", err)
		}
	}
	sig, err := base64.StdEncoding.DecodeString(reply.Proof.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid proof signature encoding: %w", err)
	}
	if uint32(len(reply.Proof.Domain.Value)) != reply.Proof.Domain.LengthBytes {
		return nil, errors.New("proof domain length mismatch")
	}
	m := NewProofMessage(addr, reply.Proof.Domain.Value, reply.Proof.Timestamp, reply.Proof.Payload, reply.Proof.StateInit)
	m.Signature = sig
	return m, nil
}

// SigningMessage returns
// "ton-proof-item-v2/" | workchain(be32) | hash | domain_len(le32) | domain | timestamp(le64) | payload.
func (m *ProofMessage) SigningMessage() []byte {
	buf := make([]byte, 0, len(proofItemPrefix)+4+len(m.Address)+4+len(m.Domain.Value)+8+len(m.Payload))
	buf = append(buf, proofItemPrefix...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(m.Workchain))
	buf = append(buf, m.Address...)
	buf = binary.LittleEndian.AppendUint32(buf, m.Domain.LengthBytes)
	buf = append(buf, m.Domain.Value...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.Timstamp))
	buf = append(buf, m.Payload...)
	return buf
}

// SigningHash is sha256(0xffff | "ton-connect" | sha256(SigningMessage())).
func (m *ProofMessage) SigningHash() []byte {
	inner := sha256.Sum256(m.SigningMessage())
	full := make([]byte, 0, 2+len(proofSignaturePre)+len(inner))
	full = append(full, 0xff, 0xff)
	full = append(full, proofSignaturePre...)
	full = append(full, inner[:]...)
	h := sha256.Sum256(full)
	return h[:]
}

func (m *ProofMessage) Sign(key ed25519.PrivateKey) {
	m.Signature = ed25519.Sign(key, m.SigningHash())
}

func (m *ProofMessage) Verify(pub ed25519.PublicKey) bool {
	return len(m.Signature) == ed25519.SignatureSize && ed25519.Verify(pub, m.SigningHash(), m.Signature)
}

// Reply renders the message as the ton_proof item sent back to the dApp.
func (m *ProofMessage) Reply() ProofReply {
	return ProofReply{
		Name: "ton_proof",
		Proof: Proof{
			Timestamp: m.Timstamp,
			Domain:    m.Domain,
			Signature: base64.StdEncoding.EncodeToString(m.Signature),
			Payload:   m.Payload,
			StateInit: m.StateInit,
		},
	}
}
