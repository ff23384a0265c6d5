package vm

import (
	"crypto/ed25519"
	"fmt"

	"github.com/iotaledger/hive.go/serializer/v2"
	"github.com/minio/blake2b-simd"
	"github.com/mr-tron/base58"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
)

const (
	maxAccountMetas = 64
	maxSignatures   = 16
	maxInstruction  = 1232
)

const (
	metaSigner   = 1 << 0
	metaWritable = 1 << 1
)

// Instruction invokes one program with raw instruction data over an ordered account list.
type Instruction struct {
	Program  abi.Address   `json:"program"`
	Accounts []AccountMeta `json:"accounts"`
	Data     []byte        `json:"data"`
}

// Signature is an ed25519 signature of the instruction message by one signer.
type Signature struct {
	Signer    abi.Address `json:"signer"`
	Signature []byte      `json:"signature"`
}

// Transaction is a signed instruction.
type Transaction struct {
	Instruction Instruction `json:"instruction"`
	Signatures  []Signature `json:"signatures"`
}

// TxID identifies a transaction by the blake2b-256 digest of its wire encoding.
type TxID [32]byte

func (id TxID) String() string {
	return base58.Encode(id[:])
}

func (id TxID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TxID) UnmarshalText(text []byte) error {
	raw, err := base58.Decode(string(text))
	if err != nil {
		return xerrors.Errorf("failed to decode transaction id %q: %w", text, err)
	}
	if len(raw) != len(id) {
		return xerrors.Errorf("transaction id has length %d", len(raw))
	}
	copy(id[:], raw)
	return nil
}

// NewTransaction signs the instruction with every given key.
func NewTransaction(ins Instruction, signers ...ed25519.PrivateKey) (*Transaction, error) {
	msg, err := ins.MessageBytes()
	if err != nil {
		return nil, err
	}
	tx := &Transaction{Instruction: ins}
	for _, key := range signers {
		pub, ok := key.Public().(ed25519.PublicKey)
		if !ok {
			return nil, xerrors.Errorf("unexpected public key type %T", key.Public())
		}
		signer, err := abi.NewAddress(pub)
		if err != nil {
			return nil, err
		}
		tx.Signatures = append(tx.Signatures, Signature{Signer: signer, Signature: ed25519.Sign(key, msg)})
	}
	return tx, nil
}

// MessageBytes is the signed part of a transaction.
func (ins *Instruction) MessageBytes() ([]byte, error) {
	if len(ins.Accounts) > maxAccountMetas {
		return nil, xerrors.Errorf("%d accounts exceed %d", len(ins.Accounts), maxAccountMetas)
	}
	if len(ins.Data) > maxInstruction {
		return nil, xerrors.Errorf("instruction data of %d bytes exceeds %d", len(ins.Data), maxInstruction)
	}
	s := serializer.NewSerializer().
		WriteBytes(ins.Program[:], txErr("program")).
		WriteNum(uint8(len(ins.Accounts)), txErr("account count"))
	for i, m := range ins.Accounts {
		var flags uint8
		if m.IsSigner {
			flags |= metaSigner
		}
		if m.IsWritable {
			flags |= metaWritable
		}
		s.WriteBytes(m.Key[:], txErr(fmt.Sprintf("account %d", i))).
			WriteNum(flags, txErr(fmt.Sprintf("account %d flags", i)))
	}
	s.WriteNum(uint16(len(ins.Data)), txErr("data length")).
		WriteBytes(ins.Data, txErr("data"))
	return s.Serialize()
}

// Bytes is the wire encoding: the message followed by the signatures.
func (tx *Transaction) Bytes() ([]byte, error) {
	if len(tx.Signatures) > maxSignatures {
		return nil, xerrors.Errorf("%d signatures exceed %d", len(tx.Signatures), maxSignatures)
	}
	msg, err := tx.Instruction.MessageBytes()
	if err != nil {
		return nil, err
	}
	s := serializer.NewSerializer().
		WriteBytes(msg, txErr("message")).
		WriteNum(uint8(len(tx.Signatures)), txErr("signature count"))
	for i, sig := range tx.Signatures {
		if len(sig.Signature) != ed25519.SignatureSize {
			return nil, xerrors.Errorf("signature %d has length %d", i, len(sig.Signature))
		}
		s.WriteBytes(sig.Signer[:], txErr(fmt.Sprintf("signer %d", i))).
			WriteBytes(sig.Signature, txErr(fmt.Sprintf("signature %d", i)))
	}
	return s.Serialize()
}

// ID hashes the wire encoding.
func (tx *Transaction) ID() (TxID, error) {
	b, err := tx.Bytes()
	if err != nil {
		return TxID{}, err
	}
	return blake2b.Sum256(b), nil
}

// DecodeTransaction parses the wire encoding produced by Bytes.
func DecodeTransaction(data []byte) (*Transaction, error) {
	var (
		tx      Transaction
		ins     = &tx.Instruction
		nMetas  uint8
		dataLen uint16
		nSigs   uint8
	)
	d := serializer.NewDeserializer(data).
		ReadBytesInPlace(ins.Program[:], txErr("program")).
		ReadNum(&nMetas, txErr("account count"))
	if _, err := d.Done(); err != nil {
		return nil, err
	}
	ins.Accounts = make([]AccountMeta, nMetas)
	for i := range ins.Accounts {
		var flags uint8
		d.ReadBytesInPlace(ins.Accounts[i].Key[:], txErr(fmt.Sprintf("account %d", i))).
			ReadNum(&flags, txErr(fmt.Sprintf("account %d flags", i)))
		ins.Accounts[i].IsSigner = flags&metaSigner != 0
		ins.Accounts[i].IsWritable = flags&metaWritable != 0
	}
	d.ReadNum(&dataLen, txErr("data length"))
	if _, err := d.Done(); err != nil {
		return nil, err
	}
	if int(dataLen) > maxInstruction {
		return nil, xerrors.Errorf("instruction data of %d bytes exceeds %d", dataLen, maxInstruction)
	}
	ins.Data = make([]byte, dataLen)
	d.ReadBytesInPlace(ins.Data, txErr("data")).
		ReadNum(&nSigs, txErr("signature count"))
	if _, err := d.Done(); err != nil {
		return nil, err
	}
	tx.Signatures = make([]Signature, nSigs)
	for i := range tx.Signatures {
		tx.Signatures[i].Signature = make([]byte, ed25519.SignatureSize)
		d.ReadBytesInPlace(tx.Signatures[i].Signer[:], txErr(fmt.Sprintf("signer %d", i))).
			ReadBytesInPlace(tx.Signatures[i].Signature, txErr(fmt.Sprintf("signature %d", i)))
	}
	consumed, err := d.Done()
	if err != nil {
		return nil, err
	}
	if consumed != len(data) {
		return nil, xerrors.Errorf("%d trailing bytes after transaction", len(data)-consumed)
	}
	return &tx, nil
}

// verify checks every signature and returns the set of keys that signed.
func (tx *Transaction) verify() (map[abi.Address]bool, error) {
	msg, err := tx.Instruction.MessageBytes()
	if err != nil {
		return nil, err
	}
	signed := make(map[abi.Address]bool, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if !ed25519.Verify(ed25519.PublicKey(sig.Signer[:]), msg, sig.Signature) {
			return nil, xerrors.Errorf("invalid signature by %v", sig.Signer)
		}
		signed[sig.Signer] = true
	}
	for _, m := range tx.Instruction.Accounts {
		if m.IsSigner && !signed[m.Key] {
			return nil, xerrors.Errorf("missing signature of %v", m.Key)
		}
	}
	return signed, nil
}

func txErr(field string) serializer.ErrProducer {
	return func(err error) error {
		return xerrors.Errorf("unable to serialize transaction %s: %w", field, err)
	}
}
