package vesting

import (
	"fmt"

	"github.com/iotaledger/hive.go/serializer/v2"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
)

// Opcode is the first byte of every instruction.
type Opcode uint8

const (
	OpCreate     Opcode = 0x00
	OpFund       Opcode = 0x01
	OpDistribute Opcode = 0x02
)

func (o Opcode) String() string {
	switch o {
	case OpCreate:
		return "Create"
	case OpFund:
		return "Fund"
	case OpDistribute:
		return "Distribute"
	default:
		return fmt.Sprintf("Opcode(%#02x)", uint8(o))
	}
}

const (
	// Create: opcode, count, cliff, vesting, tge, nonce.
	createHeaderSize = 1 + 1 + 8 + 8 + 2 + 8
	// Create: wallet, basis points.
	createRecipientSize = abi.AddressLength + 2
	fundSize            = 1 + 8
	distributeSize      = 1
)

// CreateInstructionSize is the exact length of a Create instruction with n recipients.
func CreateInstructionSize(n int) int {
	return createHeaderSize + n*createRecipientSize
}

type CreateParams struct {
	Recipients     []RecipientShare
	CliffPeriod    abi.Duration
	VestingPeriod  abi.Duration
	TGEBasisPoints abi.BasisPoints
	Nonce          uint64
}

type FundParams struct {
	Amount abi.TokenAmount
}

type DistributeParams struct{}

// Instruction is a decoded instruction. Exactly one of the parameter fields is set, matching Op.
type Instruction struct {
	Op         Opcode
	Create     *CreateParams
	Fund       *FundParams
	Distribute *DistributeParams
}

// DecodeInstruction parses raw instruction data. Unknown opcodes, truncated data and trailing
// bytes are all rejected.
func DecodeInstruction(data []byte) (*Instruction, error) {
	if len(data) == 0 {
		return nil, newCodedError(ErrInvalidInstructionData, "empty instruction")
	}
	op := Opcode(data[0])
	switch op {
	case OpCreate:
		p, err := decodeCreate(data)
		if err != nil {
			return nil, err
		}
		return &Instruction{Op: op, Create: p}, nil
	case OpFund:
		p, err := decodeFund(data)
		if err != nil {
			return nil, err
		}
		return &Instruction{Op: op, Fund: p}, nil
	case OpDistribute:
		if len(data) != distributeSize {
			return nil, newCodedError(ErrInvalidInstructionData, "distribute length %d, expected %d", len(data), distributeSize)
		}
		return &Instruction{Op: op, Distribute: &DistributeParams{}}, nil
	default:
		return nil, newCodedError(ErrInvalidInstructionData, "unknown opcode %#02x", data[0])
	}
}

func decodeCreate(data []byte) (*CreateParams, error) {
	if len(data) < createHeaderSize {
		return nil, newCodedError(ErrInvalidInstructionData, "create length %d shorter than header %d", len(data), createHeaderSize)
	}
	count := int(data[1])
	if count == 0 || count > MaxRecipients {
		return nil, newCodedError(ErrInvalidRecipientCount, "recipient count %d not in [1, %d]", count, MaxRecipients)
	}
	if len(data) != CreateInstructionSize(count) {
		return nil, newCodedError(ErrInvalidInstructionData, "create length %d, expected %d for %d recipients",
			len(data), CreateInstructionSize(count), count)
	}

	var (
		op, n          uint8
		cliff, vesting int64
		p              CreateParams
	)
	d := serializer.NewDeserializer(data).
		ReadNum(&op, fieldErr("opcode")).
		ReadNum(&n, fieldErr("recipient count")).
		ReadNum(&cliff, fieldErr("cliff period")).
		ReadNum(&vesting, fieldErr("vesting period")).
		ReadNum(&p.TGEBasisPoints, fieldErr("tge basis points")).
		ReadNum(&p.Nonce, fieldErr("nonce"))

	p.Recipients = make([]RecipientShare, count)
	var sum uint32
	for i := range p.Recipients {
		r := &p.Recipients[i]
		d.ReadBytesInPlace(r.Wallet[:], fieldErr(fmt.Sprintf("recipient %d wallet", i))).
			ReadNum(&r.BasisPoints, fieldErr(fmt.Sprintf("recipient %d basis points", i)))
		sum += uint32(r.BasisPoints)
	}
	consumed, err := d.Done()
	if err != nil {
		return nil, newCodedError(ErrInvalidInstructionData, "%v", err)
	}
	if consumed != len(data) {
		return nil, newCodedError(ErrInvalidInstructionData, "%d trailing bytes", len(data)-consumed)
	}
	if sum != uint32(abi.BasisPointsTotal) {
		return nil, newCodedError(ErrInvalidTotalBasisPoints, "recipient basis points sum to %d", sum)
	}
	p.CliffPeriod = abi.Duration(cliff)
	p.VestingPeriod = abi.Duration(vesting)
	return &p, nil
}

func decodeFund(data []byte) (*FundParams, error) {
	if len(data) != fundSize {
		return nil, newCodedError(ErrInvalidInstructionData, "fund length %d, expected %d", len(data), fundSize)
	}
	var op uint8
	var p FundParams
	if _, err := serializer.NewDeserializer(data).
		ReadNum(&op, fieldErr("opcode")).
		ReadNum(&p.Amount, fieldErr("amount")).
		Done(); err != nil {
		return nil, newCodedError(ErrInvalidInstructionData, "%v", err)
	}
	return &p, nil
}

// Bytes encodes a Create instruction. No validation is applied, so invalid parameter sets can be
// encoded for submission.
func (p *CreateParams) Bytes() ([]byte, error) {
	s := serializer.NewSerializer().
		WriteNum(uint8(OpCreate), fieldErr("opcode")).
		WriteNum(uint8(len(p.Recipients)), fieldErr("recipient count")).
		WriteNum(int64(p.CliffPeriod), fieldErr("cliff period")).
		WriteNum(int64(p.VestingPeriod), fieldErr("vesting period")).
		WriteNum(p.TGEBasisPoints, fieldErr("tge basis points")).
		WriteNum(p.Nonce, fieldErr("nonce"))
	for i, r := range p.Recipients {
		s.WriteBytes(r.Wallet[:], fieldErr(fmt.Sprintf("recipient %d wallet", i))).
			WriteNum(r.BasisPoints, fieldErr(fmt.Sprintf("recipient %d basis points", i)))
	}
	return s.Serialize()
}

func (p *FundParams) Bytes() ([]byte, error) {
	return serializer.NewSerializer().
		WriteNum(uint8(OpFund), fieldErr("opcode")).
		WriteNum(p.Amount, fieldErr("amount")).
		Serialize()
}

func (p *DistributeParams) Bytes() ([]byte, error) {
	return []byte{uint8(OpDistribute)}, nil
}

func fieldErr(field string) serializer.ErrProducer {
	return func(err error) error {
		return xerrors.Errorf("unable to serialize %s: %w", field, err)
	}
}
