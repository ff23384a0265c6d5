package vesting

import (
	"github.com/iotaledger/hive.go/core/marshalutil"
	"golang.org/x/xerrors"

	"github.com/ondrix/vesting-actors/actors/abi"
)

const (
	// HeaderSize is the encoded size of the fields preceding the recipient table.
	HeaderSize = 1 + 32 + 32 + 32 + 8 + 8 + 8 + 8 + 2 + 1 + 1 + 8
	// RecipientSize is the encoded size of one recipient slot.
	RecipientSize = 32 + 2 + 8 + 8
	// RecordSize is the exact length of an encoded vesting record.
	RecordSize = HeaderSize + MaxRecipients*RecipientSize
)

// Bytes encodes the record in its fixed little-endian layout.
func (st *State) Bytes() []byte {
	m := marshalutil.New(RecordSize)
	m.WriteUint8(boolByte(st.IsInitialized))
	m.WriteBytes(st.Creator[:])
	m.WriteBytes(st.Mint[:])
	m.WriteBytes(st.Vault[:])
	m.WriteInt64(int64(st.StartTime))
	m.WriteUint64(st.TotalAmount)
	m.WriteInt64(int64(st.Schedule.CliffPeriod))
	m.WriteInt64(int64(st.Schedule.VestingPeriod))
	m.WriteUint16(st.Schedule.TGEBasisPoints)
	m.WriteUint8(st.RecipientCount)
	m.WriteUint8(boolByte(st.IsFinalized))
	m.WriteInt64(int64(st.LastDistributionTime))
	for _, r := range st.Recipients {
		m.WriteBytes(r.Wallet[:])
		m.WriteUint16(r.BasisPoints)
		m.WriteUint64(r.ClaimedAmount)
		m.WriteInt64(int64(r.LastClaimTime))
	}
	return m.Bytes()
}

func (st *State) MarshalBinary() ([]byte, error) {
	return st.Bytes(), nil
}

func (st *State) UnmarshalBinary(data []byte) error {
	decoded, err := UnpackState(data)
	if err != nil {
		return err
	}
	*st = *decoded
	return nil
}

// UnpackState decodes a vesting record. Any length other than RecordSize is rejected.
func UnpackState(data []byte) (*State, error) {
	if len(data) != RecordSize {
		return nil, xerrors.Errorf("record length %d, expected %d", len(data), RecordSize)
	}
	r := &recordReader{m: marshalutil.New(data)}

	var st State
	st.IsInitialized = r.bool("isInitialized")
	r.address("creator", &st.Creator)
	r.address("mint", &st.Mint)
	r.address("vault", &st.Vault)
	st.StartTime = abi.Timestamp(r.int64("startTime"))
	st.TotalAmount = r.uint64("totalAmount")
	st.Schedule.CliffPeriod = abi.Duration(r.int64("cliffPeriod"))
	st.Schedule.VestingPeriod = abi.Duration(r.int64("vestingPeriod"))
	st.Schedule.TGEBasisPoints = r.uint16("tgeBasisPoints")
	st.RecipientCount = r.uint8("recipientCount")
	st.IsFinalized = r.bool("isFinalized")
	st.LastDistributionTime = abi.Timestamp(r.int64("lastDistributionTime"))
	for i := range st.Recipients {
		slot := &st.Recipients[i]
		r.address("wallet", &slot.Wallet)
		slot.BasisPoints = r.uint16("basisPoints")
		slot.ClaimedAmount = r.uint64("claimedAmount")
		slot.LastClaimTime = abi.Timestamp(r.int64("lastClaimTime"))
	}
	if r.err != nil {
		return nil, r.err
	}
	if st.RecipientCount > MaxRecipients {
		return nil, xerrors.Errorf("recipient count %d exceeds maximum %d", st.RecipientCount, MaxRecipients)
	}
	return &st, nil
}

// recordReader keeps the first error so field reads can be written in sequence.
type recordReader struct {
	m   *marshalutil.MarshalUtil
	err error
}

func (r *recordReader) fail(field string, err error) {
	if r.err == nil {
		r.err = xerrors.Errorf("failed to read %s at offset %d: %w", field, r.m.ReadOffset(), err)
	}
}

func (r *recordReader) address(field string, out *abi.Address) {
	if r.err != nil {
		return
	}
	raw, err := r.m.ReadBytes(abi.AddressLength)
	if err != nil {
		r.fail(field, err)
		return
	}
	copy(out[:], raw)
}

func (r *recordReader) bool(field string) bool {
	v := r.uint8(field)
	if v > 1 && r.err == nil {
		r.err = xerrors.Errorf("invalid %s flag %d", field, v)
	}
	return v == 1
}

func (r *recordReader) uint8(field string) uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.m.ReadUint8()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *recordReader) uint16(field string) uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.m.ReadUint16()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *recordReader) uint64(field string) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.m.ReadUint64()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *recordReader) int64(field string) int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.m.ReadInt64()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
