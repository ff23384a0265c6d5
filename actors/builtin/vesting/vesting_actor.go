package vesting

import (
	"github.com/filecoin-project/go-bitfield"
	rtt "github.com/filecoin-project/go-state-types/rt"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin"
	"github.com/ondrix/vesting-actors/actors/builtin/token"
	"github.com/ondrix/vesting-actors/actors/runtime"
)

// ProgramID is the address the vesting program is deployed at.
var ProgramID = abi.MustParseAddress("32Qb1ezHGmmSNHtaodnKqdCoex2L2dTgjutsnvAuZ9Gy")

type Actor struct{}

func (a Actor) Exports() []interface{} {
	return []interface{}{
		OpCreate:     a.Create,
		OpFund:       a.Fund,
		OpDistribute: a.Distribute,
	}
}

var _ runtime.Program = Actor{}

// Invoke decodes raw instruction data and dispatches to the matching transition.
func (a Actor) Invoke(rt runtime.Runtime, data []byte) runtime.CBORMarshaler {
	ins, err := DecodeInstruction(data)
	if err != nil {
		rt.Abortf(CodeOf(err, ErrInvalidInstructionData), "failed to decode instruction: %v", err)
	}
	span := rt.StartSpan(ins.Op.String())
	defer span.End()
	switch ins.Op {
	case OpCreate:
		return a.Create(rt, ins.Create)
	case OpFund:
		return a.Fund(rt, ins.Fund)
	default:
		return a.Distribute(rt, ins.Distribute)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Create
////////////////////////////////////////////////////////////////////////////////

// Accounts: creator [signer, writable], record [writable], vault [writable], mint, system program,
// token program.
func (a Actor) Create(rt runtime.Runtime, params *CreateParams) *runtime.EmptyReturn {
	accounts := builtin.RequireAccounts(rt, 6, ErrInvalidAccountCount)
	creator, record, vault, mint := accounts[0], accounts[1], accounts[2], accounts[3]

	if !creator.IsSigner {
		rt.Abortf(ErrNotSigner, "creator %v must sign", creator.Key)
	}
	builtin.RequireProgram(rt, accounts[4], builtin.SystemProgramID, ErrInvalidSystemProgram, "system")
	builtin.RequireProgram(rt, accounts[5], builtin.TokenProgramID, ErrInvalidTokenProgram, "token")

	program := rt.ProgramID()
	addrs, err := DeriveAddresses(program, creator.Key, params.Nonce)
	builtin.RequireNoErr(rt, err, ErrInvalidDerivedAddress, "failed to derive addresses for nonce %d", params.Nonce)
	if record.Key != addrs.Record {
		rt.Abortf(ErrInvalidDerivedAddress, "record %v does not match derived address %v", record.Key, addrs.Record)
	}
	if vault.Key != addrs.Vault {
		rt.Abortf(ErrInvalidDerivedAddress, "vault %v does not match derived address %v", vault.Key, addrs.Vault)
	}
	requireWritable(rt, creator, record, vault)
	requireUnallocated(rt, record)
	requireUnallocated(rt, vault)

	if mint.Owner != builtin.TokenProgramID {
		rt.Abortf(ErrInvalidMint, "mint %v is owned by %v", mint.Key, mint.Owner)
	}
	if m, err := token.UnpackMint(mint.Data); err != nil || !m.IsInitialized {
		rt.Abortf(ErrInvalidMint, "account %v is not an initialized mint", mint.Key)
	}

	schedule := Schedule{
		CliffPeriod:    params.CliffPeriod,
		VestingPeriod:  params.VestingPeriod,
		TGEBasisPoints: params.TGEBasisPoints,
	}
	validateSchedule(rt, schedule)
	validateRecipients(rt, params.Recipients)

	code := rt.CreateAccount(creator.Key, addrs.Record, RecordSize, program,
		RecordSeeds(creator.Key, params.Nonce, addrs.RecordBump))
	builtin.RequireSuccess(rt, code, "failed to allocate record %v", addrs.Record)

	code = rt.CreateAccount(creator.Key, addrs.Vault, token.AccountSize, builtin.TokenProgramID,
		VaultSeeds(addrs.Record, addrs.VaultBump))
	builtin.RequireSuccess(rt, code, "failed to allocate vault %v", addrs.Vault)

	code = rt.InitializeTokenAccount(addrs.Vault, mint.Key, addrs.Authority)
	builtin.RequireSuccess(rt, code, "failed to initialize vault %v", addrs.Vault)

	st := ConstructState(creator.Key, mint.Key, addrs.Vault, schedule, params.Recipients)
	rt.WriteAccountData(addrs.Record, st.Bytes())

	rt.Log(rtt.INFO, "created vesting %v for %d recipients, cliff %d vesting %d tge %d",
		addrs.Record, len(params.Recipients), params.CliffPeriod, params.VestingPeriod, params.TGEBasisPoints)
	return nil
}

func validateSchedule(rt runtime.Runtime, s Schedule) {
	if s.CliffPeriod < 0 || s.VestingPeriod <= 0 {
		rt.Abortf(ErrInvalidVestingPeriod, "invalid periods: cliff %d, vesting %d", s.CliffPeriod, s.VestingPeriod)
	}
	if s.VestingPeriod > MaxVestingDuration {
		rt.Abortf(ErrVestingDurationTooLong, "vesting period %d exceeds %d", s.VestingPeriod, MaxVestingDuration)
	}
	if s.CliffPeriod > MaxCliffDuration {
		rt.Abortf(ErrCliffDurationTooLong, "cliff period %d exceeds %d", s.CliffPeriod, MaxCliffDuration)
	}
	if s.CliffPeriod >= s.VestingPeriod {
		rt.Abortf(ErrCliffExceedsVesting, "cliff period %d must be shorter than vesting period %d", s.CliffPeriod, s.VestingPeriod)
	}
	if s.TGEBasisPoints > abi.BasisPointsTotal {
		rt.Abortf(ErrInvalidBasisPoints, "tge basis points %d exceed %d", s.TGEBasisPoints, abi.BasisPointsTotal)
	}
}

func validateRecipients(rt runtime.Runtime, recipients []RecipientShare) {
	if len(recipients) == 0 || len(recipients) > MaxRecipients {
		rt.Abortf(ErrInvalidRecipientCount, "recipient count %d not in [1, %d]", len(recipients), MaxRecipients)
	}
	seen := make(map[abi.Address]struct{}, len(recipients))
	var sum uint32
	for i, r := range recipients {
		if r.Wallet.IsZero() {
			rt.Abortf(ErrInvalidRecipientWallet, "recipient %d has no wallet", i)
		}
		if r.BasisPoints == 0 {
			rt.Abortf(ErrZeroBasisPoints, "recipient %d has zero basis points", i)
		}
		if r.BasisPoints > abi.BasisPointsTotal {
			rt.Abortf(ErrInvalidBasisPoints, "recipient %d basis points %d exceed %d", i, r.BasisPoints, abi.BasisPointsTotal)
		}
		if _, ok := seen[r.Wallet]; ok {
			rt.Abortf(ErrDuplicateRecipient, "duplicate recipient %v", r.Wallet)
		}
		seen[r.Wallet] = struct{}{}
		sum += uint32(r.BasisPoints)
	}
	if sum != uint32(abi.BasisPointsTotal) {
		rt.Abortf(ErrInvalidTotalBasisPoints, "recipient basis points sum to %d, expected %d", sum, abi.BasisPointsTotal)
	}
}

////////////////////////////////////////////////////////////////////////////////
// Fund
////////////////////////////////////////////////////////////////////////////////

// Accounts: funder [signer], source token account [writable], vault [writable], record [writable],
// token program.
func (a Actor) Fund(rt runtime.Runtime, params *FundParams) *runtime.EmptyReturn {
	accounts := builtin.RequireAccounts(rt, 5, ErrInvalidAccountCount)
	funder, source, vault, record := accounts[0], accounts[1], accounts[2], accounts[3]

	if !funder.IsSigner {
		rt.Abortf(ErrNotSigner, "funder %v must sign", funder.Key)
	}
	builtin.RequireProgram(rt, accounts[4], builtin.TokenProgramID, ErrInvalidTokenProgram, "token")
	if params.Amount == 0 {
		rt.Abortf(ErrInvalidAmount, "fund amount must be positive")
	}

	st := loadState(rt, record)
	if st.IsFunded() {
		rt.Abortf(ErrAlreadyFunded, "vesting %v already funded at %v", record.Key, st.StartTime)
	}
	if st.IsFinalized {
		rt.Abortf(ErrVestingFinalized, "vesting %v is finalized", record.Key)
	}
	requireWritable(rt, source, vault, record)

	vaultAddr, _, err := VaultAddress(rt.ProgramID(), record.Key)
	builtin.RequireNoErr(rt, err, ErrInvalidDerivedAddress, "failed to derive vault")
	if vault.Key != vaultAddr || st.Vault != vaultAddr {
		rt.Abortf(ErrInvalidDerivedAddress, "vault %v does not match derived address %v", vault.Key, vaultAddr)
	}
	vaultAcct := loadTokenAccount(rt, vault)
	if vaultAcct.Mint != st.Mint {
		rt.Abortf(ErrMintMismatch, "vault mint %v, expected %v", vaultAcct.Mint, st.Mint)
	}

	src := loadTokenAccount(rt, source)
	if src.Owner != funder.Key {
		rt.Abortf(ErrInvalidTokenOwner, "source %v is owned by %v, not funder %v", source.Key, src.Owner, funder.Key)
	}
	if src.Mint != st.Mint {
		rt.Abortf(ErrMintMismatch, "source mint %v, expected %v", src.Mint, st.Mint)
	}
	if src.Amount < params.Amount {
		rt.Abortf(ErrInsufficientFunds, "source balance %d below fund amount %d", src.Amount, params.Amount)
	}

	now := rt.Now()
	builtin.RequireState(rt, now > 0, "ledger clock not set: %v", now)

	code := rt.Transfer(source.Key, vault.Key, funder.Key, params.Amount, nil)
	builtin.RequireSuccess(rt, code, "failed to transfer %d into vault", params.Amount)

	st.Fund(now, params.Amount)
	rt.WriteAccountData(record.Key, st.Bytes())

	rt.Log(rtt.INFO, "funded vesting %v with %d at %v", record.Key, params.Amount, now)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Distribute
////////////////////////////////////////////////////////////////////////////////

type Payout struct {
	Slot   uint64
	Wallet abi.Address
	Amount abi.TokenAmount
}

type DistributeReturn struct {
	Payouts []Payout
	// Recipient slots that received a transfer.
	PaidSlots bitfield.BitField
	Total     abi.TokenAmount
	Timestamp int64
}

type stagedPayout struct {
	slot        int
	destination abi.Address
	amount      abi.TokenAmount
}

// Accounts: creator [signer], record [writable], vault [writable], token program, vault authority,
// then one token account per declared recipient, in slot order.
func (a Actor) Distribute(rt runtime.Runtime, _ *DistributeParams) *DistributeReturn {
	accounts := builtin.RequireAccounts(rt, 5, ErrInvalidAccountCount)
	creator, record, vault, authority := accounts[0], accounts[1], accounts[2], accounts[4]
	recipientAccounts := accounts[5:]

	if !creator.IsSigner {
		rt.Abortf(ErrNotSigner, "creator %v must sign", creator.Key)
	}
	builtin.RequireProgram(rt, accounts[3], builtin.TokenProgramID, ErrInvalidTokenProgram, "token")

	st := loadState(rt, record)
	if creator.Key != st.Creator {
		rt.Abortf(ErrUnauthorized, "caller %v is not the creator of %v", creator.Key, record.Key)
	}
	if !st.IsFunded() {
		rt.Abortf(ErrNotFunded, "vesting %v is not funded", record.Key)
	}
	if !st.IsFinalized {
		rt.Abortf(ErrNotFinalized, "vesting %v is not finalized", record.Key)
	}

	now := rt.Now()
	if remaining := st.CooldownRemaining(now); remaining > 0 {
		rt.Abortf(ErrDistributionCooldown, "next distribution allowed in %d seconds", remaining)
	}

	program := rt.ProgramID()
	authorityAddr, authorityBump, err := AuthorityAddress(program, record.Key)
	builtin.RequireNoErr(rt, err, ErrInvalidDerivedAddress, "failed to derive vault authority")
	if authority.Key != authorityAddr {
		rt.Abortf(ErrInvalidAuthority, "authority %v does not match derived address %v", authority.Key, authorityAddr)
	}
	vaultAddr, _, err := VaultAddress(program, record.Key)
	builtin.RequireNoErr(rt, err, ErrInvalidDerivedAddress, "failed to derive vault")
	if vault.Key != vaultAddr || st.Vault != vaultAddr {
		rt.Abortf(ErrInvalidDerivedAddress, "vault %v does not match derived address %v", vault.Key, vaultAddr)
	}
	requireWritable(rt, record, vault)

	vaultAcct := loadTokenAccount(rt, vault)
	if vaultAcct.Mint != st.Mint {
		rt.Abortf(ErrMintMismatch, "vault mint %v, expected %v", vaultAcct.Mint, st.Mint)
	}
	if vaultAcct.Owner != authorityAddr {
		rt.Abortf(ErrInvalidAuthority, "vault is controlled by %v, expected %v", vaultAcct.Owner, authorityAddr)
	}
	if len(recipientAccounts) != int(st.RecipientCount) {
		rt.Abortf(ErrInvalidAccountCount, "got %d recipient accounts, expected %d", len(recipientAccounts), st.RecipientCount)
	}

	// Validate every payout before moving any tokens.
	var staged []stagedPayout
	var total abi.TokenAmount
	for i := 0; i < int(st.RecipientCount); i++ {
		r := st.Recipients[i]
		if r.Wallet.IsZero() || r.BasisPoints == 0 {
			continue
		}
		claimable := st.Claimable(i, now)
		if claimable == 0 {
			continue
		}
		dest := recipientAccounts[i]
		expected, _, err := token.AssociatedAddress(r.Wallet, st.Mint)
		builtin.RequireNoErr(rt, err, ErrInvalidRecipientTokenAccount, "failed to derive token account of %v", r.Wallet)
		if dest.Key != expected {
			rt.Abortf(ErrInvalidRecipientTokenAccount, "account %d is %v, expected %v", i, dest.Key, expected)
		}
		if !dest.IsWritable {
			rt.Abortf(ErrAccountNotWritable, "recipient account %v must be writable", dest.Key)
		}
		destAcct := loadTokenAccount(rt, dest)
		if destAcct.Owner != r.Wallet {
			rt.Abortf(ErrInvalidTokenOwner, "recipient account %v is owned by %v, expected %v", dest.Key, destAcct.Owner, r.Wallet)
		}
		if destAcct.Mint != st.Mint {
			rt.Abortf(ErrMintMismatch, "recipient account %v mint %v, expected %v", dest.Key, destAcct.Mint, st.Mint)
		}
		if total+claimable < total {
			rt.Abortf(ErrOverflow, "total payout overflows")
		}
		total += claimable
		staged = append(staged, stagedPayout{slot: i, destination: dest.Key, amount: claimable})
	}
	if len(staged) == 0 {
		rt.Abortf(ErrNoClaimableAmount, "nothing claimable at %v", now)
	}
	if total > vaultAcct.Amount {
		rt.Abortf(ErrInsufficientFunds, "vault balance %d below payout %d", vaultAcct.Amount, total)
	}

	seeds := AuthoritySeeds(record.Key, authorityBump)
	for _, p := range staged {
		code := rt.Transfer(vault.Key, p.destination, authorityAddr, p.amount, seeds)
		builtin.RequireSuccess(rt, code, "failed to pay %d to slot %d", p.amount, p.slot)
	}

	ret := &DistributeReturn{Total: total, Timestamp: int64(now)}
	paid := make([]uint64, 0, len(staged))
	for _, p := range staged {
		if !st.RecordClaim(p.slot, p.amount, now) {
			rt.Abortf(ErrOverflow, "claimed amount of slot %d overflows", p.slot)
		}
		paid = append(paid, uint64(p.slot))
		ret.Payouts = append(ret.Payouts, Payout{
			Slot:   uint64(p.slot),
			Wallet: st.Recipients[p.slot].Wallet,
			Amount: p.amount,
		})
	}
	st.LastDistributionTime = now
	rt.WriteAccountData(record.Key, st.Bytes())
	ret.PaidSlots = bitfield.NewFromSet(paid)

	rt.Log(rtt.INFO, "distributed %d to %d recipients of %v", total, len(staged), record.Key)
	return ret
}

////////////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////////////

func loadState(rt runtime.Runtime, record *runtime.AccountInfo) *State {
	if record.Owner != rt.ProgramID() {
		rt.Abortf(ErrInvalidAccountOwner, "record %v is owned by %v", record.Key, record.Owner)
	}
	st, err := UnpackState(record.Data)
	builtin.RequireNoErr(rt, err, ErrInvalidAccountData, "failed to decode record %v", record.Key)
	if !st.IsInitialized {
		rt.Abortf(ErrNotInitialized, "record %v is not initialized", record.Key)
	}
	return st
}

func loadTokenAccount(rt runtime.Runtime, account *runtime.AccountInfo) *token.Account {
	if account.Owner != builtin.TokenProgramID {
		rt.Abortf(ErrInvalidAccountOwner, "account %v is owned by %v, not the token program", account.Key, account.Owner)
	}
	acct, err := token.UnpackAccount(account.Data)
	builtin.RequireNoErr(rt, err, ErrInvalidAccountData, "failed to decode token account %v", account.Key)
	if !acct.IsInitialized() {
		rt.Abortf(ErrInvalidAccountData, "token account %v is not initialized", account.Key)
	}
	return acct
}

func requireWritable(rt runtime.Runtime, accounts ...*runtime.AccountInfo) {
	for _, a := range accounts {
		if !a.IsWritable {
			rt.Abortf(ErrAccountNotWritable, "account %v must be writable", a.Key)
		}
	}
}

func requireUnallocated(rt runtime.Runtime, account *runtime.AccountInfo) {
	if account.Owner != builtin.SystemProgramID || !account.IsEmpty() {
		rt.Abortf(ErrAlreadyInitialized, "account %v is already allocated", account.Key)
	}
}
