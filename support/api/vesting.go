package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/actors/builtin/vesting"
)

type DeriveResponse struct {
	Creator       abi.Address `json:"creator"`
	Nonce         uint64      `json:"nonce"`
	Record        abi.Address `json:"record"`
	RecordBump    uint8       `json:"record_bump"`
	Vault         abi.Address `json:"vault"`
	VaultBump     uint8       `json:"vault_bump"`
	Authority     abi.Address `json:"authority"`
	AuthorityBump uint8       `json:"authority_bump"`
}

// GetDerive computes the addresses a Create by creator with nonce would allocate.
func (s *Server) GetDerive(c *fiber.Ctx) error {
	creator, ok, err := queryAddress(c, "creator")
	if err != nil {
		return err
	}
	if !ok {
		return APIError{Code: fiber.StatusUnprocessableEntity, Message: "creator is required"}
	}
	nonce, _, err := queryUint(c, "nonce")
	if err != nil {
		return err
	}
	addrs, err := vesting.DeriveAddresses(vesting.ProgramID, creator, nonce)
	if err != nil {
		return err
	}
	return c.JSON(DeriveResponse{
		Creator:       creator,
		Nonce:         nonce,
		Record:        addrs.Record,
		RecordBump:    addrs.RecordBump,
		Vault:         addrs.Vault,
		VaultBump:     addrs.VaultBump,
		Authority:     addrs.Authority,
		AuthorityBump: addrs.AuthorityBump,
	})
}

type RecipientView struct {
	Slot          int             `json:"slot"`
	Wallet        abi.Address     `json:"wallet"`
	BasisPoints   abi.BasisPoints `json:"basis_points"`
	Total         abi.TokenAmount `json:"total"`
	Vested        abi.TokenAmount `json:"vested"`
	Claimed       abi.TokenAmount `json:"claimed"`
	Claimable     abi.TokenAmount `json:"claimable"`
	LastClaimTime abi.Timestamp   `json:"last_claim_time"`
}

type VestingView struct {
	Address              abi.Address     `json:"address"`
	Creator              abi.Address     `json:"creator"`
	Mint                 abi.Address     `json:"mint"`
	Vault                abi.Address     `json:"vault"`
	Funded               bool            `json:"funded"`
	StartTime            abi.Timestamp   `json:"start_time"`
	TotalAmount          abi.TokenAmount `json:"total_amount"`
	TotalClaimed         abi.TokenAmount `json:"total_claimed"`
	CliffPeriod          abi.Duration    `json:"cliff_period"`
	VestingPeriod        abi.Duration    `json:"vesting_period"`
	TGEBasisPoints       abi.BasisPoints `json:"tge_basis_points"`
	LastDistributionTime abi.Timestamp   `json:"last_distribution_time"`
	// Evaluation time of the vested and claimable amounts.
	At                abi.Timestamp   `json:"at"`
	CooldownRemaining int64           `json:"cooldown_remaining"`
	Recipients        []RecipientView `json:"recipients"`
}

// NewVestingView previews a record at the given time.
func NewVestingView(addr abi.Address, st *vesting.State, at abi.Timestamp) *VestingView {
	view := &VestingView{
		Address:              addr,
		Creator:              st.Creator,
		Mint:                 st.Mint,
		Vault:                st.Vault,
		Funded:               st.IsFunded(),
		StartTime:            st.StartTime,
		TotalAmount:          st.TotalAmount,
		TotalClaimed:         st.TotalClaimed(),
		CliffPeriod:          st.Schedule.CliffPeriod,
		VestingPeriod:        st.Schedule.VestingPeriod,
		TGEBasisPoints:       st.Schedule.TGEBasisPoints,
		LastDistributionTime: st.LastDistributionTime,
		At:                   at,
		CooldownRemaining:    int64(st.CooldownRemaining(at)),
	}
	for i, r := range st.ActiveRecipients() {
		rv := RecipientView{
			Slot:          i,
			Wallet:        r.Wallet,
			BasisPoints:   r.BasisPoints,
			Claimed:       r.ClaimedAmount,
			LastClaimTime: r.LastClaimTime,
		}
		if st.IsFunded() {
			rv.Total = st.RecipientTotal(i)
			rv.Vested = st.Vested(i, at)
			rv.Claimable = st.Claimable(i, at)
		}
		view.Recipients = append(view.Recipients, rv)
	}
	return view
}

// GetVesting returns a record with its vested and claimable amounts at the ledger clock,
// or at the `at` query timestamp.
func (s *Server) GetVesting(c *fiber.Ctx) error {
	addr, err := paramAddress(c, "address")
	if err != nil {
		return err
	}
	at := s.v.Now()
	if ts, ok, err := queryTimestamp(c, "at"); err != nil {
		return err
	} else if ok {
		at = ts
	}
	st, err := s.v.GetVesting(addr)
	if err != nil {
		return APIError{Code: fiber.StatusNotFound, Message: err.Error()}
	}
	return c.JSON(NewVestingView(addr, st, at))
}

type VestingsResponse struct {
	Vestings []*VestingView `json:"vestings"`
}

// GetVestings lists every record, optionally only those of one creator.
func (s *Server) GetVestings(c *fiber.Ctx) error {
	creator, filter, err := queryAddress(c, "creator")
	if err != nil {
		return err
	}
	now := s.v.Now()
	resp := VestingsResponse{Vestings: []*VestingView{}}
	for _, addr := range s.v.Keys(vesting.ProgramID) {
		st, err := s.v.GetVesting(addr)
		if err != nil {
			// not a record
			continue
		}
		if filter && st.Creator != creator {
			continue
		}
		resp.Vestings = append(resp.Vestings, NewVestingView(addr, st, now))
	}
	return c.JSON(resp)
}
