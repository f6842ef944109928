package account

import (
	"time"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
)

const (
	// VotingPowerMax is the fully regenerated voting power, in basis
	// points.
	VotingPowerMax = 10000

	// votingPowerRegenWindow is the time it takes to regenerate voting
	// power from zero to full.
	votingPowerRegenWindow = 5 * 24 * time.Hour

	// ownerUpdateInterval limits how often the owner authority of an
	// account can change.
	ownerUpdateInterval = time.Hour

	// OwnerHistoryWindow is how long a replaced owner authority is kept in
	// the history and can prove recent ownership during account recovery.
	OwnerHistoryWindow = 30 * 24 * time.Hour
)

// Account is the central entity of the ledger. It is identified by a
// unique name and carries the balances and the three weighted authorities
// every signature resolves against.
type Account struct {
	Name string `msgpack:"name"`

	// Liquid balances.
	Balance    coin.Coin `msgpack:"balance"`
	GbgBalance coin.Coin `msgpack:"gbg_balance"`

	// Vesting is the owned vesting share balance.
	Vesting coin.Coin `msgpack:"vesting"`
	// DelegatedVesting is the part of Vesting whose voting power is lent
	// to other accounts.
	DelegatedVesting coin.Coin `msgpack:"delegated_vesting"`
	// ReceivedVesting is voting power borrowed from other accounts.
	ReceivedVesting coin.Coin `msgpack:"received_vesting"`
	// WithdrawingVesting is the part of Vesting that is mid withdrawal and
	// cannot be delegated.
	WithdrawingVesting coin.Coin `msgpack:"withdrawing_vesting"`

	// VotingPower is the voting power in basis points at LastVoteTime. Use
	// CurrentVotingPower for the regenerated value.
	VotingPower  uint32          `msgpack:"voting_power"`
	LastVoteTime ledger.UnixTime `msgpack:"last_vote_time"`
	CanVote      bool            `msgpack:"can_vote"`

	OwnerAuthority   authority.Authority `msgpack:"owner_authority"`
	ActiveAuthority  authority.Authority `msgpack:"active_authority"`
	PostingAuthority authority.Authority `msgpack:"posting_authority"`

	// RecoveryAccount is the partner account allowed to file recovery
	// requests for this account.
	RecoveryAccount string `msgpack:"recovery_account"`

	LastOwnerUpdate     ledger.UnixTime `msgpack:"last_owner_update"`
	LastAccountRecovery ledger.UnixTime `msgpack:"last_account_recovery"`
	CreatedAt           ledger.UnixTime `msgpack:"created_at"`

	JSONMetadata string `msgpack:"json_metadata"`
}

var _ orm.Model = (*Account)(nil)

// NewAccount returns an account with given name, zero balances in all
// three asset kinds and full voting power. Authorities are left for the
// caller to fill in.
func NewAccount(name string) *Account {
	return &Account{
		Name:               name,
		Balance:            coin.Zero(coin.GOLOS),
		GbgBalance:         coin.Zero(coin.GBG),
		Vesting:            coin.Zero(coin.GESTS),
		DelegatedVesting:   coin.Zero(coin.GESTS),
		ReceivedVesting:    coin.Zero(coin.GESTS),
		WithdrawingVesting: coin.Zero(coin.GESTS),
		VotingPower:        VotingPowerMax,
		CanVote:            true,
	}
}

func (a *Account) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(a.Name); err != nil {
		errs = errors.Append(errs, errors.Field("Name", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("Balance", a.Balance.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("GbgBalance", a.GbgBalance.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("Vesting", a.Vesting.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("DelegatedVesting", a.DelegatedVesting.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("ReceivedVesting", a.ReceivedVesting.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("WithdrawingVesting", a.WithdrawingVesting.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("OwnerAuthority", a.OwnerAuthority.Validate(), "invalid authority"))
	errs = errors.Append(errs, errors.Field("ActiveAuthority", a.ActiveAuthority.Validate(), "invalid authority"))
	errs = errors.Append(errs, errors.Field("PostingAuthority", a.PostingAuthority.Validate(), "invalid authority"))
	if a.VotingPower > VotingPowerMax {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrModel, "voting power above %d", VotingPowerMax))
	}
	return errs
}

// AuthorityAt returns the authority of this account at given level.
func (a *Account) AuthorityAt(level authority.Level) authority.Authority {
	switch level {
	case authority.Owner:
		return a.OwnerAuthority
	case authority.Active:
		return a.ActiveAuthority
	default:
		return a.PostingAuthority
	}
}

// EffectiveVesting is the voting power bearing balance: owned shares minus
// what is lent out plus what is borrowed.
func (a *Account) EffectiveVesting() (coin.Coin, error) {
	c, err := a.Vesting.Subtract(a.DelegatedVesting)
	if err != nil {
		return coin.Coin{}, err
	}
	return c.Add(a.ReceivedVesting)
}

// AvailableVesting is how much of the owned vesting can still be delegated
// away: owned shares minus delegated minus mid withdrawal.
func (a *Account) AvailableVesting() (coin.Coin, error) {
	c, err := a.Vesting.Subtract(a.DelegatedVesting)
	if err != nil {
		return coin.Coin{}, err
	}
	c, err = c.Subtract(a.WithdrawingVesting)
	if err != nil {
		return coin.Coin{}, err
	}
	if c.Negative().IsPositive() {
		return coin.Coin{}, errors.Wrapf(ErrVestingBalance, "account %q over-delegated", a.Name)
	}
	return c, nil
}

// CurrentVotingPower returns the voting power regenerated linearly since
// the last vote, capped at VotingPowerMax.
func (a *Account) CurrentVotingPower(now time.Time) uint32 {
	elapsed := now.Sub(a.LastVoteTime.Time())
	if elapsed <= 0 {
		return a.VotingPower
	}
	if elapsed >= votingPowerRegenWindow {
		return VotingPowerMax
	}
	// Second granularity keeps the multiplication far from overflowing.
	regen := uint64(elapsed/time.Second) * VotingPowerMax / uint64(votingPowerRegenWindow/time.Second)
	power := uint64(a.VotingPower) + regen
	if power > VotingPowerMax {
		return VotingPowerMax
	}
	return uint32(power)
}

// OwnerHistory is a single entry of the append-only log of replaced owner
// authorities. During account recovery an entry proves that given
// authority controlled the account until LastValidTime.
type OwnerHistory struct {
	Account        string              `msgpack:"account"`
	OwnerAuthority authority.Authority `msgpack:"owner_authority"`
	// LastValidTime is when this authority stopped being the owner
	// authority of the account.
	LastValidTime ledger.UnixTime `msgpack:"last_valid_time"`
}

var _ orm.Model = (*OwnerHistory)(nil)

func (h *OwnerHistory) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(h.Account); err != nil {
		errs = errors.Append(errs, errors.Field("Account", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("OwnerAuthority", h.OwnerAuthority.Validate(), "invalid authority"))
	if h.LastValidTime == 0 {
		errs = errors.Append(errs, errors.Field("LastValidTime", errors.ErrEmpty, "required"))
	}
	return errs
}

// NewAccountBucket returns a bucket for storing accounts, keyed by name.
func NewAccountBucket() orm.ModelBucket {
	return orm.NewModelBucket("acc", &Account{})
}

// NewOwnerHistoryBucket returns a bucket for storing owner authority
// history entries, keyed by account name and an insertion sequence so a
// prefix scan over the name returns entries oldest first.
func NewOwnerHistoryBucket() orm.ModelBucket {
	return orm.NewModelBucket("ownhist", &OwnerHistory{})
}
