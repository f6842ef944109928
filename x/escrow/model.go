package escrow

import (
	"encoding/binary"

	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/orm"
)

// Escrow is a held three party balance. It is keyed by the sender and a
// sender chosen numeric id, so one account can run many escrows at once.
type Escrow struct {
	From  string `msgpack:"from"`
	To    string `msgpack:"to"`
	Agent string `msgpack:"agent"`

	GolosBalance coin.Coin `msgpack:"golos_balance"`
	GbgBalance   coin.Coin `msgpack:"gbg_balance"`
	// PendingFee is held until ratification and then paid to the agent.
	PendingFee coin.Coin `msgpack:"pending_fee"`

	RatificationDeadline ledger.UnixTime `msgpack:"ratification_deadline"`
	EscrowExpiration     ledger.UnixTime `msgpack:"escrow_expiration"`

	ToApproved    bool `msgpack:"to_approved"`
	AgentApproved bool `msgpack:"agent_approved"`
	Disputed      bool `msgpack:"disputed"`
}

var _ orm.Model = (*Escrow)(nil)

func (e *Escrow) Validate() error {
	var errs error
	if err := ledger.ValidateAccountName(e.From); err != nil {
		errs = errors.Append(errs, errors.Field("From", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(e.To); err != nil {
		errs = errors.Append(errs, errors.Field("To", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(e.Agent); err != nil {
		errs = errors.Append(errs, errors.Field("Agent", err, "invalid account name"))
	}
	errs = errors.Append(errs, errors.Field("GolosBalance", e.GolosBalance.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("GbgBalance", e.GbgBalance.Validate(), "invalid balance"))
	errs = errors.Append(errs, errors.Field("PendingFee", e.PendingFee.Validate(), "invalid fee"))
	if e.RatificationDeadline == 0 {
		errs = errors.Append(errs, errors.Field("RatificationDeadline", errors.ErrEmpty, "required"))
	}
	if e.EscrowExpiration <= e.RatificationDeadline {
		errs = errors.Append(errs, errors.Field("EscrowExpiration", errors.ErrInput, "must be after the ratification deadline"))
	}
	return errs
}

// Ratified returns true once both the receiver and the agent approved.
func (e *Escrow) Ratified() bool {
	return e.ToApproved && e.AgentApproved
}

// Empty returns true when both asset balances reached zero. An empty
// escrow record is removed from the store.
func (e *Escrow) Empty() bool {
	return e.GolosBalance.IsZero() && e.GbgBalance.IsZero()
}

// escrowKey builds the primary key of an escrow. Account names cannot
// contain a zero byte, so the separator keeps the (from, id) pair
// unambiguous.
func escrowKey(from string, id uint32) []byte {
	key := make([]byte, len(from)+1+4)
	copy(key, from)
	binary.BigEndian.PutUint32(key[len(from)+1:], id)
	return key
}

// NewEscrowBucket returns a bucket for storing escrows, keyed by the
// sender name and the sender chosen escrow id.
func NewEscrowBucket() orm.ModelBucket {
	return orm.NewModelBucket("esc", &Escrow{})
}
