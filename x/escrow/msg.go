package escrow

import (
	"github.com/golos-one/ledger"
	"github.com/golos-one/ledger/authority"
	"github.com/golos-one/ledger/coin"
	"github.com/golos-one/ledger/errors"
	"github.com/golos-one/ledger/operation"
)

func init() {
	operation.Register("escrow_transfer", func() ledger.Operation { return &TransferOp{} })
	operation.Register("escrow_approve", func() ledger.Operation { return &ApproveOp{} })
	operation.Register("escrow_dispute", func() ledger.Operation { return &DisputeOp{} })
	operation.Register("escrow_release", func() ledger.Operation { return &ReleaseOp{} })
}

func validateParticipants(from, to, agent string) error {
	var errs error
	if err := ledger.ValidateAccountName(from); err != nil {
		errs = errors.Append(errs, errors.Field("From", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(to); err != nil {
		errs = errors.Append(errs, errors.Field("To", err, "invalid account name"))
	}
	if err := ledger.ValidateAccountName(agent); err != nil {
		errs = errors.Append(errs, errors.Field("Agent", err, "invalid account name"))
	}
	if from == to {
		errs = errors.Append(errs, errors.Wrap(errors.ErrInput, "sender and receiver must differ"))
	}
	if agent == from || agent == to {
		errs = errors.Append(errs, errors.Wrap(errors.ErrInput, "agent must be a third party"))
	}
	return errs
}

// TransferOp opens an escrow: funds and the agent fee are taken from the
// sender and held until ratification.
type TransferOp struct {
	From     string `msgpack:"from"`
	To       string `msgpack:"to"`
	Agent    string `msgpack:"agent"`
	EscrowID uint32 `msgpack:"escrow_id"`

	GolosAmount coin.Coin `msgpack:"golos_amount"`
	GbgAmount   coin.Coin `msgpack:"gbg_amount"`
	Fee         coin.Coin `msgpack:"fee"`

	RatificationDeadline ledger.UnixTime `msgpack:"ratification_deadline"`
	EscrowExpiration     ledger.UnixTime `msgpack:"escrow_expiration"`

	JSONMeta string `msgpack:"json_meta"`
}

var _ ledger.Operation = (*TransferOp)(nil)

func (TransferOp) Path() string { return "escrow_transfer" }

func (op *TransferOp) Validate() error {
	errs := validateParticipants(op.From, op.To, op.Agent)
	errs = errors.Append(errs, errors.Field("GolosAmount", op.GolosAmount.Validate(), "invalid amount"))
	errs = errors.Append(errs, errors.Field("GbgAmount", op.GbgAmount.Validate(), "invalid amount"))
	errs = errors.Append(errs, errors.Field("Fee", op.Fee.Validate(), "invalid fee"))
	if op.GolosAmount.Ticker != coin.GOLOS {
		errs = errors.Append(errs, errors.Field("GolosAmount", errors.ErrCurrency, "must be %s", coin.GOLOS))
	}
	if op.GbgAmount.Ticker != coin.GBG {
		errs = errors.Append(errs, errors.Field("GbgAmount", errors.ErrCurrency, "must be %s", coin.GBG))
	}
	if !op.GolosAmount.IsNonNegative() || !op.GbgAmount.IsNonNegative() {
		errs = errors.Append(errs, errors.Wrap(errors.ErrAmount, "amounts must not be negative"))
	}
	if op.GolosAmount.IsZero() && op.GbgAmount.IsZero() {
		errs = errors.Append(errs, errors.Wrap(errors.ErrAmount, "escrow must hold a positive amount"))
	}
	if !op.Fee.IsNonNegative() {
		errs = errors.Append(errs, errors.Field("Fee", errors.ErrAmount, "must not be negative"))
	}
	if !op.Fee.IsLiquid() {
		errs = errors.Append(errs, errors.Field("Fee", errors.ErrCurrency, "must be a liquid asset"))
	}
	if op.RatificationDeadline == 0 {
		errs = errors.Append(errs, errors.Field("RatificationDeadline", errors.ErrEmpty, "required"))
	}
	if op.EscrowExpiration <= op.RatificationDeadline {
		errs = errors.Append(errs, errors.Field("EscrowExpiration", errors.ErrInput, "must be after the ratification deadline"))
	}
	return errs
}

func (op *TransferOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.From)
	return req
}

// ApproveOp ratifies or rejects an escrow. Rejection by either party
// refunds the sender and closes the escrow.
type ApproveOp struct {
	From     string `msgpack:"from"`
	To       string `msgpack:"to"`
	Agent    string `msgpack:"agent"`
	Who      string `msgpack:"who"`
	EscrowID uint32 `msgpack:"escrow_id"`
	Approve  bool   `msgpack:"approve"`
}

var _ ledger.Operation = (*ApproveOp)(nil)

func (ApproveOp) Path() string { return "escrow_approve" }

func (op *ApproveOp) Validate() error {
	errs := validateParticipants(op.From, op.To, op.Agent)
	if op.Who != op.To && op.Who != op.Agent {
		errs = errors.Append(errs, errors.Field("Who", errors.ErrInput, "only the receiver or the agent can approve"))
	}
	return errs
}

func (op *ApproveOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Who)
	return req
}

// DisputeOp puts a ratified escrow under dispute, making the agent the
// only party able to release funds. Disputing is irreversible.
type DisputeOp struct {
	From     string `msgpack:"from"`
	To       string `msgpack:"to"`
	Agent    string `msgpack:"agent"`
	Who      string `msgpack:"who"`
	EscrowID uint32 `msgpack:"escrow_id"`
}

var _ ledger.Operation = (*DisputeOp)(nil)

func (DisputeOp) Path() string { return "escrow_dispute" }

func (op *DisputeOp) Validate() error {
	errs := validateParticipants(op.From, op.To, op.Agent)
	if op.Who != op.From && op.Who != op.To {
		errs = errors.Append(errs, errors.Field("Who", errors.ErrInput, "only the sender or the receiver can dispute"))
	}
	return errs
}

func (op *DisputeOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Who)
	return req
}

// ReleaseOp moves funds out of an escrow to one of the participants.
type ReleaseOp struct {
	From     string `msgpack:"from"`
	To       string `msgpack:"to"`
	Agent    string `msgpack:"agent"`
	Who      string `msgpack:"who"`
	Receiver string `msgpack:"receiver"`
	EscrowID uint32 `msgpack:"escrow_id"`

	GolosAmount coin.Coin `msgpack:"golos_amount"`
	GbgAmount   coin.Coin `msgpack:"gbg_amount"`
}

var _ ledger.Operation = (*ReleaseOp)(nil)

func (ReleaseOp) Path() string { return "escrow_release" }

func (op *ReleaseOp) Validate() error {
	errs := validateParticipants(op.From, op.To, op.Agent)
	if op.Who != op.From && op.Who != op.To && op.Who != op.Agent {
		errs = errors.Append(errs, errors.Field("Who", errors.ErrInput, "must be a participant"))
	}
	if op.Receiver != op.From && op.Receiver != op.To {
		errs = errors.Append(errs, errors.Field("Receiver", errors.ErrInput, "must be the sender or the receiver"))
	}
	errs = errors.Append(errs, errors.Field("GolosAmount", op.GolosAmount.Validate(), "invalid amount"))
	errs = errors.Append(errs, errors.Field("GbgAmount", op.GbgAmount.Validate(), "invalid amount"))
	if op.GolosAmount.Ticker != coin.GOLOS {
		errs = errors.Append(errs, errors.Field("GolosAmount", errors.ErrCurrency, "must be %s", coin.GOLOS))
	}
	if op.GbgAmount.Ticker != coin.GBG {
		errs = errors.Append(errs, errors.Field("GbgAmount", errors.ErrCurrency, "must be %s", coin.GBG))
	}
	if !op.GolosAmount.IsNonNegative() || !op.GbgAmount.IsNonNegative() {
		errs = errors.Append(errs, errors.Wrap(errors.ErrAmount, "amounts must not be negative"))
	}
	if op.GolosAmount.IsZero() && op.GbgAmount.IsZero() {
		errs = errors.Append(errs, errors.Wrap(errors.ErrAmount, "must release a positive amount"))
	}
	return errs
}

func (op *ReleaseOp) RequiredAuths() authority.Required {
	var req authority.Required
	req.AddActive(op.Who)
	return req
}
