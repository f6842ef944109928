package coin

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/golos-one/ledger/errors"
)

// The chain supports three asset kinds. GOLOS is the liquid fungible token,
// GBG is the stable pegged token and GESTS are vesting shares, the unit of
// voting power.
const (
	GOLOS = "GOLOS"
	GBG   = "GBG"
	GESTS = "GESTS"
)

// IsCC is the RegExp to ensure valid currency codes.
var IsCC = regexp.MustCompile(`^[A-Z]{3,5}$`).MatchString

const (
	// FracUnit is the number of fractional units in a whole token. All
	// asset amounts use three decimal digits.
	FracUnit int64 = 1000

	// MaxAmount is the largest amount (in fractional units) we accept.
	MaxAmount int64 = 999999999999999 * FracUnit
	// MinAmount is the lowest amount we accept.
	MinAmount = -MaxAmount
)

// Coin is a fixed point amount of a single asset kind. Amount is expressed
// in fractional units, so NewCoin(1500, GOLOS) reads "1.500 GOLOS".
type Coin struct {
	Amount int64  `msgpack:"amount" json:"amount"`
	Ticker string `msgpack:"ticker" json:"ticker"`
}

// NewCoin creates a new coin from an amount of fractional units.
func NewCoin(amount int64, ticker string) Coin {
	return Coin{Amount: amount, Ticker: ticker}
}

// Whole creates a new coin from an amount of whole tokens.
func Whole(amount int64, ticker string) Coin {
	return Coin{Amount: amount * FracUnit, Ticker: ticker}
}

// Zero returns a zero value coin of given asset kind.
func Zero(ticker string) Coin {
	return Coin{Ticker: ticker}
}

// Add combines two coins. Returns an error if they are of different assets,
// or if the combination would cause an overflow.
func (c Coin) Add(o Coin) (Coin, error) {
	// A zero value without a ticker has no influence on the result.
	if c.Ticker == "" && c.Amount == 0 {
		return o, nil
	}
	if o.Ticker == "" && o.Amount == 0 {
		return c, nil
	}
	if !c.SameType(o) {
		return Coin{}, errors.Wrapf(errors.ErrCurrency, "adding %s to %s", o.Ticker, c.Ticker)
	}
	sum := c.Amount + o.Amount
	if (o.Amount > 0 && sum < c.Amount) || (o.Amount < 0 && sum > c.Amount) {
		return Coin{}, errors.ErrOverflow
	}
	c.Amount = sum
	return c, nil
}

// Subtract given amount.
func (c Coin) Subtract(o Coin) (Coin, error) {
	return c.Add(o.Negative())
}

// Negative returns the opposite coin value.
//
//	c.Add(c.Negative()).IsZero() == true
func (c Coin) Negative() Coin {
	return Coin{Ticker: c.Ticker, Amount: -c.Amount}
}

// Compare reports the amount ordering of two coins, without inspecting the
// asset kind. Returns 1 if c is larger, -1 if o is larger, 0 if equal.
func (c Coin) Compare(o Coin) int {
	switch {
	case c.Amount > o.Amount:
		return 1
	case c.Amount < o.Amount:
		return -1
	}
	return 0
}

// Equals returns true if all fields are identical.
func (c Coin) Equals(o Coin) bool {
	return c.Ticker == o.Ticker && c.Amount == o.Amount
}

// IsZero returns true when the amount is 0.
func (c Coin) IsZero() bool {
	return c.Amount == 0
}

// IsPositive returns true if the amount is greater than 0.
func (c Coin) IsPositive() bool {
	return c.Amount > 0
}

// IsNonNegative returns true if the amount is 0 or higher.
func (c Coin) IsNonNegative() bool {
	return c.Amount >= 0
}

// IsGTE returns true if c is the same asset kind and at least as large as
// o.
func (c Coin) IsGTE(o Coin) bool {
	return c.SameType(o) && c.Amount >= o.Amount
}

// SameType returns true if both coins are of the same asset kind.
func (c Coin) SameType(o Coin) bool {
	return c.Ticker == o.Ticker
}

// IsVesting returns true when this coin is denominated in vesting shares.
func (c Coin) IsVesting() bool {
	return c.Ticker == GESTS
}

// IsLiquid returns true when this coin is one of the two liquid asset
// kinds.
func (c Coin) IsLiquid() bool {
	return c.Ticker == GOLOS || c.Ticker == GBG
}

// Validate ensures that the coin amount is in the valid range and the
// asset code is well formed. It accepts negative values, so you may want to
// make other checks in your business logic.
func (c Coin) Validate() error {
	var err error
	if !IsCC(c.Ticker) {
		err = errors.Append(err, errors.Wrapf(errors.ErrCurrency, "invalid currency: %s", c.Ticker))
	}
	if c.Amount < MinAmount || c.Amount > MaxAmount {
		err = errors.Append(err, errors.ErrOverflow)
	}
	return err
}

// String provides a human readable representation of the coin. For a valid
// coin the result can be parsed back using ParseHumanFormat.
func (c Coin) String() string {
	amount := c.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := amount / FracUnit
	frac := amount % FracUnit

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(strconv.FormatInt(whole, 10))
	b.WriteByte('.')
	s := strconv.FormatInt(frac, 10)
	b.WriteString(strings.Repeat("0", 3-len(s)))
	b.WriteString(s)
	if c.Ticker != "" {
		b.WriteString(" " + c.Ticker)
	}
	return b.String()
}

var humanCoinFormatRx = regexp.MustCompile(`^(\-?)\s*(\d+)(?:\.(\d{1,3}))?\s*([A-Z]{3,5})$`)

// ParseHumanFormat parses a human readable coin representation. Accepted
// format is a string:
//
//	"<whole>[.<fractional>] <ticker>"
func ParseHumanFormat(h string) (Coin, error) {
	results := humanCoinFormatRx.FindStringSubmatch(h)
	if results == nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid coin format %q", h)
	}

	whole, err := strconv.ParseInt(results[2], 10, 64)
	if err != nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid whole value: %s", err)
	}

	var frac int64
	if results[3] != "" {
		padded := results[3] + strings.Repeat("0", 3-len(results[3]))
		frac, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return Coin{}, errors.Wrapf(errors.ErrInput, "invalid fractional value: %s", err)
		}
	}

	amount := whole*FracUnit + frac
	if results[1] == "-" {
		amount = -amount
	}

	return Coin{Amount: amount, Ticker: results[4]}, nil
}

// Set updates this coin value to what is provided. This method implements
// the flag.Value interface.
func (c *Coin) Set(raw string) error {
	val, err := ParseHumanFormat(raw)
	if err != nil {
		return err
	}
	*c = val
	return nil
}
