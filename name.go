package ledger

import (
	"regexp"

	"github.com/golos-one/ledger/errors"
)

// validName is the format of all account names. Like domain labels: lower
// case, starts with a letter, dashes allowed in the middle, 3 to 16
// characters.
var validName = regexp.MustCompile(`^[a-z][a-z0-9-]{1,14}[a-z0-9]$`).MatchString

// ValidateAccountName returns an error if given string cannot be used as an
// account name.
func ValidateAccountName(name string) error {
	if name == "" {
		return errors.Wrap(errors.ErrEmpty, "account name")
	}
	if !validName(name) {
		return errors.Wrapf(errors.ErrInput, "invalid account name %q", name)
	}
	return nil
}
