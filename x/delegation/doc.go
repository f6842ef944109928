/*
Package delegation implements vesting share delegation: lending the
voting power of vesting shares to another account. Borrowed power is
revoked the moment a delegation shrinks, while the lender gets the shares
back only after a cooldown, through a scheduled return. The asymmetry is
deliberate: it makes shuffling one stake between accounts useless for
multiplying voting power.
*/
package delegation
