/*
Package account implements the account store: named accounts with liquid
and vesting balances, the three weighted authorities per account and the
append-only owner authority history used by account recovery.

The package provides the balance mutation primitives (credit, debit,
move) and the authority lookup every other extension resolves
signatures against.
*/
package account
