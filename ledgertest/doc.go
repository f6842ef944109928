/*
Package ledgertest provides helpers for testing the ledger extensions:
deterministic keys, fixture accounts and signed transaction builders.
*/
package ledgertest
