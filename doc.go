/*
Package ledger provides the shared primitives of the chain state machine:
ledger time, block context, account names and the transaction/operation
interfaces that every extension package implements.

The actual state transitions live in the x/ packages. The app package wires
them together into a deterministic block processing pipeline.
*/
package ledger
