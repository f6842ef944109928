/*
Package escrow implements three party conditional transfers. An escrow
holds funds taken from the sender until the receiver and the agent ratify
it. Once ratified, funds move only through explicit release calls, with
the agent arbitrating when the transfer is disputed. Escrows that are not
ratified in time are refunded by the scheduler.
*/
package escrow
