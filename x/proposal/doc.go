/*
Package proposal implements generalized multi party approval. A proposal
wraps an ordered batch of operations and derives, from their own
authority requirements, which accounts must approve. Approvals are
collected over time; once complete the inner operations execute
atomically through the application router, as if they arrived in a
transaction signed by everyone at once.

An optional review period delays execution to a fixed point in time and
freezes the collected approval set to removals only after that point.
*/
package proposal
