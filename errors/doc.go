/*
Package errors implements the error handling used across the whole ledger.

Each error kind is represented by a root error instance created via the
Register function. Errors returned during runtime must always wrap one of
the registered roots. This allows testing errors by kind using the Is
method and reporting a stable numeric code to clients regardless of the
description attached while wrapping.

Error codes 1-99 are reserved for the framework packages. Extension
packages register their own codes starting from 100, each package owning
its own range.
*/
package errors
