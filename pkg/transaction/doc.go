// Package transaction ties the durability of a request's catalog writes to
// the outcome of the whole request. A gin middleware installs a
// single-extraction slot holding a lazily opened transaction, the handler
// extracts it at most once, and the middleware commits or rolls back once
// the response status is known.
package transaction
