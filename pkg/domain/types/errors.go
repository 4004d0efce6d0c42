package types

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy for the whole system. Call sites wrap these with goerr.Wrap
// and attach context values; policy decisions (retry, abort, skip) use
// errors.Is against these sentinels.
var (
	// ErrConfiguration indicates missing or invalid configuration, e.g. an
	// LLM strategy selected without credentials. Fatal at startup, never
	// silently degraded.
	ErrConfiguration = goerr.New("configuration error")

	// ErrTransientProvider indicates a timeout or network failure calling
	// the external LLM or embedding boundary. The call site retries with
	// backoff; exhausted retries fail the turn.
	ErrTransientProvider = goerr.New("transient provider error")

	// ErrValidation indicates malformed structured output, an invalid
	// promise-status transition, or an out-of-range score. The turn fails
	// and the prior mind state stays authoritative.
	ErrValidation = goerr.New("validation error")

	// ErrPersistence indicates the store is unreachable or rejected a write.
	ErrPersistence = goerr.New("persistence error")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = goerr.New("not found")
)
