package ports

import "errors"

// Sentinel error kinds. Transient/semantic RPC failures and
// validation mismatches are not escalated to panics or process exit; they
// are logged and the affected round simply makes no progress.
var (
	// ErrConfig is fatal at startup: missing or malformed configuration.
	ErrConfig = errors.New("config error")
	// ErrTransientRPC is a network error, timeout, or 5xx; retried on the
	// next triggering event.
	ErrTransientRPC = errors.New("transient rpc error")
	// ErrSemanticRPC wraps a node-returned error object; treated as "no
	// result" for this round.
	ErrSemanticRPC = errors.New("semantic rpc error")
	// ErrValidationMismatch means a peer's proposal did not reconstruct
	// bit-identically; the local signer declines to approve.
	ErrValidationMismatch = errors.New("proposal validation mismatch")
	// ErrSigningFailed covers a locked wallet, unknown key, or malformed
	// payload; the signer emits no partial for this attempt.
	ErrSigningFailed = errors.New("signing failed")
	// ErrNonFinalBIP68 reports a not-yet-final sequence lock on broadcast.
	ErrNonFinalBIP68 = errors.New("transaction not BIP68 final")
)
