package domain

import "fmt"

// DepositState is the deposit record's lifecycle position.
type DepositState string

const (
	DepositObserved    DepositState = "observed"
	DepositProposed    DepositState = "proposed"
	DepositProcessed   DepositState = "processed"
	DepositTransferred DepositState = "transferred"
)

var depositTransitions = map[DepositState]DepositState{
	DepositObserved:  DepositProposed,
	DepositProposed:  DepositProcessed,
	DepositProcessed: DepositTransferred,
}

// CanTransition reports whether moving a deposit from `from` to `to` is a
// legal, monotone step. State never regresses.
func CanTransition(from, to DepositState) bool {
	return depositTransitions[from] == to
}

// Deposit is a Bitcoin payment to a tracked per-user address.
type Deposit struct {
	DepositID string
	Txid      string
	Vout      uint32
	Address   string
	AmountSat uint64
	UID       string
	State     DepositState
}

// DepositUID builds the canonical deposit key, unique across replays.
func DepositUID(txid string, vout uint32) string {
	return fmt.Sprintf("bitcoin-%s-%d", txid, vout)
}
