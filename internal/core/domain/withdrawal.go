package domain

// WithdrawalState is the withdrawal record's lifecycle position.
type WithdrawalState string

const (
	WithdrawalRequested WithdrawalState = "requested"
	WithdrawalProposed  WithdrawalState = "proposed"
	WithdrawalSigned    WithdrawalState = "signed"
	WithdrawalSent      WithdrawalState = "sent"
)

var withdrawalTransitions = map[WithdrawalState]WithdrawalState{
	WithdrawalRequested: WithdrawalProposed,
	WithdrawalProposed:  WithdrawalSigned,
	WithdrawalSigned:    WithdrawalSent,
}

// CanTransitionWithdrawal mirrors CanTransition for withdrawal records.
func CanTransitionWithdrawal(from, to WithdrawalState) bool {
	return withdrawalTransitions[from] == to
}

// Withdrawal is a sidechain-initiated payout back to Bitcoin.
type Withdrawal struct {
	WithdrawID      string
	DestinationAddr string
	AmountSat       uint64
	State           WithdrawalState
}
