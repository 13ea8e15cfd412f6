package domain

// LinkedObjectType identifies what a sidechain transaction moves funds for.
type LinkedObjectType string

const (
	LinkedVault      LinkedObjectType = "vault"
	LinkedDeposit    LinkedObjectType = "deposit"
	LinkedWithdrawal LinkedObjectType = "withdrawal"
)

// SidechainTxState is the per-transaction signing state machine:
//
//	Created -> PartiallySigned -> Complete -> Broadcast -> Confirmed
//	(any state) -> Expired
type SidechainTxState string

const (
	TxCreated         SidechainTxState = "created"
	TxPartiallySigned SidechainTxState = "partially_signed"
	TxComplete        SidechainTxState = "complete"
	TxBroadcast       SidechainTxState = "broadcast"
	TxConfirmed       SidechainTxState = "confirmed"
	TxExpired         SidechainTxState = "expired"
)

// SidechainTx is the host-chain object coordinating one Bitcoin
// transaction across the signer federation.
type SidechainTx struct {
	StxID             string
	LinkedObjectID    string
	LinkedObjectType  LinkedObjectType
	UnsignedTxPayload string
	SignersSnapshot   SignerSet
	PartialSigs       map[string][]byte // signer_id -> partial contribution, recorded at most once per signer
	Completed         bool
	BitcoinTxid       string
	State             SidechainTxState
}

// NewSidechainTx seeds a tx object in the Created state with the snapshot
// pinned for the lifetime of the object.
func NewSidechainTx(stxID, linkedID string, linkedType LinkedObjectType, payload string, signers SignerSet) *SidechainTx {
	return &SidechainTx{
		StxID:             stxID,
		LinkedObjectID:    linkedID,
		LinkedObjectType:  linkedType,
		UnsignedTxPayload: payload,
		SignersSnapshot:   signers.Sorted(),
		PartialSigs:       make(map[string][]byte),
		State:             TxCreated,
	}
}

// RecordPartial stores signer_id's contribution idempotently: a repeat
// submission of the same partial is a no-op.
// Returns true if this call actually recorded a new partial.
func (tx *SidechainTx) RecordPartial(signerID string, partial []byte) bool {
	if _, exists := tx.PartialSigs[signerID]; exists {
		return false
	}
	tx.PartialSigs[signerID] = partial
	if tx.State == TxCreated {
		tx.State = TxPartiallySigned
	}
	return true
}

// ContributingWeight sums the weight of signers who have an accepted
// partial on record, for standalone-regime threshold checks.
func (tx *SidechainTx) ContributingWeight() uint64 {
	bySigner := make(map[string]uint16, len(tx.SignersSnapshot))
	for _, s := range tx.SignersSnapshot {
		bySigner[s.SignerID] = s.Weight
	}
	var weight uint64
	for signerID := range tx.PartialSigs {
		weight += uint64(bySigner[signerID])
	}
	return weight
}

// MarkComplete flips Completed false->true exactly once; later calls are
// no-ops, keeping the flag monotone.
func (tx *SidechainTx) MarkComplete() {
	if tx.Completed {
		return
	}
	tx.Completed = true
	tx.State = TxComplete
}

// MarkBroadcast records the resulting Bitcoin txid. sidechain_tx_process is
// accepted at most once per StxID; subsequent calls are ignored.
func (tx *SidechainTx) MarkBroadcast(bitcoinTxid string) bool {
	if tx.State == TxBroadcast || tx.State == TxConfirmed {
		return false
	}
	tx.BitcoinTxid = bitcoinTxid
	tx.State = TxBroadcast
	return true
}
