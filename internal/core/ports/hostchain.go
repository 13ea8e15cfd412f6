package ports

import (
	"context"
	"time"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
)

// VaultUpdateOp is the host-chain vault_update operation.
type VaultUpdateOp struct {
	Payer       string
	VaultID     string
	Sidechain   string
	AddressJSON string
}

// DepositProcessOp is the host-chain deposit_process operation.
type DepositProcessOp struct {
	Payer     string
	DepositID string
}

// SidechainTxCreateOp is the host-chain sidechain_tx_create operation.
type SidechainTxCreateOp struct {
	Payer             string
	LinkedObjectID    string
	Sidechain         string
	UnsignedTxPayload string
	SignersSnapshot   domain.SignerSet
}

// SidechainTxSignOp is the host-chain sidechain_tx_sign operation.
type SidechainTxSignOp struct {
	Payer    string
	StxID    string
	Partials [][]byte
}

// SidechainTxProcessOp is the host-chain sidechain_tx_process operation.
type SidechainTxProcessOp struct {
	Payer       string
	StxID       string
	BitcoinTxid string
}

// Proposal is a host-chain proposal created by some signer and awaiting
// approval weight. Exactly one of the op pointers is set. Peers never
// approve on trust: they reconstruct the op themselves and approve iff
// the reconstruction is bit-identical.
type Proposal struct {
	ProposalID string
	Proposer   string
	Expiration time.Time
	ApprovedBy []string

	VaultUpdate       *VaultUpdateOp
	DepositProcess    *DepositProcessOp
	SidechainTxCreate *SidechainTxCreateOp
}

// LinkedObjectID returns the host-chain object this proposal is about,
// the key used to suppress duplicate proposals for the same observable.
func (p *Proposal) LinkedObjectID() string {
	switch {
	case p.VaultUpdate != nil:
		return p.VaultUpdate.VaultID
	case p.DepositProcess != nil:
		return p.DepositProcess.DepositID
	case p.SidechainTxCreate != nil:
		return p.SidechainTxCreate.LinkedObjectID
	}
	return ""
}

// HostChainView is the read-only capability set the core consumes from
// the host chain's object database and block index. It is an external
// collaborator: this core never owns storage for it.
type HostChainView interface {
	ActiveSigners(ctx context.Context) (domain.SignerSet, error)
	HeadBlockTime(ctx context.Context) (time.Time, error)
	BlockInterval(ctx context.Context) (time.Duration, error)
	ActiveWitnessCount(ctx context.Context) (int, error)
	MinTxConfirmations(ctx context.Context) (uint32, error)

	// DepositAddress reports whether `address` is a tracked per-user
	// deposit address for sidechain "bitcoin", returning its uid-bearing
	// owner reference if so.
	DepositAddress(ctx context.Context, address string) (ownerID string, tracked bool, err error)

	ActiveVault(ctx context.Context) (*domain.Vault, bool, error)
	PreviousVault(ctx context.Context) (*domain.Vault, bool, error)
	VaultUTXOs(ctx context.Context, vaultID string) ([]Utxo, error)

	GetDeposit(ctx context.Context, depositID string) (*domain.Deposit, error)
	GetWithdrawal(ctx context.Context, withdrawID string) (*domain.Withdrawal, error)
	GetSidechainTx(ctx context.Context, stxID string) (*domain.SidechainTx, bool, error)

	// PendingDeposits lists deposits this signer still needs to drive
	// through observed/proposed/processed.
	PendingDeposits(ctx context.Context) ([]*domain.Deposit, error)
	// PendingWithdrawals lists withdrawals still in the requested/proposed
	// stage.
	PendingWithdrawals(ctx context.Context) ([]*domain.Withdrawal, error)
	// OpenSidechainTxs lists sidechain transactions not yet Confirmed or
	// Expired, the working set the signer coordinator walks every
	// reconcile pass.
	OpenSidechainTxs(ctx context.Context) ([]*domain.SidechainTx, error)

	// PendingProposals lists proposals still collecting approval weight,
	// this signer's own included.
	PendingProposals(ctx context.Context) ([]*Proposal, error)
}

// HostChainSubmit is the write capability set: the proposal/signing
// operations this core ever emits onto the host chain.
type HostChainSubmit interface {
	ProposeVaultUpdate(ctx context.Context, op VaultUpdateOp, lifetime time.Duration) error
	ProposeDepositProcess(ctx context.Context, op DepositProcessOp, lifetime time.Duration) error
	ProposeSidechainTxCreate(ctx context.Context, op SidechainTxCreateOp, lifetime time.Duration) error
	SubmitSidechainTxSign(ctx context.Context, op SidechainTxSignOp) error
	SubmitSidechainTxProcess(ctx context.Context, op SidechainTxProcessOp) error

	// ApproveProposal registers payer's approval weight on a pending
	// proposal. Only called after deterministic validation passed.
	ApproveProposal(ctx context.Context, payer, proposalID string) error
}

// ProposalObserver lets the core learn about proposals other signers
// create, so it can run deterministic validation and, if it approves,
// instruct HostChainSubmit to register its approval. Modeled as a
// producer/consumer channel.
type ProposalObserver interface {
	// Changes delivers batches of changed host-chain object ids.
	Changes(ctx context.Context) (<-chan []string, error)
}
