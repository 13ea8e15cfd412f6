package hostchainrpc

import (
	"context"
	"time"

	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// Submit implements ports.HostChainSubmit over the generic Client.
type Submit struct{ c *Client }

// NewSubmit wraps Client as a ports.HostChainSubmit.
func NewSubmit(c *Client) *Submit { return &Submit{c: c} }

func (s *Submit) ProposeVaultUpdate(ctx context.Context, op ports.VaultUpdateOp, lifetime time.Duration) error {
	return s.c.call(ctx, "propose_vault_update", []interface{}{
		op.Payer, op.VaultID, op.Sidechain, op.AddressJSON, int64(lifetime.Seconds()),
	}, nil)
}

func (s *Submit) ProposeDepositProcess(ctx context.Context, op ports.DepositProcessOp, lifetime time.Duration) error {
	return s.c.call(ctx, "propose_deposit_process", []interface{}{
		op.Payer, op.DepositID, int64(lifetime.Seconds()),
	}, nil)
}

func (s *Submit) ProposeSidechainTxCreate(ctx context.Context, op ports.SidechainTxCreateOp, lifetime time.Duration) error {
	return s.c.call(ctx, "propose_sidechain_tx_create", []interface{}{
		op.Payer, op.LinkedObjectID, op.Sidechain, op.UnsignedTxPayload, op.SignersSnapshot, int64(lifetime.Seconds()),
	}, nil)
}

func (s *Submit) SubmitSidechainTxSign(ctx context.Context, op ports.SidechainTxSignOp) error {
	return s.c.call(ctx, "submit_sidechain_tx_sign", []interface{}{
		op.Payer, op.StxID, op.Partials,
	}, nil)
}

func (s *Submit) SubmitSidechainTxProcess(ctx context.Context, op ports.SidechainTxProcessOp) error {
	return s.c.call(ctx, "submit_sidechain_tx_process", []interface{}{
		op.Payer, op.StxID, op.BitcoinTxid,
	}, nil)
}

func (s *Submit) ApproveProposal(ctx context.Context, payer, proposalID string) error {
	return s.c.call(ctx, "approve_proposal", []interface{}{payer, proposalID}, nil)
}
