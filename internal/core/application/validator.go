package application

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// proposalValidator is the approving side of the state machine: for every
// pending proposal another signer created, rebuild the operation this
// signer would have proposed itself and approve iff the two agree
// bit-identically. A proposal that does not reconstruct is declined and
// logged; declining is not an error.
type proposalValidator struct {
	view    ports.HostChainView
	submit  ports.HostChainSubmit
	engine  *proposalEngine
	watcher *chainWatcher
	signer  string

	log *log.Entry
}

func newProposalValidator(view ports.HostChainView, submit ports.HostChainSubmit, engine *proposalEngine, watcher *chainWatcher, signerID string) *proposalValidator {
	return &proposalValidator{
		view:    view,
		submit:  submit,
		engine:  engine,
		watcher: watcher,
		signer:  signerID,
		log:     log.WithField("component", "validator"),
	}
}

// ValidateAll walks the pending proposals and registers this signer's
// approval on every one that reconstructs. Proposals this signer created
// or already approved are skipped.
func (pv *proposalValidator) ValidateAll(ctx context.Context) {
	proposals, err := pv.view.PendingProposals(ctx)
	if err != nil {
		pv.log.WithError(err).Warn("list pending proposals failed")
		return
	}

	for _, p := range proposals {
		if p.Proposer == pv.signer || approvedBy(p, pv.signer) {
			continue
		}

		ok, err := pv.validate(ctx, p)
		if err != nil {
			pv.log.WithError(err).WithField("proposal_id", p.ProposalID).Warn("proposal validation failed")
			continue
		}
		if !ok {
			pv.log.WithField("proposal_id", p.ProposalID).
				WithField("proposer", p.Proposer).
				Warn(ports.ErrValidationMismatch.Error())
			continue
		}

		if err := pv.submit.ApproveProposal(ctx, pv.signer, p.ProposalID); err != nil {
			pv.log.WithError(err).WithField("proposal_id", p.ProposalID).Warn("approve failed")
		}
	}
}

func (pv *proposalValidator) validate(ctx context.Context, p *ports.Proposal) (bool, error) {
	switch {
	case p.VaultUpdate != nil:
		return pv.validateVaultUpdate(ctx, p.VaultUpdate)
	case p.DepositProcess != nil:
		return pv.validateDepositProcess(ctx, p.DepositProcess)
	case p.SidechainTxCreate != nil:
		return pv.validateTxCreate(ctx, p.SidechainTxCreate)
	}
	// An op this core doesn't produce is never approved.
	return false, nil
}

func (pv *proposalValidator) validateVaultUpdate(ctx context.Context, op *ports.VaultUpdateOp) (bool, error) {
	if op.Sidechain != sidechainBitcoin {
		return false, nil
	}
	active, err := pv.view.ActiveSigners(ctx)
	if err != nil {
		return false, err
	}
	address, _, _, err := pv.engine.ReconstructVaultAddress(active)
	if err != nil {
		return false, err
	}
	expectedJSON, err := vaultAddressJSON(address)
	if err != nil {
		return false, err
	}
	return op.VaultID == address && reconstructionsEqual(op.AddressJSON, expectedJSON), nil
}

func (pv *proposalValidator) validateDepositProcess(ctx context.Context, op *ports.DepositProcessOp) (bool, error) {
	d, err := pv.view.GetDeposit(ctx, op.DepositID)
	if err != nil {
		return false, err
	}
	if d == nil || d.DepositID == "" {
		return false, nil
	}
	return pv.watcher.ConfirmDeposit(ctx, d)
}

// validateTxCreate resolves the linked object and rebuilds the unsigned
// transaction through the same construction rule the proposer was
// supposed to use. A fee-estimator or node divergence makes the payloads
// differ and the proposal is declined rather than approximated.
func (pv *proposalValidator) validateTxCreate(ctx context.Context, op *ports.SidechainTxCreateOp) (bool, error) {
	if op.Sidechain != sidechainBitcoin {
		return false, nil
	}

	activeVault, hasActive, err := pv.view.ActiveVault(ctx)
	if err != nil {
		return false, err
	}

	if d, err := pv.view.GetDeposit(ctx, op.LinkedObjectID); err != nil {
		return false, err
	} else if d != nil && d.DepositID != "" {
		if !hasActive {
			return false, nil
		}
		confirmed, err := pv.watcher.ConfirmDeposit(ctx, d)
		if err != nil || !confirmed {
			return false, err
		}
		expected, err := pv.engine.BuildDepositTx(ctx, activeVault, d)
		if err != nil {
			return false, err
		}
		return snapshotsMatch(op, activeVault.Signers) && reconstructionsEqual(op.UnsignedTxPayload, expected), nil
	}

	if w, err := pv.view.GetWithdrawal(ctx, op.LinkedObjectID); err != nil {
		return false, err
	} else if w != nil && w.WithdrawID != "" {
		if !hasActive {
			return false, nil
		}
		utxos, err := pv.view.VaultUTXOs(ctx, activeVault.VaultID)
		if err != nil {
			return false, err
		}
		expected, _, err := pv.engine.BuildWithdrawalTx(ctx, activeVault, utxos, w)
		if err != nil {
			return false, err
		}
		return snapshotsMatch(op, activeVault.Signers) && reconstructionsEqual(op.UnsignedTxPayload, expected), nil
	}

	prev, hasPrev, err := pv.view.PreviousVault(ctx)
	if err != nil {
		return false, err
	}
	if hasPrev && prev.VaultID == op.LinkedObjectID {
		if !hasActive {
			return false, nil
		}
		expected, _, err := pv.engine.BuildSweepTx(ctx, prev, activeVault)
		if err != nil {
			return false, err
		}
		return snapshotsMatch(op, prev.Signers) && reconstructionsEqual(op.UnsignedTxPayload, expected), nil
	}

	return false, nil
}

func snapshotsMatch(op *ports.SidechainTxCreateOp, expected domain.SignerSet) bool {
	return op.SignersSnapshot.Sorted().Equal(expected.Sorted())
}

func approvedBy(p *ports.Proposal, signerID string) bool {
	for _, id := range p.ApprovedBy {
		if id == signerID {
			return true
		}
	}
	return false
}

// pendingProposalObjects indexes the pending proposals by linked object
// id, so only the first signer to process an observable creates the
// proposal and everyone else approves it instead of duplicating it.
func pendingProposalObjects(ctx context.Context, view ports.HostChainView) map[string]bool {
	proposals, err := view.PendingProposals(ctx)
	if err != nil {
		return nil
	}
	pending := make(map[string]bool, len(proposals))
	for _, p := range proposals {
		if id := p.LinkedObjectID(); id != "" {
			pending[id] = true
		}
	}
	return pending
}
