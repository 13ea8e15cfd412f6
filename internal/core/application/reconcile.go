package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// reconciler is the proposing side of the state machine: it turns pending deposits and
// withdrawals into sidechain_tx_create / deposit_process proposals. It
// never guesses: every proposal it emits is the deterministic
// reconstruction a peer can independently validate.
type reconciler struct {
	view    ports.HostChainView
	submit  ports.HostChainSubmit
	engine  *proposalEngine
	watcher *chainWatcher
	payer   string

	log *log.Entry
}

func newReconciler(view ports.HostChainView, submit ports.HostChainSubmit, engine *proposalEngine, watcher *chainWatcher, payer string) *reconciler {
	return &reconciler{
		view: view, submit: submit, engine: engine, watcher: watcher, payer: payer,
		log: log.WithField("component", "proposals"),
	}
}

func (r *reconciler) proposalLifetime(ctx context.Context) time.Duration {
	interval, err := r.view.BlockInterval(ctx)
	if err != nil {
		interval = 3 * time.Second
	}
	witnesses, err := r.view.ActiveWitnessCount(ctx)
	if err != nil || witnesses <= 0 {
		witnesses = 1
	}
	return 3 * interval * time.Duration(witnesses)
}

// ReconcileDeposits drives every pending deposit toward deposit_process /
// sidechain_tx_create proposals via their deterministic construction
// rules.
func (r *reconciler) ReconcileDeposits(ctx context.Context) {
	lifetime := r.proposalLifetime(ctx)

	deposits, err := r.view.PendingDeposits(ctx)
	if err != nil {
		r.log.WithError(err).Warn("list pending deposits failed")
		return
	}

	activeVault, hasActive, err := r.view.ActiveVault(ctx)
	if err != nil || !hasActive {
		return
	}

	pending := pendingProposalObjects(ctx, r.view)

	for _, d := range deposits {
		if pending[d.DepositID] {
			continue // proposal already pending; the validator approves it
		}
		if err := r.reconcileOneDeposit(ctx, lifetime, activeVault, d); err != nil {
			r.log.WithError(err).WithField("deposit_id", d.DepositID).Warn("deposit reconcile failed")
		}
	}
}

func (r *reconciler) reconcileOneDeposit(ctx context.Context, lifetime time.Duration, vault *domain.Vault, d *domain.Deposit) error {
	switch d.State {
	case domain.DepositObserved:
		confirmed, err := r.watcher.ConfirmDeposit(ctx, d)
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
		payload, err := r.engine.BuildDepositTx(ctx, vault, d)
		if err != nil {
			return err
		}
		return r.submit.ProposeSidechainTxCreate(ctx, ports.SidechainTxCreateOp{
			Payer:             r.payer,
			LinkedObjectID:    d.DepositID,
			Sidechain:         sidechainBitcoin,
			UnsignedTxPayload: payload,
			SignersSnapshot:   vault.Signers,
		}, lifetime)

	case domain.DepositProposed:
		confirmed, err := r.watcher.ConfirmDeposit(ctx, d)
		if err != nil || !confirmed {
			return err
		}
		return r.submit.ProposeDepositProcess(ctx, ports.DepositProcessOp{
			Payer:     r.payer,
			DepositID: d.DepositID,
		}, lifetime)
	}
	return nil
}

// ReconcileWithdrawals drives every requested withdrawal toward a
// sidechain_tx_create proposal spending the active vault.
func (r *reconciler) ReconcileWithdrawals(ctx context.Context) {
	lifetime := r.proposalLifetime(ctx)

	withdrawals, err := r.view.PendingWithdrawals(ctx)
	if err != nil {
		r.log.WithError(err).Warn("list pending withdrawals failed")
		return
	}

	activeVault, hasActive, err := r.view.ActiveVault(ctx)
	if err != nil || !hasActive {
		return
	}

	pending := pendingProposalObjects(ctx, r.view)

	for _, w := range withdrawals {
		if w.State != domain.WithdrawalRequested || pending[w.WithdrawID] {
			continue
		}
		if err := r.reconcileOneWithdrawal(ctx, lifetime, activeVault, w); err != nil {
			r.log.WithError(err).WithField("withdraw_id", w.WithdrawID).Warn("withdrawal reconcile failed")
		}
	}
}

func (r *reconciler) reconcileOneWithdrawal(ctx context.Context, lifetime time.Duration, vault *domain.Vault, w *domain.Withdrawal) error {
	utxos, err := r.view.VaultUTXOs(ctx, vault.VaultID)
	if err != nil {
		return fmt.Errorf("withdrawal: vault utxos: %w", err)
	}

	payload, _, err := r.engine.BuildWithdrawalTx(ctx, vault, utxos, w)
	if err != nil {
		return err
	}

	return r.submit.ProposeSidechainTxCreate(ctx, ports.SidechainTxCreateOp{
		Payer:             r.payer,
		LinkedObjectID:    w.WithdrawID,
		Sidechain:         sidechainBitcoin,
		UnsignedTxPayload: payload,
		SignersSnapshot:   vault.Signers,
	}, lifetime)
}
