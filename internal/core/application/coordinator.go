// Package application is the signer coordinator core: it consumes a
// Bitcoin node adapter and a host-chain capability set and drives
// deposits, withdrawals and vault rotations to completion.
package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/peerplays-network/son-bitcoin/internal/config"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// reconcileDebounceWindow coalesces bursts of host-chain change
// notifications into one reconcile pass: real work is deferred a few
// milliseconds so a burst collapses to a single sweep.
const reconcileDebounceWindow = 5 * time.Millisecond

// reconcileKey is the debouncer's single coalescing bucket: every host
// chain change batch collapses onto the same key, since a reconcile pass
// always re-walks the full working set.
const reconcileKey = "reconcile"

// Coordinator is the single mutable context of one signer process: it
// carries the wallet passphrase, key map and network enum, with no
// process-wide global state.
type Coordinator struct {
	rpc        ports.BitcoinRPC
	blockTopic ports.BlockTopic
	view       ports.HostChainView
	submit     ports.HostChainSubmit
	observer   ports.ProposalObserver
	scheduler  ports.SchedulerService

	signerID         string
	walletPassphrase string
	minConfirmations uint32

	watcher   *chainWatcher
	engine    *proposalEngine
	recon     *reconciler
	validator *proposalValidator
	vault     *vaultLifecycle
	signer    *signerCoordinator
	debounce  *debouncer

	log *log.Entry

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewCoordinator builds a Coordinator from its external collaborators.
// network is resolved once at startup via rpc.Network() by the caller
// and threaded through every address-deriving component.
func NewCoordinator(
	cfg *config.Config,
	rpc ports.BitcoinRPC,
	blockTopic ports.BlockTopic,
	view ports.HostChainView,
	submit ports.HostChainSubmit,
	observer ports.ProposalObserver,
	scheduler ports.SchedulerService,
	network ports.Network,
) *Coordinator {
	keys := newKeyring(cfg.PrivateKeys)
	engine := newProposalEngine(rpc, network)
	watcher := newChainWatcher(rpc, view, cfg.MinConfirmations)

	return &Coordinator{
		rpc:              rpc,
		blockTopic:       blockTopic,
		view:             view,
		submit:           submit,
		observer:         observer,
		scheduler:        scheduler,
		signerID:         cfg.SignerID,
		walletPassphrase: cfg.WalletPassword,
		minConfirmations: cfg.MinConfirmations,
		watcher:          watcher,
		engine:           engine,
		recon:            newReconciler(view, submit, engine, watcher, cfg.SignerID),
		validator:        newProposalValidator(view, submit, engine, watcher, cfg.SignerID),
		vault:            newVaultLifecycle(view, submit, engine, rpc),
		signer:           newSignerCoordinator(rpc, submit, keys, cfg.SignerID),
		log:              log.WithField("component", "coordinator"),
	}
}

// Start launches the long-lived actors: the ZMQ listener loop, the
// debounced host-chain change observer, and a
// scheduled periodic reconcile sweep (the fallback for any change this
// process's own block/host-chain observers missed). It returns once
// every actor is running; call Stop to shut down.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	c.debounce = newDebouncer(reconcileDebounceWindow, func(string) {
		c.reconcileAll(runCtx)
	})

	blocks, err := c.blockTopic.Subscribe(runCtx)
	if err != nil {
		return err
	}
	go c.runBlockLoop(runCtx, blocks)

	changes, err := c.observer.Changes(runCtx)
	if err != nil {
		return err
	}
	go c.runChangeLoop(runCtx, changes)

	c.scheduler.Start()
	c.scheduler.ScheduleTask(30, false, func() {
		c.reconcileAll(runCtx)
	})

	return nil
}

// Stop cancels every actor and joins the scheduler and debouncer
// cleanly; outstanding RPCs are left to finish and their results
// discarded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	if c.cancel != nil {
		c.cancel()
	}
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.scheduler.Stop()
	_ = c.blockTopic.Close()
}

func (c *Coordinator) runBlockLoop(ctx context.Context, blocks <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case hash, ok := <-blocks:
			if !ok {
				return
			}
			c.handleBlock(ctx, hash)
		}
	}
}

func (c *Coordinator) runChangeLoop(ctx context.Context, changes <-chan []string) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-changes:
			if !ok {
				return
			}
			for range batch {
				c.debounce.Trigger(reconcileKey)
			}
		}
	}
}

// handleBlock scans a freshly announced block for deposits.
// Event emission into a persisted deposit record is the host chain's
// job; once that record exists, the next reconcile pass picks it up via
// PendingDeposits.
func (c *Coordinator) handleBlock(ctx context.Context, blockHash string) {
	events, err := c.watcher.HandleBlock(ctx, blockHash)
	if err != nil {
		c.log.WithError(err).WithField("block", blockHash).Warn("block scan failed")
		return
	}
	if len(events) > 0 {
		c.log.WithField("block", blockHash).WithField("deposits", len(events)).Info("deposits observed")
	}
	c.debounce.Trigger(reconcileKey)
}

// reconcileAll runs one full sweep: peer-proposal validation
// first (so an observable another signer already proposed gets this
// signer's approval instead of a duplicate proposal), then vault
// rotation, pending deposits, pending withdrawals, and finally every
// open sidechain transaction. A fresh vault_update must land before
// deposits/withdrawals target it, which PendingDeposits' ActiveVault
// lookup already enforces.
func (c *Coordinator) reconcileAll(ctx context.Context) {
	c.validator.ValidateAll(ctx)

	if err := c.vault.Reconcile(ctx, c.recon.proposalLifetime(ctx), c.signerID); err != nil {
		c.log.WithError(err).Warn("vault reconcile failed")
	}

	c.recon.ReconcileDeposits(ctx)
	c.recon.ReconcileWithdrawals(ctx)

	txs, err := c.view.OpenSidechainTxs(ctx)
	if err != nil {
		c.log.WithError(err).Warn("list open sidechain txs failed")
		return
	}
	for _, tx := range txs {
		if err := c.signer.Advance(ctx, c.walletPassphrase, tx); err != nil {
			c.log.WithError(err).WithField("stx_id", tx.StxID).Warn("signer advance failed")
		}
	}
}
