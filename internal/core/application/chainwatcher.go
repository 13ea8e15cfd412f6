package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// chainWatcher consumes hashblock notifications, fetches the block, and
// classifies its outputs against the tracked deposit-address set,
// emitting one Event per matched output.
type chainWatcher struct {
	rpc     ports.BitcoinRPC
	view    ports.HostChainView
	minConf uint32

	log *log.Entry
}

func newChainWatcher(rpc ports.BitcoinRPC, view ports.HostChainView, minConf uint32) *chainWatcher {
	return &chainWatcher{
		rpc:     rpc,
		view:    view,
		minConf: minConf,
		log:     log.WithField("component", "chainwatcher"),
	}
}

// HandleBlock fetches blockHash and returns one Event per output paid to
// a tracked deposit address. Callers are responsible for de-duplicating
// by uid; calling this twice with the same block yields events with the
// same uids, differing only in Timestamp.
func (w *chainWatcher) HandleBlock(ctx context.Context, blockHash string) ([]domain.Event, error) {
	block, err := w.rpc.GetBlock(ctx, blockHash)
	if err != nil {
		w.log.WithError(err).WithField("hash", blockHash).Warn("get block failed")
		return nil, err
	}

	now := time.Now().Unix()
	var events []domain.Event

	for _, tx := range block.Txs {
		for _, vout := range tx.Vout {
			for _, address := range vout.Addresses {
				_, tracked, err := w.view.DepositAddress(ctx, address)
				if err != nil {
					w.log.WithError(err).WithField("address", address).Warn("deposit address lookup failed")
					continue
				}
				if !tracked {
					continue
				}

				events = append(events, domain.Event{
					Timestamp: now,
					BlockNum:  block.Height,
					UID:       domain.DepositUID(tx.Txid, vout.Vout),
					Txid:      tx.Txid,
					Vout:      vout.Vout,
					Address:   address,
					AmountSat: vout.AmountSat,
				})
			}
		}
	}

	return events, nil
}

// ConfirmDeposit refetches d.Txid and reports whether it still matches
// the deposit's recorded txid/address/amount/vout and has reached
// min_tx_confirmations, the deterministic rule behind deposit_process
// proposals.
func (w *chainWatcher) ConfirmDeposit(ctx context.Context, d *domain.Deposit) (bool, error) {
	info, err := w.rpc.GetTransaction(ctx, d.Txid)
	if err != nil {
		return false, fmt.Errorf("confirm deposit %s: %w", d.UID, err)
	}
	if info.Confirmations < w.minConf {
		return false, nil
	}

	for _, detail := range info.Details {
		if detail.Vout == d.Vout && detail.Address == d.Address && detail.AmountSat == d.AmountSat {
			return true, nil
		}
	}
	return false, nil
}
