package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
	"github.com/peerplays-network/son-bitcoin/internal/infrastructure/multisig"
)

// signerCoordinator drives every open sidechain transaction through its
// per-object state machine: produce this signer's
// contribution, combine when the threshold is met, broadcast, and record
// the outcome.
type signerCoordinator struct {
	rpc     ports.BitcoinRPC
	submit  ports.HostChainSubmit
	keyring *keyring
	signer  string // this process's own signer_id

	log *log.Entry
}

func newSignerCoordinator(rpc ports.BitcoinRPC, submit ports.HostChainSubmit, keyring *keyring, signerID string) *signerCoordinator {
	return &signerCoordinator{
		rpc:     rpc,
		submit:  submit,
		keyring: keyring,
		signer:  signerID,
		log:     log.WithField("component", "signer"),
	}
}

// Advance drives a single open sidechain transaction one step: it signs
// if this signer hasn't yet, then broadcasts if the accumulated partials
// already suffice. Each step is idempotent.
func (s *signerCoordinator) Advance(ctx context.Context, walletPassphrase string, tx *domain.SidechainTx) error {
	if tx.State == domain.TxBroadcast || tx.State == domain.TxConfirmed || tx.State == domain.TxExpired {
		return nil
	}

	if _, signed := tx.PartialSigs[s.signer]; !signed {
		if err := s.contribute(ctx, walletPassphrase, tx); err != nil {
			s.log.WithError(err).WithField("stx_id", tx.StxID).Warn("sign failed")
			return fmt.Errorf("%w: %v", ports.ErrSigningFailed, err)
		}
	}

	return s.maybeFinalize(ctx, walletPassphrase, tx)
}

// contribute produces and submits this signer's partial, routed through
// the PSBT or standalone regime depending on the linked object type.
func (s *signerCoordinator) contribute(ctx context.Context, walletPassphrase string, tx *domain.SidechainTx) error {
	if tx.LinkedObjectType == domain.LinkedDeposit {
		return s.contributePSBT(ctx, walletPassphrase, tx)
	}
	return s.contributeStandalone(ctx, tx)
}

func (s *signerCoordinator) contributePSBT(ctx context.Context, walletPassphrase string, tx *domain.SidechainTx) error {
	var partial string
	err := withUnlockedWallet(ctx, s.rpc, walletPassphrase, func() error {
		processed, complete, err := s.rpc.WalletProcessPSBT(ctx, tx.UnsignedTxPayload)
		if err != nil {
			return err
		}
		if complete {
			partial = processed
			return nil
		}

		prior := make([]string, 0, len(tx.PartialSigs)+1)
		for _, p := range tx.PartialSigs {
			prior = append(prior, string(p))
		}
		prior = append(prior, processed)

		combined, err := s.rpc.CombinePSBT(ctx, prior)
		if err != nil {
			// Combination needs at least one other partial on record;
			// publish our own processed PSBT until then.
			partial = processed
			return nil
		}
		partial = combined
		return nil
	})
	if err != nil {
		return fmt.Errorf("signer: psbt process: %w", err)
	}

	return s.submit.SubmitSidechainTxSign(ctx, ports.SidechainTxSignOp{
		Payer:    s.signer,
		StxID:    tx.StxID,
		Partials: [][]byte{[]byte(partial)},
	})
}

func (s *signerCoordinator) contributeStandalone(ctx context.Context, tx *domain.SidechainTx) error {
	myKey := s.myPubKey(tx.SignersSnapshot)
	if myKey == "" {
		return fmt.Errorf("signer: no signing key for %s in snapshot of %s", s.signer, tx.StxID)
	}
	privHex, ok := s.keyring.privateKeyFor(myKey)
	if !ok {
		return fmt.Errorf("%w: no private key for %s", ports.ErrSigningFailed, myKey)
	}

	unsignedTx, inAmounts, err := multisig.DecodeStandalonePayload(tx.UnsignedTxPayload)
	if err != nil {
		return fmt.Errorf("signer: decode payload: %w", err)
	}
	witnessScript, err := multisig.BuildWitnessScript(tx.SignersSnapshot)
	if err != nil {
		return fmt.Errorf("signer: rebuild witness script: %w", err)
	}

	endorsements := make([][]byte, len(unsignedTx.TxIn))
	for i := range unsignedTx.TxIn {
		sig, err := multisig.Endorse(privHex, unsignedTx, i, witnessScript, inAmounts[i])
		if err != nil {
			return fmt.Errorf("signer: endorse input %d: %w", i, err)
		}
		endorsements[i] = sig
	}

	payload, err := multisig.EncodePartialSigs(endorsements)
	if err != nil {
		return err
	}

	return s.submit.SubmitSidechainTxSign(ctx, ports.SidechainTxSignOp{
		Payer:    s.signer,
		StxID:    tx.StxID,
		Partials: [][]byte{[]byte(payload)},
	})
}

func (s *signerCoordinator) myPubKey(signers domain.SignerSet) string {
	for _, signer := range signers {
		if signer.SignerID == s.signer && s.keyring.hasKeyFor(signer.SidechainKey) {
			return signer.SidechainKey
		}
	}
	return ""
}

// maybeFinalize broadcasts the finalized Bitcoin transaction once the
// accumulated partials suffice: PSBT completeness for the PSBT regime,
// contributing weight >= threshold for the standalone regime.
func (s *signerCoordinator) maybeFinalize(ctx context.Context, walletPassphrase string, tx *domain.SidechainTx) error {
	if tx.LinkedObjectType == domain.LinkedDeposit {
		return s.maybeFinalizePSBT(ctx, walletPassphrase, tx)
	}
	return s.maybeFinalizeStandalone(ctx, tx)
}

func (s *signerCoordinator) maybeFinalizePSBT(ctx context.Context, walletPassphrase string, tx *domain.SidechainTx) error {
	partials := make([]string, 0, len(tx.PartialSigs))
	for _, p := range tx.PartialSigs {
		partials = append(partials, string(p))
	}
	if len(partials) == 0 {
		return nil
	}

	combined, err := s.rpc.CombinePSBT(ctx, partials)
	if err != nil {
		return nil // not enough partials to combine yet; try again next round
	}

	var txHex string
	var complete bool
	err = withUnlockedWallet(ctx, s.rpc, walletPassphrase, func() error {
		var ferr error
		txHex, complete, ferr = s.rpc.FinalizePSBT(ctx, combined)
		return ferr
	})
	if err != nil || !complete {
		return nil
	}

	return s.broadcast(ctx, tx, txHex)
}

func (s *signerCoordinator) maybeFinalizeStandalone(ctx context.Context, tx *domain.SidechainTx) error {
	if tx.ContributingWeight() < tx.SignersSnapshot.Threshold() {
		return nil
	}

	unsignedTx, _, err := multisig.DecodeStandalonePayload(tx.UnsignedTxPayload)
	if err != nil {
		return err
	}
	witnessScript, err := multisig.BuildWitnessScript(tx.SignersSnapshot)
	if err != nil {
		return err
	}

	for i := range unsignedTx.TxIn {
		endorsements := make(map[string][]byte, len(tx.PartialSigs))
		for signerID, payload := range tx.PartialSigs {
			sigs, err := multisig.DecodePartialSigs(string(payload))
			if err != nil || i >= len(sigs) {
				continue
			}
			endorsements[signerID] = sigs[i]
		}
		witness, err := multisig.BuildWitnessStack(tx.SignersSnapshot, endorsements, witnessScript)
		if err != nil {
			return err
		}
		unsignedTx.TxIn[i].Witness = witness
	}

	txHex, err := serializeTxHex(unsignedTx)
	if err != nil {
		return err
	}

	return s.broadcast(ctx, tx, txHex)
}

// broadcast sends the finalized transaction and records the outcome.
// sidechain_tx_process is accepted at most once per stx_id by the host
// chain; a repeated call here is harmless.
func (s *signerCoordinator) broadcast(ctx context.Context, tx *domain.SidechainTx, txHex string) error {
	if err := s.rpc.SendRaw(ctx, txHex); err != nil {
		return fmt.Errorf("signer: broadcast: %w", err)
	}

	txid, err := txidFromHex(txHex)
	if err != nil {
		return err
	}

	return s.submit.SubmitSidechainTxProcess(ctx, ports.SidechainTxProcessOp{
		Payer:       s.signer,
		StxID:       tx.StxID,
		BitcoinTxid: txid,
	})
}
