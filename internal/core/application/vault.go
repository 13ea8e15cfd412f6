package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

const sidechainBitcoin = "bitcoin"

// vaultLifecycle owns the vault rotation flow: when the active signer
// set changes, derive the new vault address and, once it exists,
// schedule a sweep of the previous vault into it.
type vaultLifecycle struct {
	view   ports.HostChainView
	submit ports.HostChainSubmit
	engine *proposalEngine
	rpc    ports.BitcoinRPC

	log *log.Entry
}

func newVaultLifecycle(view ports.HostChainView, submit ports.HostChainSubmit, engine *proposalEngine, rpc ports.BitcoinRPC) *vaultLifecycle {
	return &vaultLifecycle{view: view, submit: submit, engine: engine, rpc: rpc, log: log.WithField("component", "vault")}
}

// Reconcile runs one rotation step: propose a vault_update if the active
// signer set has no vault yet, otherwise propose the prev-vault sweep if
// one hasn't already been created.
func (v *vaultLifecycle) Reconcile(ctx context.Context, lifetime time.Duration, payer string) error {
	active, err := v.view.ActiveSigners(ctx)
	if err != nil {
		return fmt.Errorf("vault: active signers: %w", err)
	}

	activeVault, hasActive, err := v.view.ActiveVault(ctx)
	if err != nil {
		return fmt.Errorf("vault: active vault: %w", err)
	}

	pending := pendingProposalObjects(ctx, v.view)

	if !hasActive || activeVault.IsObsolete(active) {
		return v.proposeRotation(ctx, lifetime, payer, active, pending)
	}

	return v.proposeSweep(ctx, lifetime, payer, activeVault, pending)
}

func (v *vaultLifecycle) proposeRotation(ctx context.Context, lifetime time.Duration, payer string, active domain.SignerSet, pending map[string]bool) error {
	address, _, _, err := v.engine.ReconstructVaultAddress(active)
	if err != nil {
		return fmt.Errorf("vault: derive address: %w", err)
	}

	// Track the vault on the node wallet regardless of which signer's
	// proposal wins; importaddress is idempotent.
	if err := v.rpc.ImportAddress(ctx, address); err != nil {
		v.log.WithError(err).WithField("address", address).Warn("import vault address failed")
	}

	if pending[address] {
		return nil // another signer already proposed this rotation
	}

	addressJSON, err := vaultAddressJSON(address)
	if err != nil {
		return err
	}

	return v.submit.ProposeVaultUpdate(ctx, ports.VaultUpdateOp{
		Payer:       payer,
		VaultID:     address,
		Sidechain:   sidechainBitcoin,
		AddressJSON: addressJSON,
	}, lifetime)
}

// proposeSweep, once the new vault is active, moves the previous vault's
// remaining UTXOs to it via a coordinated sidechain_tx_create, minus the
// fee.
func (v *vaultLifecycle) proposeSweep(ctx context.Context, lifetime time.Duration, payer string, activeVault *domain.Vault, pending map[string]bool) error {
	prevVault, hasPrev, err := v.view.PreviousVault(ctx)
	if err != nil {
		return fmt.Errorf("vault: previous vault: %w", err)
	}
	if !hasPrev || prevVault.VaultID == activeVault.VaultID {
		return nil
	}
	if pending[prevVault.VaultID] {
		return nil // sweep already proposed; the validator approves it instead
	}

	utxos, err := v.view.VaultUTXOs(ctx, prevVault.VaultID)
	if err != nil {
		return fmt.Errorf("vault: prev vault utxos: %w", err)
	}
	if len(utxos) == 0 {
		return nil // previous vault already swept dry; purely historical now
	}

	payload, _, err := v.engine.BuildSweepTx(ctx, prevVault, activeVault)
	if err != nil {
		return fmt.Errorf("vault: build sweep: %w", err)
	}

	return v.submit.ProposeSidechainTxCreate(ctx, ports.SidechainTxCreateOp{
		Payer:             payer,
		LinkedObjectID:    prevVault.VaultID,
		Sidechain:         sidechainBitcoin,
		UnsignedTxPayload: payload,
		SignersSnapshot:   prevVault.Signers,
	}, lifetime)
}

// vaultAddressJSON encodes the vault_update operation's address field,
// matching the host chain's address_json shape.
func vaultAddressJSON(address string) (string, error) {
	out, err := json.Marshal(struct {
		Address string `json:"address"`
	}{Address: address})
	if err != nil {
		return "", fmt.Errorf("vault: marshal address: %w", err)
	}
	return string(out), nil
}
