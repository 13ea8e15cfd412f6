package application

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
	"github.com/peerplays-network/son-bitcoin/internal/infrastructure/multisig"
)

// feeFloor is the minimum sats-per-transaction fee applied whenever the
// node's own estimator can't be trusted or returns nothing. bitcoinrpc's
// EstimateFeeRate already floors at this value.
const feeFloor = 1000

// proposalEngine holds the deterministic reconstruction rules: the
// same functions build a proposal and validate one received from a peer,
// so two honest signers that observe the same node state always produce
// byte-identical output.
type proposalEngine struct {
	rpc     ports.BitcoinRPC
	network ports.Network
}

func newProposalEngine(rpc ports.BitcoinRPC, network ports.Network) *proposalEngine {
	return &proposalEngine{rpc: rpc, network: network}
}

// ReconstructVaultAddress derives the weighted P2SH-P2WSH vault address
// for an active signer set. The standalone-derivation path is
// normative: this is the only address-construction rule this core
// trusts, never addmultisigaddress/createmultisig's plain n-of-m form.
func (p *proposalEngine) ReconstructVaultAddress(signers domain.SignerSet) (address string, witnessScript, redeemScript []byte, err error) {
	sorted := signers.Sorted()
	witnessScript, err = multisig.BuildWitnessScript(sorted)
	if err != nil {
		return "", nil, nil, err
	}
	address, redeemScript, err = multisig.DeriveAddress(witnessScript, p.network)
	if err != nil {
		return "", nil, nil, err
	}
	return address, witnessScript, redeemScript, nil
}

// ValidateVaultUpdate approves a vault_update proposal iff its address
// reconstructs from the active signer set.
func (p *proposalEngine) ValidateVaultUpdate(signers domain.SignerSet, proposedAddress string) (bool, error) {
	address, _, _, err := p.ReconstructVaultAddress(signers)
	if err != nil {
		return false, err
	}
	return address == proposedAddress, nil
}

func (p *proposalEngine) fee(ctx context.Context) uint64 {
	rate := p.rpc.EstimateFeeRate(ctx, 6)
	if rate < feeFloor {
		return feeFloor
	}
	return rate
}

// BuildSweepTx rebuilds the prev-vault-to-new-vault rotation sweep:
// every UTXO of prevVault spent, a single output to newVault.Address for
// the sum minus the fee.
func (p *proposalEngine) BuildSweepTx(ctx context.Context, prevVault, newVault *domain.Vault) (payload string, inAmounts []uint64, err error) {
	utxos, err := p.rpc.ListUnspent(ctx, prevVault.Address, 0)
	if err != nil {
		return "", nil, fmt.Errorf("sweep: list unspent: %w", err)
	}
	if len(utxos) == 0 {
		return "", nil, fmt.Errorf("sweep: prev vault has no utxos")
	}

	var total uint64
	for _, u := range utxos {
		total += u.AmountSat
	}
	fee := p.fee(ctx)
	if total <= fee {
		return "", nil, fmt.Errorf("sweep: total %d does not cover fee %d", total, fee)
	}

	tx, inAmounts, err := buildStandaloneTx(utxos, map[string]uint64{
		newVault.Address: total - fee,
	})
	if err != nil {
		return "", nil, err
	}

	payload, err = multisig.EncodeStandalonePayload(tx, inAmounts)
	return payload, inAmounts, err
}

// BuildDepositTx rebuilds the single-input PSBT that moves a confirmed
// deposit into the active vault.
func (p *proposalEngine) BuildDepositTx(ctx context.Context, vault *domain.Vault, deposit *domain.Deposit) (string, error) {
	fee := p.fee(ctx)
	if deposit.AmountSat <= fee {
		return "", fmt.Errorf("deposit: amount %d does not cover fee %d", deposit.AmountSat, fee)
	}

	ins := []ports.Utxo{{Txid: deposit.Txid, Vout: deposit.Vout, AmountSat: deposit.AmountSat}}
	outs := map[string]uint64{vault.Address: deposit.AmountSat - fee}

	psbtB64, err := p.rpc.CreatePSBT(ctx, ins, outs)
	if err != nil {
		return "", err
	}
	if err := validatePSBTShape(psbtB64, len(ins)); err != nil {
		return "", fmt.Errorf("deposit: %w", err)
	}
	return psbtB64, nil
}

// validatePSBTShape decodes the node's createpsbt output and confirms it
// has exactly wantIns inputs before this signer proposes it to peers, a
// sanity check this core can run without a wallet since BuildDepositTx's
// PSBT never carries a signature yet.
func validatePSBTShape(psbtB64 string, wantIns int) error {
	packet, err := psbt.NewFromRawBytes(strings.NewReader(psbtB64), true)
	if err != nil {
		return fmt.Errorf("parse psbt: %w", err)
	}
	if len(packet.UnsignedTx.TxIn) != wantIns {
		return fmt.Errorf("psbt has %d inputs, want %d", len(packet.UnsignedTx.TxIn), wantIns)
	}
	return nil
}

// BuildWithdrawalTx rebuilds the withdrawal tx: every UTXO of the active
// vault spent, the requested amount paid to the destination, change
// returned to the vault.
func (p *proposalEngine) BuildWithdrawalTx(ctx context.Context, vault *domain.Vault, vaultUtxos []ports.Utxo, withdrawal *domain.Withdrawal) (payload string, inAmounts []uint64, err error) {
	if len(vaultUtxos) == 0 {
		return "", nil, fmt.Errorf("withdrawal: active vault has no utxos")
	}

	var total uint64
	for _, u := range vaultUtxos {
		total += u.AmountSat
	}
	fee := p.fee(ctx)
	if total < withdrawal.AmountSat+fee {
		return "", nil, fmt.Errorf("withdrawal: insufficient vault balance")
	}

	outs := map[string]uint64{withdrawal.DestinationAddr: withdrawal.AmountSat}
	change := total - withdrawal.AmountSat - fee
	if change > 0 {
		outs[vault.Address] = change
	}

	tx, inAmounts, err := buildStandaloneTx(vaultUtxos, outs)
	if err != nil {
		return "", nil, err
	}

	payload, err = multisig.EncodeStandalonePayload(tx, inAmounts)
	return payload, inAmounts, err
}

// buildStandaloneTx assembles an unsigned wire.TxVersion (version 1) transaction from a
// UTXO set and an output amount map. Output ordering is the sorted-key
// order of outs so the same map always produces the same tx bytes.
func buildStandaloneTx(utxos []ports.Utxo, outs map[string]uint64) (*wire.MsgTx, []uint64, error) {
	tx := wire.NewMsgTx(wire.TxVersion)

	inAmounts := make([]uint64, len(utxos))
	for i, u := range utxos {
		hash, err := chainhash.NewHashFromStr(u.Txid)
		if err != nil {
			return nil, nil, fmt.Errorf("bad txid %s: %w", u.Txid, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil))
		inAmounts[i] = u.AmountSat
	}

	for _, addr := range sortedKeys(outs) {
		pkScript, err := addressToScript(addr)
		if err != nil {
			return nil, nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(outs[addr]), pkScript))
	}

	return tx, inAmounts, nil
}

// reconstructionsEqual compares two serialized proposal payloads for
// byte-identical equality, the sole criterion this core ever uses to
// approve a sidechain_tx_create proposal.
func reconstructionsEqual(a, b string) bool {
	return bytes.Equal([]byte(a), []byte(b))
}
