package application

import (
	"bytes"
	"context"
	"encoding/base64"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// fakeBitcoinRPC is a minimal ports.BitcoinRPC double. Every method not
// exercised by a given test returns its zero value; SendRaw records the
// broadcast hex so tests can assert whether a broadcast happened.
type fakeBitcoinRPC struct {
	sentRaw string
	sendErr error

	network      ports.Network
	feeRateSat   uint64
	utxos        []ports.Utxo
	txInfo       *ports.TxInfo
	block        *ports.Block
	combinePSBT  func(psbts []string) (string, error)
	finalizePSBT func(psbt string) (string, bool, error)
	processPSBT  func(psbt string) (string, bool, error)
}

func (f *fakeBitcoinRPC) EstimateFeeRate(ctx context.Context, targetBlocks int64) uint64 {
	if f.feeRateSat == 0 {
		return 1000
	}
	return f.feeRateSat
}

func (f *fakeBitcoinRPC) ListUnspent(ctx context.Context, address string, minAmountSat uint64) ([]ports.Utxo, error) {
	return f.utxos, nil
}

func (f *fakeBitcoinRPC) GetTransaction(ctx context.Context, txid string) (*ports.TxInfo, error) {
	if f.txInfo != nil {
		return f.txInfo, nil
	}
	return &ports.TxInfo{Txid: txid}, nil
}

func (f *fakeBitcoinRPC) GetBlock(ctx context.Context, hash string) (*ports.Block, error) {
	if f.block != nil {
		return f.block, nil
	}
	return &ports.Block{Hash: hash}, nil
}

func (f *fakeBitcoinRPC) SendRaw(ctx context.Context, txHex string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sentRaw = txHex
	return nil
}

func (f *fakeBitcoinRPC) CombinePSBT(ctx context.Context, psbts []string) (string, error) {
	if f.combinePSBT != nil {
		return f.combinePSBT(psbts)
	}
	return "", ports.ErrTransientRPC
}

func (f *fakeBitcoinRPC) FinalizePSBT(ctx context.Context, psbt string) (string, bool, error) {
	if f.finalizePSBT != nil {
		return f.finalizePSBT(psbt)
	}
	return "", false, nil
}

func (f *fakeBitcoinRPC) WalletProcessPSBT(ctx context.Context, psbt string) (string, bool, error) {
	if f.processPSBT != nil {
		return f.processPSBT(psbt)
	}
	return psbt, false, nil
}

func (f *fakeBitcoinRPC) SignRawTransactionWithWallet(ctx context.Context, txHex string) (string, bool, error) {
	return txHex, true, nil
}

func (f *fakeBitcoinRPC) AddMultisigAddress(ctx context.Context, nrequired int, pubkeys []string) (string, string, error) {
	return "", "", nil
}

func (f *fakeBitcoinRPC) CreateMultisig(ctx context.Context, nrequired int, pubkeys []string) (string, string, error) {
	return "", "", nil
}

// CreatePSBT mirrors bitcoind's createpsbt deterministically: same
// inputs and outputs always produce the same base64 packet, which is
// what lets reconstruction-equality tests exercise the real comparison.
func (f *fakeBitcoinRPC) CreatePSBT(ctx context.Context, ins []ports.Utxo, outs map[string]uint64) (string, error) {
	tx, _, err := buildStandaloneTx(ins, outs)
	if err != nil {
		return "", err
	}
	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (f *fakeBitcoinRPC) CreateRawTransaction(ctx context.Context, ins []ports.Utxo, outs map[string]uint64) (string, error) {
	return "", nil
}

func (f *fakeBitcoinRPC) ImportAddress(ctx context.Context, addressOrScript string) error { return nil }

func (f *fakeBitcoinRPC) WalletPassphrase(ctx context.Context, passphrase string, timeoutSec int64) error {
	return nil
}

func (f *fakeBitcoinRPC) WalletLock(ctx context.Context) error { return nil }

func (f *fakeBitcoinRPC) LoadWallet(ctx context.Context, walletName string) error { return nil }

func (f *fakeBitcoinRPC) UnloadWallet(ctx context.Context, walletName string) error { return nil }

func (f *fakeBitcoinRPC) Network(ctx context.Context) (ports.Network, error) { return f.network, nil }

// fakeSignSubmit records every operation handed to ports.HostChainSubmit
// without modelling host-chain state; tests assert on the captured calls.
type fakeSignSubmit struct {
	vaultUpdateCalls    []ports.VaultUpdateOp
	depositProcessCalls []ports.DepositProcessOp
	createCalls         []ports.SidechainTxCreateOp
	signCalls           []ports.SidechainTxSignOp
	processCalls        []ports.SidechainTxProcessOp
	approveCalls        []string
}

func (f *fakeSignSubmit) ApproveProposal(ctx context.Context, payer, proposalID string) error {
	f.approveCalls = append(f.approveCalls, proposalID)
	return nil
}

func (f *fakeSignSubmit) ProposeVaultUpdate(ctx context.Context, op ports.VaultUpdateOp, lifetime time.Duration) error {
	f.vaultUpdateCalls = append(f.vaultUpdateCalls, op)
	return nil
}

func (f *fakeSignSubmit) ProposeDepositProcess(ctx context.Context, op ports.DepositProcessOp, lifetime time.Duration) error {
	f.depositProcessCalls = append(f.depositProcessCalls, op)
	return nil
}

func (f *fakeSignSubmit) ProposeSidechainTxCreate(ctx context.Context, op ports.SidechainTxCreateOp, lifetime time.Duration) error {
	f.createCalls = append(f.createCalls, op)
	return nil
}

func (f *fakeSignSubmit) SubmitSidechainTxSign(ctx context.Context, op ports.SidechainTxSignOp) error {
	f.signCalls = append(f.signCalls, op)
	return nil
}

func (f *fakeSignSubmit) SubmitSidechainTxProcess(ctx context.Context, op ports.SidechainTxProcessOp) error {
	f.processCalls = append(f.processCalls, op)
	return nil
}

// fakeHostChainView is a scriptable ports.HostChainView double for the
// vault-lifecycle and reconciler tests.
type fakeHostChainView struct {
	activeSigners domain.SignerSet
	activeVault   *domain.Vault
	hasActive     bool
	prevVault     *domain.Vault
	hasPrev       bool
	vaultUTXOs    map[string][]ports.Utxo

	pendingDeposits    []*domain.Deposit
	pendingWithdrawals []*domain.Withdrawal
	openTxs            []*domain.SidechainTx
	pendingProposals   []*ports.Proposal

	blockInterval time.Duration
	witnessCount  int
	minConf       uint32
}

func (v *fakeHostChainView) ActiveSigners(ctx context.Context) (domain.SignerSet, error) {
	return v.activeSigners, nil
}

func (v *fakeHostChainView) HeadBlockTime(ctx context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (v *fakeHostChainView) BlockInterval(ctx context.Context) (time.Duration, error) {
	if v.blockInterval == 0 {
		return 3 * time.Second, nil
	}
	return v.blockInterval, nil
}

func (v *fakeHostChainView) ActiveWitnessCount(ctx context.Context) (int, error) {
	if v.witnessCount == 0 {
		return 1, nil
	}
	return v.witnessCount, nil
}

func (v *fakeHostChainView) MinTxConfirmations(ctx context.Context) (uint32, error) {
	return v.minConf, nil
}

func (v *fakeHostChainView) DepositAddress(ctx context.Context, address string) (string, bool, error) {
	return "", false, nil
}

func (v *fakeHostChainView) ActiveVault(ctx context.Context) (*domain.Vault, bool, error) {
	return v.activeVault, v.hasActive, nil
}

func (v *fakeHostChainView) PreviousVault(ctx context.Context) (*domain.Vault, bool, error) {
	return v.prevVault, v.hasPrev, nil
}

func (v *fakeHostChainView) VaultUTXOs(ctx context.Context, vaultID string) ([]ports.Utxo, error) {
	return v.vaultUTXOs[vaultID], nil
}

func (v *fakeHostChainView) GetDeposit(ctx context.Context, depositID string) (*domain.Deposit, error) {
	for _, d := range v.pendingDeposits {
		if d.DepositID == depositID {
			return d, nil
		}
	}
	return nil, nil
}

func (v *fakeHostChainView) GetWithdrawal(ctx context.Context, withdrawID string) (*domain.Withdrawal, error) {
	for _, w := range v.pendingWithdrawals {
		if w.WithdrawID == withdrawID {
			return w, nil
		}
	}
	return nil, nil
}

func (v *fakeHostChainView) GetSidechainTx(ctx context.Context, stxID string) (*domain.SidechainTx, bool, error) {
	for _, tx := range v.openTxs {
		if tx.StxID == stxID {
			return tx, true, nil
		}
	}
	return nil, false, nil
}

func (v *fakeHostChainView) PendingDeposits(ctx context.Context) ([]*domain.Deposit, error) {
	return v.pendingDeposits, nil
}

func (v *fakeHostChainView) PendingWithdrawals(ctx context.Context) ([]*domain.Withdrawal, error) {
	return v.pendingWithdrawals, nil
}

func (v *fakeHostChainView) OpenSidechainTxs(ctx context.Context) ([]*domain.SidechainTx, error) {
	return v.openTxs, nil
}

func (v *fakeHostChainView) PendingProposals(ctx context.Context) ([]*ports.Proposal, error) {
	return v.pendingProposals, nil
}
