package application

import (
	"context"
	"testing"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
	"github.com/peerplays-network/son-bitcoin/internal/infrastructure/multisig"
)

// depositTxid is a syntactically valid txid shared by the deposit
// fixtures; the PSBT built for a deposit needs a parseable hash.
var depositTxid = strings64('d')

// testnetAddress derives a throwaway, but validly-encoded, P2SH-P2WSH
// address so tests exercising addressToScript don't need a real wallet.
func testnetAddress(t *testing.T, seed byte) string {
	t.Helper()
	addr, _, err := multisig.DeriveAddress([]byte{0x51, seed}, ports.Testnet)
	if err != nil {
		t.Fatalf("derive throwaway address: %v", err)
	}
	return addr
}

func activeVaultFixture(t *testing.T) (*domain.Vault, *fakeBitcoinRPC) {
	t.Helper()
	active := activeSigners3(t)
	rpc := &fakeBitcoinRPC{}
	engine := newProposalEngine(rpc, ports.Testnet)
	addr, _, _, err := engine.ReconstructVaultAddress(active)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	return &domain.Vault{VaultID: addr, Signers: active, Address: addr}, rpc
}

func TestReconcileDepositsProposesCreateOnceConfirmed(t *testing.T) {
	vault, rpc := activeVaultFixture(t)
	rpc.txInfo = &ports.TxInfo{
		Txid:          depositTxid,
		Confirmations: 6,
		Details:       []ports.TxDetailEntry{{Vout: 0, Address: "depaddr", AmountSat: 50000}},
	}

	deposit := &domain.Deposit{
		DepositID: "dep1", Txid: depositTxid, Vout: 0, Address: "depaddr",
		AmountSat: 50000, UID: domain.DepositUID(depositTxid, 0), State: domain.DepositObserved,
	}
	view := &fakeHostChainView{
		activeVault: vault, hasActive: true,
		pendingDeposits: []*domain.Deposit{deposit},
		minConf:         1,
	}
	submit := &fakeSignSubmit{}
	engine := newProposalEngine(rpc, ports.Testnet)
	watcher := newChainWatcher(rpc, view, 1)

	r := newReconciler(view, submit, engine, watcher, "son1")
	r.ReconcileDeposits(context.Background())

	if len(submit.createCalls) != 1 {
		t.Fatalf("got %d sidechain_tx_create proposals, want 1", len(submit.createCalls))
	}
	if submit.createCalls[0].LinkedObjectID != "dep1" {
		t.Fatalf("got linked object %s, want dep1", submit.createCalls[0].LinkedObjectID)
	}
}

func TestReconcileDepositsSkipsUnconfirmed(t *testing.T) {
	vault, rpc := activeVaultFixture(t)
	rpc.txInfo = &ports.TxInfo{Txid: depositTxid, Confirmations: 0}

	deposit := &domain.Deposit{
		DepositID: "dep1", Txid: depositTxid, Vout: 0, Address: "depaddr",
		AmountSat: 50000, UID: domain.DepositUID(depositTxid, 0), State: domain.DepositObserved,
	}
	view := &fakeHostChainView{activeVault: vault, hasActive: true, pendingDeposits: []*domain.Deposit{deposit}, minConf: 1}
	submit := &fakeSignSubmit{}
	engine := newProposalEngine(rpc, ports.Testnet)
	watcher := newChainWatcher(rpc, view, 1)

	r := newReconciler(view, submit, engine, watcher, "son1")
	r.ReconcileDeposits(context.Background())

	if len(submit.createCalls) != 0 {
		t.Fatal("an unconfirmed deposit must not yet be proposed")
	}
}

func TestReconcileDepositsProposesProcessOnceProposedAndConfirmed(t *testing.T) {
	vault, rpc := activeVaultFixture(t)
	rpc.txInfo = &ports.TxInfo{
		Txid:          depositTxid,
		Confirmations: 6,
		Details:       []ports.TxDetailEntry{{Vout: 0, Address: "depaddr", AmountSat: 50000}},
	}

	deposit := &domain.Deposit{
		DepositID: "dep1", Txid: depositTxid, Vout: 0, Address: "depaddr",
		AmountSat: 50000, UID: domain.DepositUID(depositTxid, 0), State: domain.DepositProposed,
	}
	view := &fakeHostChainView{activeVault: vault, hasActive: true, pendingDeposits: []*domain.Deposit{deposit}, minConf: 1}
	submit := &fakeSignSubmit{}
	engine := newProposalEngine(rpc, ports.Testnet)
	watcher := newChainWatcher(rpc, view, 1)

	r := newReconciler(view, submit, engine, watcher, "son1")
	r.ReconcileDeposits(context.Background())

	if len(submit.depositProcessCalls) != 1 {
		t.Fatalf("got %d deposit_process proposals, want 1", len(submit.depositProcessCalls))
	}
	if len(submit.createCalls) != 0 {
		t.Fatal("a deposit already in the proposed state must not get a second sidechain_tx_create")
	}
}

func TestReconcileDepositsSkipsAlreadyProposedObservable(t *testing.T) {
	vault, rpc := activeVaultFixture(t)
	rpc.txInfo = &ports.TxInfo{
		Txid:          depositTxid,
		Confirmations: 6,
		Details:       []ports.TxDetailEntry{{Vout: 0, Address: "depaddr", AmountSat: 50000}},
	}

	deposit := &domain.Deposit{
		DepositID: "dep1", Txid: depositTxid, Vout: 0, Address: "depaddr",
		AmountSat: 50000, UID: domain.DepositUID(depositTxid, 0), State: domain.DepositObserved,
	}
	view := &fakeHostChainView{
		activeVault: vault, hasActive: true,
		pendingDeposits: []*domain.Deposit{deposit},
		pendingProposals: []*ports.Proposal{{
			ProposalID:        "peer-prop",
			Proposer:          "son2",
			SidechainTxCreate: &ports.SidechainTxCreateOp{LinkedObjectID: "dep1"},
		}},
	}
	submit := &fakeSignSubmit{}
	engine := newProposalEngine(rpc, ports.Testnet)
	watcher := newChainWatcher(rpc, view, 1)

	r := newReconciler(view, submit, engine, watcher, "son1")
	r.ReconcileDeposits(context.Background())

	if len(submit.createCalls) != 0 {
		t.Fatal("a deposit another signer already proposed must not be proposed again; approval is the validator's job")
	}
}

func TestReconcileWithdrawalsOnlyDrivesRequestedState(t *testing.T) {
	vault, rpc := activeVaultFixture(t)
	rpc.utxos = []ports.Utxo{{Txid: "1111111111111111111111111111111111111111111111111111111111111111", Vout: 0, AmountSat: 100000}}

	requested := &domain.Withdrawal{WithdrawID: "w1", DestinationAddr: testnetAddress(t, 1), AmountSat: 50000, State: domain.WithdrawalRequested}
	alreadySigned := &domain.Withdrawal{WithdrawID: "w2", DestinationAddr: testnetAddress(t, 2), AmountSat: 1000, State: domain.WithdrawalSigned}

	view := &fakeHostChainView{
		activeVault: vault, hasActive: true,
		pendingWithdrawals: []*domain.Withdrawal{requested, alreadySigned},
		vaultUTXOs:         map[string][]ports.Utxo{vault.VaultID: rpc.utxos},
	}
	submit := &fakeSignSubmit{}
	engine := newProposalEngine(rpc, ports.Testnet)
	watcher := newChainWatcher(rpc, view, 1)

	r := newReconciler(view, submit, engine, watcher, "son1")
	r.ReconcileWithdrawals(context.Background())

	if len(submit.createCalls) != 1 {
		t.Fatalf("got %d sidechain_tx_create proposals, want exactly 1 (for the requested withdrawal only)", len(submit.createCalls))
	}
	if submit.createCalls[0].LinkedObjectID != "w1" {
		t.Fatalf("got linked object %s, want w1", submit.createCalls[0].LinkedObjectID)
	}
}
