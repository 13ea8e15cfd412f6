package application

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

func TestReconstructVaultAddressIsDeterministic(t *testing.T) {
	signers := activeSigners3(t)
	engine := newProposalEngine(&fakeBitcoinRPC{}, ports.Testnet)

	addr1, _, _, err := engine.ReconstructVaultAddress(signers)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	// Shuffle input order; canonical sorting inside ReconstructVaultAddress
	// must make the result order-independent.
	shuffled := domain.SignerSet{signers[2], signers[0], signers[1]}
	addr2, _, _, err := engine.ReconstructVaultAddress(shuffled)
	if err != nil {
		t.Fatalf("reconstruct shuffled: %v", err)
	}
	if addr1 != addr2 {
		t.Fatalf("address must not depend on input order: %s != %s", addr1, addr2)
	}
}

func TestValidateVaultUpdateRejectsWrongAddress(t *testing.T) {
	signers := activeSigners3(t)
	engine := newProposalEngine(&fakeBitcoinRPC{}, ports.Testnet)

	ok, err := engine.ValidateVaultUpdate(signers, "not-the-real-address")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ok {
		t.Fatal("a mismatched address must not validate")
	}

	addr, _, _, _ := engine.ReconstructVaultAddress(signers)
	ok, err = engine.ValidateVaultUpdate(signers, addr)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !ok {
		t.Fatal("the deterministically reconstructed address must validate")
	}
}

func TestFeeFloorsAtMinimum(t *testing.T) {
	engine := newProposalEngine(&fakeBitcoinRPC{feeRateSat: 1}, ports.Testnet)
	if got := engine.fee(context.Background()); got != feeFloor {
		t.Fatalf("got fee %d, want floor %d", got, feeFloor)
	}

	engine = newProposalEngine(&fakeBitcoinRPC{feeRateSat: 5000}, ports.Testnet)
	if got := engine.fee(context.Background()); got != 5000 {
		t.Fatalf("got fee %d, want 5000", got)
	}
}

func TestBuildSweepTxRejectsWhenFeeExceedsBalance(t *testing.T) {
	rpc := &fakeBitcoinRPC{
		utxos: []ports.Utxo{{Txid: strings64('1'), Vout: 0, AmountSat: 500}},
	}
	engine := newProposalEngine(rpc, ports.Testnet)
	prev := &domain.Vault{VaultID: "prev", Address: "prev"}
	next := &domain.Vault{VaultID: "next", Address: "next"}

	if _, _, err := engine.BuildSweepTx(context.Background(), prev, next); err == nil {
		t.Fatal("a prev vault balance below the fee floor must be rejected")
	}
}

// TestBuildDepositTxValidatesPSBTShape covers the validatePSBTShape gate
// BuildDepositTx applies to whatever createpsbt hands back, using a real
// btcutil/psbt-encoded packet rather than faking the node's response.
func TestBuildDepositTxValidatesPSBTShape(t *testing.T) {
	deposit := &domain.Deposit{
		DepositID: "dep1", Txid: strings64('2'), Vout: 0,
		Address: "depaddr", AmountSat: 50000, State: domain.DepositObserved,
	}

	psbtB64 := mustBuildPSBT(t, deposit.Txid, deposit.Vout)

	if err := validatePSBTShape(psbtB64, 1); err != nil {
		t.Fatalf("a well-formed one-input psbt must validate: %v", err)
	}
	if err := validatePSBTShape(psbtB64, 2); err == nil {
		t.Fatal("a psbt with the wrong input count must be rejected")
	}
	if err := validatePSBTShape("not-a-psbt", 1); err == nil {
		t.Fatal("garbage input must not validate")
	}
}

func mustBuildPSBT(t *testing.T, txid string, vout uint32) string {
	t.Helper()
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		t.Fatalf("bad txid: %v", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, vout), nil, nil))

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		t.Fatalf("new psbt: %v", err)
	}
	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		t.Fatalf("serialize psbt: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func strings64(c byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
