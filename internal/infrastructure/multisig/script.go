// Package multisig builds and derives the weighted threshold multisig
// locking script the federation uses to custody vault funds.
package multisig

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
)

// BuildWitnessScript assembles the weighted m-of-n witness script for an
// ordered signer set:
//
//	P1 CHECKSIG IF <w1> ELSE 0 ENDIF
//	SWAP P2 CHECKSIG IF <w2> ADD ENDIF
//	...
//	SWAP Pn CHECKSIG IF <wn> ADD ENDIF
//	<floor(2*W/3)> GREATERTHANOREQUAL
//
// signers must already be in canonical (SignerID-ascending) order; callers
// get that for free from SignerSet.Sorted(). Numeric pushes follow
// Bitcoin's minimal-push rule (txscript.ScriptBuilder.AddInt64 already
// implements it: OP_1..OP_16 for 1..16, little-endian bytes otherwise,
// with a trailing 0x00 sign-guard byte when the last byte's high bit is
// set).
func BuildWitnessScript(signers domain.SignerSet) ([]byte, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("multisig: empty signer set")
	}

	builder := txscript.NewScriptBuilder()
	var totalWeight int64

	for i, signer := range signers {
		pubkey, err := decodeCompressedPubKey(signer.SidechainKey)
		if err != nil {
			return nil, fmt.Errorf("multisig: signer %s: %w", signer.SignerID, err)
		}

		builder.AddData(pubkey)
		builder.AddOp(txscript.OP_CHECKSIG)
		builder.AddOp(txscript.OP_IF)
		builder.AddInt64(int64(signer.Weight))
		if i == 0 {
			builder.AddOp(txscript.OP_ELSE)
			builder.AddOp(txscript.OP_0)
		} else {
			builder.AddOp(txscript.OP_ADD)
		}
		builder.AddOp(txscript.OP_ENDIF)

		if i < len(signers)-1 {
			builder.AddOp(txscript.OP_SWAP)
		}

		totalWeight += int64(signer.Weight)
	}

	threshold := (totalWeight * 2) / 3
	builder.AddInt64(threshold)
	builder.AddOp(txscript.OP_GREATERTHANOREQUAL)

	return builder.Script()
}

// RedeemScript wraps the witness script hash in the P2SH-P2WSH redeem
// script form: OP_0 <sha256(witness_script)>.
func RedeemScript(witnessScript []byte) ([]byte, error) {
	h := sha256.Sum256(witnessScript)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(h[:]).
		Script()
}

func decodeCompressedPubKey(hexKey string) ([]byte, error) {
	raw, err := hexDecode(hexKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != 33 {
		return nil, fmt.Errorf("expected 33-byte compressed pubkey, got %d bytes", len(raw))
	}
	return raw, nil
}
