package multisig

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Endorse produces one BIP-143 (segwit v0) SIGHASH_ALL endorsement over
// input idx of tx, spending a P2SH-P2WSH output locked by witnessScript
// worth amountSat. The returned bytes are a DER signature with the
// sighash-type byte appended, ready to slot into the witness stack that
// BuildWitnessStack assembles (per-signer endorsements plus the witness
// script).
func Endorse(privKeyHex string, tx *wire.MsgTx, idx int, witnessScript []byte, amountSat uint64) ([]byte, error) {
	privBytes, err := hexDecode(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("multisig: endorse: %w", err)
	}
	if len(privBytes) != 32 {
		return nil, fmt.Errorf("multisig: endorse: expected 32-byte private key, got %d", len(privBytes))
	}
	priv, _ := btcec.PrivKeyFromBytes(privBytes)

	fetcher := txscript.NewCannedPrevOutputFetcher(witnessScript, int64(amountSat))
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	hash, err := txscript.CalcWitnessSigHash(witnessScript, sigHashes, txscript.SigHashAll, tx, idx, int64(amountSat))
	if err != nil {
		return nil, fmt.Errorf("multisig: calc witness sighash: %w", err)
	}

	sig := ecdsa.Sign(priv, hash)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}

// VerifyEndorsement checks a single endorsement against a signer's
// compressed pubkey, used when assembling or validating the final
// witness stack before broadcast.
func VerifyEndorsement(pubKeyHex string, tx *wire.MsgTx, idx int, witnessScript []byte, amountSat uint64, endorsement []byte) (bool, error) {
	if len(endorsement) == 0 {
		return false, fmt.Errorf("multisig: empty endorsement")
	}
	sigDER := endorsement[:len(endorsement)-1]

	pubBytes, err := hexDecode(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("multisig: verify: %w", err)
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("multisig: verify: parse pubkey: %w", err)
	}

	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return false, fmt.Errorf("multisig: verify: parse signature: %w", err)
	}

	fetcher := txscript.NewCannedPrevOutputFetcher(witnessScript, int64(amountSat))
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	hash, err := txscript.CalcWitnessSigHash(witnessScript, sigHashes, txscript.SigHashAll, tx, idx, int64(amountSat))
	if err != nil {
		return false, fmt.Errorf("multisig: verify: calc witness sighash: %w", err)
	}

	return sig.Verify(hash, pub), nil
}
