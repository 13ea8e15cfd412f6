package multisig

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/peerplays-network/son-bitcoin/internal/core/domain"
)

// standalonePayload is the wire shape for the non-PSBT unsigned-tx
// regime: the raw unsigned transaction plus the satoshi amount of each
// spent input, since BIP-143 sighashing needs amounts the raw tx itself
// doesn't carry.
type standalonePayload struct {
	TxHex     string  `json:"tx_hex"`
	InAmounts []int64 `json:"in_amounts"`
}

// EncodeStandalonePayload serializes tx and its spent-input amounts into
// the UnsignedTxPayload form used for vault rotations and withdrawals
// (the non-PSBT regime).
func EncodeStandalonePayload(tx *wire.MsgTx, inAmountsSat []uint64) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("multisig: serialize tx: %w", err)
	}

	amounts := make([]int64, len(inAmountsSat))
	for i, a := range inAmountsSat {
		amounts[i] = int64(a)
	}

	out, err := json.Marshal(standalonePayload{
		TxHex:     hex.EncodeToString(buf.Bytes()),
		InAmounts: amounts,
	})
	if err != nil {
		return "", fmt.Errorf("multisig: marshal payload: %w", err)
	}
	return string(out), nil
}

// DecodeStandalonePayload is the inverse of EncodeStandalonePayload.
func DecodeStandalonePayload(payload string) (*wire.MsgTx, []uint64, error) {
	var p standalonePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, nil, fmt.Errorf("multisig: unmarshal payload: %w", err)
	}

	raw, err := hex.DecodeString(p.TxHex)
	if err != nil {
		return nil, nil, fmt.Errorf("multisig: decode tx hex: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, nil, fmt.Errorf("multisig: deserialize tx: %w", err)
	}

	amounts := make([]uint64, len(p.InAmounts))
	for i, a := range p.InAmounts {
		amounts[i] = uint64(a)
	}
	return tx, amounts, nil
}

// EncodePartialSigs turns one signer's per-input endorsements into the
// standalone-regime partial-signature payload: a JSON array of hex DER
// signatures, one per input, in input order.
func EncodePartialSigs(endorsements [][]byte) (string, error) {
	hexSigs := make([]string, len(endorsements))
	for i, e := range endorsements {
		hexSigs[i] = hex.EncodeToString(e)
	}
	out, err := json.Marshal(hexSigs)
	if err != nil {
		return "", fmt.Errorf("multisig: marshal partial sigs: %w", err)
	}
	return string(out), nil
}

// DecodePartialSigs is the inverse of EncodePartialSigs.
func DecodePartialSigs(payload string) ([][]byte, error) {
	var hexSigs []string
	if err := json.Unmarshal([]byte(payload), &hexSigs); err != nil {
		return nil, fmt.Errorf("multisig: unmarshal partial sigs: %w", err)
	}
	sigs := make([][]byte, len(hexSigs))
	for i, h := range hexSigs {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("multisig: decode partial sig %d: %w", i, err)
		}
		sigs[i] = b
	}
	return sigs, nil
}

// BuildWitnessStack assembles the P2WSH witness for one input given the
// endorsements collected so far, keyed by signer id. Missing signers
// contribute an empty push, which the IF/ELSE ladder in the witness
// script reads as "not present".
//
// The script's first OP_CHECKSIG consumes whatever sits on top of the
// evaluation stack when execution starts, which is the witness item
// immediately below the script itself. Witness items are pushed in
// array order, so the item for signers[0] must be the last one before
// the script — i.e. the per-signer items go on in reverse signer order.
func BuildWitnessStack(signers domain.SignerSet, endorsements map[string][]byte, witnessScript []byte) (wire.TxWitness, error) {
	items := make([][]byte, len(signers))
	for i, signer := range signers {
		items[i] = endorsements[signer.SignerID]
	}

	stack := make(wire.TxWitness, 0, len(items)+1)
	for i := len(items) - 1; i >= 0; i-- {
		stack = append(stack, items[i])
	}
	stack = append(stack, witnessScript)
	return stack, nil
}
