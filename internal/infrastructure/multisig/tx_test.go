package multisig

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func sampleTx() *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	var hash chainhash.Hash
	copy(hash[:], bytesRepeat(0xAB, 32))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(123456, []byte{0x00, 0x14}))
	return tx
}

func bytesRepeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestStandalonePayloadRoundTrip(t *testing.T) {
	tx := sampleTx()
	payload, err := EncodeStandalonePayload(tx, []uint64{50000})
	require.NoError(t, err)
	require.Contains(t, payload, "tx_hex")
	require.Contains(t, payload, "in_amounts")

	gotTx, gotAmounts, err := DecodeStandalonePayload(payload)
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), gotTx.TxHash())
	require.Equal(t, []uint64{50000}, gotAmounts)
}

func TestPartialSigsRoundTrip(t *testing.T) {
	sigs := [][]byte{{0x30, 0x01, 0x02}, {0x30, 0x03, 0x04}}
	payload, err := EncodePartialSigs(sigs)
	require.NoError(t, err)

	got, err := DecodePartialSigs(payload)
	require.NoError(t, err)
	require.Equal(t, sigs, got)
}

func TestBuildWitnessStackOrdering(t *testing.T) {
	signers := twoOfThreeSigners()
	endorsements := map[string][]byte{
		"son1": {0x01},
		"son3": {0x03},
	}
	script := []byte{0xAA}

	stack, err := BuildWitnessStack(signers, endorsements, script)
	require.NoError(t, err)
	require.Len(t, stack, 4)
	// script is the top (last) witness item.
	require.Equal(t, script, []byte(stack[3]))
	// son1 is first in script order, so its item is the one just below the
	// script (last populated slot before it).
	require.Equal(t, []byte{0x01}, []byte(stack[2]))
	require.Equal(t, []byte(nil), []byte(stack[1])) // son2: no endorsement
	require.Equal(t, []byte{0x03}, []byte(stack[0]))
}
