package application

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func addressToScript(addr string) ([]byte, error) {
	// The network isn't known here; DecodeAddress accepts either
	// mainnet or testnet params for parsing purposes since the address
	// prefix alone determines the concrete type. We try mainnet first,
	// then testnet.
	decoded, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams)
	if err != nil {
		decoded, err = btcutil.DecodeAddress(addr, &chaincfg.TestNet3Params)
		if err != nil {
			return nil, fmt.Errorf("bad address %s: %w", addr, err)
		}
	}
	return txscript.PayToAddrScript(decoded)
}

// serializeTxHex encodes a (now witness-populated) transaction back to
// wire hex for broadcast.
func serializeTxHex(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize tx: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// txidFromHex decodes a raw tx and returns its txid, the value
// sidechain_tx_process carries back to the host chain.
func txidFromHex(txHex string) (string, error) {
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return "", fmt.Errorf("bad tx hex: %w", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return "", fmt.Errorf("deserialize tx: %w", err)
	}
	return tx.TxHash().String(), nil
}
