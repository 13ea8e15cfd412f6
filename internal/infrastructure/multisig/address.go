package multisig

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

func hexDecode(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

func chainParams(network ports.Network) *chaincfg.Params {
	if network == ports.Testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// DeriveAddress computes the P2SH-P2WSH vault address for a witness
// script: hash the redeem script (OP_0 <sha256(witness_script)>) with
// HASH160 and base58-check encode it with the network's script version
// byte.
func DeriveAddress(witnessScript []byte, network ports.Network) (address string, redeemScript []byte, err error) {
	redeemScript, err = RedeemScript(witnessScript)
	if err != nil {
		return "", nil, err
	}

	addr, err := btcutil.NewAddressScriptHash(redeemScript, chainParams(network))
	if err != nil {
		return "", nil, fmt.Errorf("multisig: derive address: %w", err)
	}

	return addr.EncodeAddress(), redeemScript, nil
}
