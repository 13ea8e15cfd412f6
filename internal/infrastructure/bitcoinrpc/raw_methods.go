package bitcoinrpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// Most methods in this file go through RawRequest: combinepsbt,
// finalizepsbt, walletprocesspsbt, addmultisigaddress, createmultisig,
// createpsbt, createrawtransaction, importaddress, walletpassphrase,
// walletlock, loadwallet and unloadwallet. SignRawTransactionWithWallet
// and Network use rpcclient's typed methods.

func (c *Client) CombinePSBT(ctx context.Context, psbts []string) (string, error) {
	var combined string
	err := c.rawRequest(ctx, "combinepsbt", []json.RawMessage{marshalParam(psbts)}, &combined)
	return combined, err
}

func (c *Client) FinalizePSBT(ctx context.Context, psbt string) (string, bool, error) {
	var result struct {
		Hex      string `json:"hex"`
		Complete bool   `json:"complete"`
	}
	err := c.rawRequest(ctx, "finalizepsbt", []json.RawMessage{marshalParam(psbt)}, &result)
	return result.Hex, result.Complete, err
}

func (c *Client) WalletProcessPSBT(ctx context.Context, psbt string) (string, bool, error) {
	var result struct {
		Psbt     string `json:"psbt"`
		Complete bool   `json:"complete"`
	}
	err := c.rawRequest(ctx, "walletprocesspsbt", []json.RawMessage{marshalParam(psbt)}, &result)
	return result.Psbt, result.Complete, err
}

func (c *Client) SignRawTransactionWithWallet(ctx context.Context, txHex string) (string, bool, error) {
	tx, err := txFromHex(txHex)
	if err != nil {
		return "", false, err
	}
	signedTx, complete, err := c.rpc.SignRawTransactionWithWallet(tx)
	if err != nil {
		return "", false, classifyErr(err)
	}

	var buf bytes.Buffer
	if err := signedTx.Serialize(&buf); err != nil {
		return "", false, fmt.Errorf("bitcoinrpc: serialize signed tx: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), complete, nil
}

// AddMultisigAddress registers a p2sh-segwit multisig address with the
// wallet so its funds are tracked, passing the address_type parameter
// explicitly.
func (c *Client) AddMultisigAddress(ctx context.Context, nrequired int, pubkeys []string) (string, string, error) {
	var result struct {
		Address      string `json:"address"`
		RedeemScript string `json:"redeemScript"`
	}
	err := c.rawRequest(ctx, "addmultisigaddress", []json.RawMessage{
		marshalParam(nrequired),
		marshalParam(pubkeys),
		marshalParam(""),
		marshalParam("p2sh-segwit"),
	}, &result)
	return result.Address, result.RedeemScript, err
}

func (c *Client) CreateMultisig(ctx context.Context, nrequired int, pubkeys []string) (string, string, error) {
	var result struct {
		Address      string `json:"address"`
		RedeemScript string `json:"redeemScript"`
	}
	err := c.rawRequest(ctx, "createmultisig", []json.RawMessage{
		marshalParam(nrequired),
		marshalParam(pubkeys),
		marshalParam("p2sh-segwit"),
	}, &result)
	return result.Address, result.RedeemScript, err
}

func (c *Client) CreatePSBT(ctx context.Context, ins []ports.Utxo, outs map[string]uint64) (string, error) {
	type psbtIn struct {
		Txid string `json:"txid"`
		Vout uint32 `json:"vout"`
	}
	inputs := make([]psbtIn, len(ins))
	for i, u := range ins {
		inputs[i] = psbtIn{Txid: u.Txid, Vout: u.Vout}
	}

	outputs := make(map[string]float64, len(outs))
	for addr, sats := range outs {
		outputs[addr] = float64(sats) / 1e8
	}

	var psbt string
	err := c.rawRequest(ctx, "createpsbt", []json.RawMessage{
		marshalParam(inputs),
		marshalParam(outputs),
	}, &psbt)
	return psbt, err
}

func (c *Client) CreateRawTransaction(ctx context.Context, ins []ports.Utxo, outs map[string]uint64) (string, error) {
	type rawIn struct {
		Txid string `json:"txid"`
		Vout uint32 `json:"vout"`
	}
	inputs := make([]rawIn, len(ins))
	for i, u := range ins {
		inputs[i] = rawIn{Txid: u.Txid, Vout: u.Vout}
	}

	outputs := make(map[string]float64, len(outs))
	for addr, sats := range outs {
		outputs[addr] = float64(sats) / 1e8
	}

	var rawHex string
	err := c.rawRequest(ctx, "createrawtransaction", []json.RawMessage{
		marshalParam(inputs),
		marshalParam(outputs),
	}, &rawHex)
	return rawHex, err
}

func (c *Client) ImportAddress(ctx context.Context, addressOrScript string) error {
	return c.rawRequest(ctx, "importaddress", []json.RawMessage{
		marshalParam(addressOrScript),
		marshalParam(""),
		marshalParam(false),
	}, nil)
}

func (c *Client) WalletPassphrase(ctx context.Context, passphrase string, timeoutSec int64) error {
	return c.rawRequest(ctx, "walletpassphrase", []json.RawMessage{
		marshalParam(passphrase),
		marshalParam(timeoutSec),
	}, nil)
}

func (c *Client) WalletLock(ctx context.Context) error {
	return c.rawRequest(ctx, "walletlock", nil, nil)
}

func (c *Client) LoadWallet(ctx context.Context, walletName string) error {
	return c.rawRequest(ctx, "loadwallet", []json.RawMessage{marshalParam(walletName)}, nil)
}

func (c *Client) UnloadWallet(ctx context.Context, walletName string) error {
	return c.rawRequest(ctx, "unloadwallet", []json.RawMessage{marshalParam(walletName)}, nil)
}

func (c *Client) Network(ctx context.Context) (ports.Network, error) {
	info, err := c.rpc.GetBlockChainInfo()
	if err != nil {
		return ports.Mainnet, classifyErr(err)
	}
	if info.Chain == "test" || info.Chain == "testnet" {
		return ports.Testnet, nil
	}
	return ports.Mainnet, nil
}
