package bitcoinrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// EstimateFeeRate returns sats/kb, flooring at 1000 sat/kb whenever the
// node can't produce an estimate; fee estimation failure is not fatal,
// it degrades to the floor.
func (c *Client) EstimateFeeRate(ctx context.Context, targetBlocks int64) uint64 {
	mode := btcjson.EstimateModeConservative
	result, err := c.rpc.EstimateSmartFee(targetBlocks, &mode)
	if err != nil || result.FeeRate == nil {
		return 1000
	}

	sats, err := stripDecimalPoint(fmt.Sprintf("%.8f", *result.FeeRate))
	if err != nil || sats < 1000 {
		return 1000
	}
	return sats
}

// ListUnspent goes through RawRequest so the node's decimal amount
// strings reach stripDecimalPoint verbatim, never via a float round
// trip.
func (c *Client) ListUnspent(ctx context.Context, address string, minAmountSat uint64) ([]ports.Utxo, error) {
	var result []struct {
		TxID   string      `json:"txid"`
		Vout   uint32      `json:"vout"`
		Amount json.Number `json:"amount"`
	}
	err := c.rawRequest(ctx, "listunspent", []json.RawMessage{
		marshalParam(1),
		marshalParam(9999999),
		marshalParam([]string{address}),
	}, &result)
	if err != nil {
		return nil, err
	}

	utxos := make([]ports.Utxo, 0, len(result))
	for _, u := range result {
		sats, err := stripDecimalPoint(u.Amount.String())
		if err != nil {
			continue
		}
		if sats < minAmountSat {
			continue
		}
		utxos = append(utxos, ports.Utxo{Txid: u.TxID, Vout: u.Vout, AmountSat: sats})
	}
	return utxos, nil
}

func (c *Client) GetTransaction(ctx context.Context, txid string) (*ports.TxInfo, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, fmt.Errorf("bitcoinrpc: bad txid: %w", err)
	}

	result, err := c.rpc.GetTransaction(hash)
	if err != nil {
		return nil, classifyErr(err)
	}

	info := &ports.TxInfo{
		Txid:          result.TxID,
		Confirmations: uint32(result.Confirmations),
	}
	for _, d := range result.Details {
		sats, err := stripDecimalPoint(fmt.Sprintf("%.8f", d.Amount))
		if err != nil {
			continue
		}
		info.Details = append(info.Details, ports.TxDetailEntry{
			Address:   d.Address,
			AmountSat: sats,
			Vout:      d.Vout,
		})
	}
	return info, nil
}

// GetBlock fetches a block at verbosity 2 via RawRequest; rpcclient's own
// GetBlockVerboseTx does not decode bitcoind's response reliably.
func (c *Client) GetBlock(ctx context.Context, hash string) (*ports.Block, error) {
	if _, err := chainhash.NewHashFromStr(hash); err != nil {
		return nil, fmt.Errorf("bitcoinrpc: bad block hash: %w", err)
	}

	var result struct {
		Hash   string `json:"hash"`
		Height int64  `json:"height"`
		Tx     []struct {
			Txid string `json:"txid"`
			Vout []struct {
				Value        json.Number `json:"value"`
				N            uint32      `json:"n"`
				ScriptPubKey struct {
					Address   string   `json:"address"`
					Addresses []string `json:"addresses"`
				} `json:"scriptPubKey"`
			} `json:"vout"`
		} `json:"tx"`
	}
	err := c.rawRequest(ctx, "getblock", []json.RawMessage{
		marshalParam(hash),
		marshalParam(2),
	}, &result)
	if err != nil {
		return nil, err
	}

	block := &ports.Block{Hash: result.Hash, Height: result.Height}
	for _, tx := range result.Tx {
		bt := ports.BlockTx{Txid: tx.Txid}
		for _, vout := range tx.Vout {
			sats, err := stripDecimalPoint(vout.Value.String())
			if err != nil {
				continue
			}
			addresses := vout.ScriptPubKey.Addresses
			if len(addresses) == 0 && vout.ScriptPubKey.Address != "" {
				// Modern bitcoind reports a single "address" field.
				addresses = []string{vout.ScriptPubKey.Address}
			}
			bt.Vout = append(bt.Vout, ports.BlockTxOut{
				Vout:      vout.N,
				Addresses: addresses,
				AmountSat: sats,
			})
		}
		block.Txs = append(block.Txs, bt)
	}
	return block, nil
}

// SendRaw broadcasts a signed transaction, treating bitcoind's -27
// ("transaction already in block chain") as success.
func (c *Client) SendRaw(ctx context.Context, txHex string) error {
	tx, err := txFromHex(txHex)
	if err != nil {
		return err
	}
	_, err = c.rpc.SendRawTransaction(tx, false)
	if err != nil {
		if rpcErr, ok := asRPCError(err); ok && rpcErr.AlreadyInChain() {
			return nil
		}
		return classifyErr(err)
	}
	return nil
}

func classifyErr(err error) error {
	if jerr, ok := err.(*btcjson.RPCError); ok {
		return &ports.RpcError{Code: int(jerr.Code), Message: jerr.Message}
	}
	return fmt.Errorf("%w: %v", ports.ErrTransientRPC, err)
}

func asRPCError(err error) (*ports.RpcError, bool) {
	if jerr, ok := err.(*btcjson.RPCError); ok {
		return &ports.RpcError{Code: int(jerr.Code), Message: jerr.Message}, true
	}
	return nil, false
}
