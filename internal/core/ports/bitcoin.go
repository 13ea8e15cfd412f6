package ports

import "context"

// RpcError wraps a JSON-RPC error object. A semantic RPC failure is
// data, not a panic: calls return a result carrying either the parsed
// value or an RpcError.
type RpcError struct {
	Code    int
	Message string
	Raw     string
}

func (e *RpcError) Error() string {
	return e.Message
}

// AlreadyInChain reports the bitcoind "-27" error code, which send_raw
// callers must treat as success.
func (e *RpcError) AlreadyInChain() bool {
	return e != nil && e.Code == -27
}

// Utxo is one entry of listunspent, amount already reinterpreted as
// satoshis by decimal-point stripping.
type Utxo struct {
	Txid      string
	Vout      uint32
	AmountSat uint64
}

// TxDetailEntry is one element of gettransaction's "details" array.
type TxDetailEntry struct {
	Address   string
	AmountSat uint64
	Vout      uint32
}

// TxInfo is the subset of gettransaction this core needs for deposit
// validation.
type TxInfo struct {
	Txid          string
	Confirmations uint32
	Details       []TxDetailEntry
}

// BlockTxOut is one output of a block transaction, as scanned by the
// chain-watcher.
type BlockTxOut struct {
	Vout      uint32
	Addresses []string
	AmountSat uint64
}

// BlockTx is one transaction inside a fetched block.
type BlockTx struct {
	Txid string
	Vout []BlockTxOut
}

// Block is the verbosity=2 getblock result this core scans.
type Block struct {
	Hash   string
	Height int64
	Txs    []BlockTx
}

// Network distinguishes mainnet from testnet address/key encodings.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

// BitcoinRPC is the typed facade over the Bitcoin full-node JSON-RPC
// surface the coordinator consumes. Every method returns either a parsed
// result or an error (an *RpcError when the node reported one); it never
// panics and never blocks indefinitely.
type BitcoinRPC interface {
	// EstimateFeeRate returns sats/kb, floored at 1000 on any RPC error.
	EstimateFeeRate(ctx context.Context, targetBlocks int64) uint64
	ListUnspent(ctx context.Context, address string, minAmountSat uint64) ([]Utxo, error)
	GetTransaction(ctx context.Context, txid string) (*TxInfo, error)
	GetBlock(ctx context.Context, hash string) (*Block, error)
	// SendRaw treats bitcoind error -27 (already in chain) as success.
	SendRaw(ctx context.Context, txHex string) error

	CombinePSBT(ctx context.Context, psbts []string) (string, error)
	FinalizePSBT(ctx context.Context, psbt string) (hex string, complete bool, err error)
	WalletProcessPSBT(ctx context.Context, psbt string) (outPsbt string, complete bool, err error)
	SignRawTransactionWithWallet(ctx context.Context, txHex string) (signedHex string, complete bool, err error)

	AddMultisigAddress(ctx context.Context, nrequired int, pubkeys []string) (address string, redeemScript string, err error)
	CreateMultisig(ctx context.Context, nrequired int, pubkeys []string) (address string, redeemScript string, err error)
	CreatePSBT(ctx context.Context, ins []Utxo, outs map[string]uint64) (string, error)
	CreateRawTransaction(ctx context.Context, ins []Utxo, outs map[string]uint64) (string, error)

	ImportAddress(ctx context.Context, addressOrScript string) error
	WalletPassphrase(ctx context.Context, passphrase string, timeoutSec int64) error
	WalletLock(ctx context.Context) error
	LoadWallet(ctx context.Context, walletName string) error
	UnloadWallet(ctx context.Context, walletName string) error

	// Network reports mainnet/testnet via getblockchaininfo.
	Network(ctx context.Context) (Network, error)
}

// BlockTopic is the ZMQ hashblock subscription, the coordinator's
// block-event source. Blocks are delivered as hex-encoded 32-byte
// hashes.
type BlockTopic interface {
	// Subscribe returns a channel of hex block hashes; it is closed when
	// the topic is stopped. Recoverable ZMQ errors never close the
	// channel — the next block brings state back.
	Subscribe(ctx context.Context) (<-chan string, error)
	Close() error
}
