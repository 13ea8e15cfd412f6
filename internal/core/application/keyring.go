package application

import (
	"context"
	"fmt"
	"time"

	"github.com/peerplays-network/son-bitcoin/internal/config"
	"github.com/peerplays-network/son-bitcoin/internal/core/ports"
)

// unlockWindow is how long the node wallet stays unlocked for a single
// signing RPC. The wallet is never left unlocked idle between calls.
const unlockWindow = 5 * time.Second

// keyring holds this signer's own (pubkey, privkey) pairs in memory only;
// they are never logged or sent anywhere but into a signing call.
type keyring struct {
	byPubKey map[string]string
}

func newKeyring(keys []config.PrivateKey) *keyring {
	k := &keyring{byPubKey: make(map[string]string, len(keys))}
	for _, pair := range keys {
		k.byPubKey[pair.PubKeyHex] = pair.PrivKeyHex
	}
	return k
}

func (k *keyring) privateKeyFor(pubKeyHex string) (string, bool) {
	priv, ok := k.byPubKey[pubKeyHex]
	return priv, ok
}

func (k *keyring) hasKeyFor(pubKeyHex string) bool {
	_, ok := k.byPubKey[pubKeyHex]
	return ok
}

// withUnlockedWallet unlocks the node wallet for unlockWindow, runs fn,
// then locks it again immediately rather than waiting out the timeout.
func withUnlockedWallet(ctx context.Context, rpc ports.BitcoinRPC, passphrase string, fn func() error) error {
	if passphrase == "" {
		return fn()
	}

	// WalletPassphrase is itself guarded against a too-long exposure
	// window: we always pass unlockWindow, never a caller-supplied value.
	if err := rpc.WalletPassphrase(ctx, passphrase, int64(unlockWindow.Seconds())); err != nil {
		return fmt.Errorf("%w: unlock wallet: %v", ports.ErrSigningFailed, err)
	}
	defer rpc.WalletLock(ctx)

	return fn()
}
