// Package config loads the coordinator's runtime configuration from
// SON_-prefixed environment variables.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// PrivateKey is one (pubkey, privkey) hex pair this process may sign
// with, configured as a repeatable JSON list of pairs.
type PrivateKey struct {
	PubKeyHex  string
	PrivKeyHex string
}

type Config struct {
	NodeIP           string
	NodeRPCPort      uint32
	NodeZMQPort      uint32
	NodeRPCUser      string
	NodeRPCPassword  string
	NodeDisableTLS   bool
	WalletName       string
	WalletPassword   string
	PrivateKeys      []PrivateKey
	SignerID         string
	LogLevel         int
	MinConfirmations uint32

	HostChainURL      string
	HostChainUser     string
	HostChainPassword string
}

var (
	NodeIP           = "NODE_IP"
	NodeRPCPort      = "NODE_RPC_PORT"
	NodeZMQPort      = "NODE_ZMQ_PORT"
	NodeRPCUser      = "NODE_RPC_USER"
	NodeRPCPassword  = "NODE_RPC_PASSWORD"
	NodeDisableTLS   = "NODE_DISABLE_TLS"
	WalletName       = "WALLET"
	WalletPassword   = "WALLET_PASSWORD"
	PrivateKeysJSON  = "PRIVATE_KEYS"
	SignerID         = "SIGNER_ID"
	LogLevel         = "LOG_LEVEL"
	MinConfirmations = "MIN_CONFIRMATIONS"

	HostChainURL      = "HOST_CHAIN_URL"
	HostChainUser     = "HOST_CHAIN_USER"
	HostChainPassword = "HOST_CHAIN_PASSWORD"

	defaultNodeIP           = "127.0.0.1"
	defaultNodeRPCPort      = 8332
	defaultNodeZMQPort      = 28332
	defaultNodeDisableTLS   = true
	defaultLogLevel         = 4
	defaultMinConfirmations = 1
)

// LoadConfig reads SON_-prefixed environment variables into a Config.
func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("SON")
	viper.AutomaticEnv()

	viper.SetDefault(NodeIP, defaultNodeIP)
	viper.SetDefault(NodeRPCPort, defaultNodeRPCPort)
	viper.SetDefault(NodeZMQPort, defaultNodeZMQPort)
	viper.SetDefault(NodeDisableTLS, defaultNodeDisableTLS)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(MinConfirmations, defaultMinConfirmations)

	keys, err := parsePrivateKeys(viper.GetString(PrivateKeysJSON))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		NodeIP:           viper.GetString(NodeIP),
		NodeRPCPort:      viper.GetUint32(NodeRPCPort),
		NodeZMQPort:      viper.GetUint32(NodeZMQPort),
		NodeRPCUser:      viper.GetString(NodeRPCUser),
		NodeRPCPassword:  viper.GetString(NodeRPCPassword),
		NodeDisableTLS:   viper.GetBool(NodeDisableTLS),
		WalletName:       viper.GetString(WalletName),
		WalletPassword:   viper.GetString(WalletPassword),
		PrivateKeys:      keys,
		SignerID:         viper.GetString(SignerID),
		LogLevel:         viper.GetInt(LogLevel),
		MinConfirmations: viper.GetUint32(MinConfirmations),

		HostChainURL:      viper.GetString(HostChainURL),
		HostChainUser:     viper.GetString(HostChainUser),
		HostChainPassword: viper.GetString(HostChainPassword),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	return cfg, nil
}

// Validate enforces the required fields; everything else has a usable
// default.
func (c *Config) Validate() error {
	if c.SignerID == "" {
		return fmt.Errorf("config: SIGNER_ID is required")
	}
	if c.NodeRPCUser == "" || c.NodeRPCPassword == "" {
		return fmt.Errorf("config: NODE_RPC_USER and NODE_RPC_PASSWORD are required")
	}
	if len(c.PrivateKeys) == 0 {
		return fmt.Errorf("config: at least one PRIVATE_KEYS entry is required")
	}
	if c.HostChainURL == "" {
		return fmt.Errorf("config: HOST_CHAIN_URL is required")
	}
	return nil
}

func parsePrivateKeys(raw string) ([]PrivateKey, error) {
	if raw == "" {
		return nil, nil
	}

	var pairs [][2]string
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, fmt.Errorf("bad PRIVATE_KEYS JSON: %w", err)
	}

	keys := make([]PrivateKey, len(pairs))
	for i, p := range pairs {
		keys[i] = PrivateKey{PubKeyHex: p[0], PrivKeyHex: p[1]}
		if err := validateKeyPair(keys[i]); err != nil {
			return nil, fmt.Errorf("PRIVATE_KEYS entry %d: %w", i, err)
		}
	}
	return keys, nil
}

// validateKeyPair rejects a misconfigured (pubkey, privkey) pair at
// startup rather than letting a mismatched key surface later as a silent
// signing failure: it derives the compressed pubkey from the private
// scalar and requires it to match what was configured.
func validateKeyPair(pair PrivateKey) error {
	privBytes, err := hex.DecodeString(pair.PrivKeyHex)
	if err != nil {
		return fmt.Errorf("bad private key hex: %w", err)
	}
	if len(privBytes) != 32 {
		return fmt.Errorf("private key must be 32 bytes, got %d", len(privBytes))
	}
	priv := secp256k1.PrivKeyFromBytes(privBytes)
	derived := hex.EncodeToString(priv.PubKey().SerializeCompressed())

	if derived != pair.PubKeyHex {
		return fmt.Errorf("pubkey %s does not match the key derived from the private key", pair.PubKeyHex)
	}
	return nil
}
