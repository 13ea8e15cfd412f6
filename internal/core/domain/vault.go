package domain

// Vault is a multisig address custodying sidechain funds for a given
// signer set. At most one vault is active at any head-block height; older
// vaults remain spendable by their original signers until swept dry.
type Vault struct {
	VaultID       string
	Signers       SignerSet
	Address       string
	WitnessScript []byte
}

// IsObsolete reports whether this vault's signer set differs from the
// currently active one, i.e. it is a rotation target rather than the
// live vault.
func (v Vault) IsObsolete(active SignerSet) bool {
	return !v.Signers.Equal(active)
}
