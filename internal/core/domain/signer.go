package domain

import "sort"

// Signer is one federation node authorized to sign vault spends.
type Signer struct {
	SignerID     string
	Weight       uint16
	SidechainKey string // hex-encoded compressed secp256k1 pubkey
}

// SignerSet is a totally-ordered (by SignerID) active signer list. The
// ordering is load-bearing: the multisig witness script's layout, and
// therefore the vault address, depends on it.
type SignerSet []Signer

// Sorted returns a copy ordered by SignerID, ascending.
func (s SignerSet) Sorted() SignerSet {
	out := make(SignerSet, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].SignerID < out[j].SignerID })
	return out
}

// TotalWeight is W, the sum of active signer weights.
func (s SignerSet) TotalWeight() uint64 {
	var w uint64
	for _, signer := range s {
		w += uint64(signer.Weight)
	}
	return w
}

// Threshold is T = floor(2*W/3), the minimum contributing weight required
// to finalize a transaction spending the vault this set controls.
func (s SignerSet) Threshold() uint64 {
	return (2 * s.TotalWeight()) / 3
}

// Equal reports whether two signer sets are identical in membership,
// weight and order. Used to decide whether a vault already exists for the
// current active set.
func (s SignerSet) Equal(other SignerSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].SignerID != other[i].SignerID ||
			s[i].Weight != other[i].Weight ||
			s[i].SidechainKey != other[i].SidechainKey {
			return false
		}
	}
	return true
}

// PubKeys returns the ordered hex pubkeys, the shape the script engine
// consumes.
func (s SignerSet) PubKeys() []string {
	keys := make([]string, len(s))
	for i, signer := range s {
		keys[i] = signer.SidechainKey
	}
	return keys
}

// Weights returns the ordered weights, parallel to PubKeys.
func (s SignerSet) Weights() []uint16 {
	weights := make([]uint16, len(s))
	for i, signer := range s {
		weights[i] = signer.Weight
	}
	return weights
}
