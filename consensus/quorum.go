package consensus

import (
	"sort"

	"github.com/rheehot/agora/config"
	"github.com/rheehot/agora/crypto"
)

// DeriveQuorumSlice builds this node's quorum slice from the full set of
// known validator public keys: every known validator is a slice member,
// and the threshold is params.QuorumThreshold(n), which chooses between
// the historic 100%-agreement default and the BFT-safe ⌈2n/3⌉+1 fraction
// depending on params.FullAgreementThreshold.
func DeriveQuorumSlice(validators []crypto.PublicKey, params config.ConsensusParams) QuorumSlice {
	members := make([]crypto.PublicKey, len(validators))
	copy(members, validators)
	sort.Slice(members, func(i, j int) bool {
		return string(members[i][:]) < string(members[j][:])
	})
	return QuorumSlice{
		Validators: members,
		Threshold:  params.QuorumThreshold(len(members)),
	}
}
