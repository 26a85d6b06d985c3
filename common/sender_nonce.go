package common

import "fmt"

// SenderNonce identifies a sender/nonce slot. The mempool secondary index
// maps each slot to the single pending hash currently occupying it; a second
// transaction arriving for the same slot is a replacement, never a second
// pending entry.
type SenderNonce struct {
	Sender Address
	Nonce  uint64
}

func (sn SenderNonce) String() string {
	return fmt.Sprintf("%s/%d", sn.Sender, sn.Nonce)
}

// CompareHash orders two hashes lexicographically over their byte
// representation. Used as the final tiebreaker in the deterministic event
// ordering contract.
func CompareHash(a, b Hash) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
