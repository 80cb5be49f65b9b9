package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Summary of one epoch of a rollup, produced upstream and submitted on-chain by the claimer
type Claim struct {
	DAppAddress common.Address `json:"dapp_address"`
	EpochIndex  uint64         `json:"epoch_index"`
	EpochHash   common.Hash    `json:"epoch_hash"`

	// Range of inputs processed in the epoch, inclusive
	FirstIndex uint64 `json:"first_index"`
	LastIndex  uint64 `json:"last_index"`
}

func (self *Claim) String() string {
	return fmt.Sprintf("claim(dapp=%s epoch=%d hash=%s inputs=%d-%d)",
		self.DAppAddress.Hex(), self.EpochIndex, self.EpochHash.Hex(), self.FirstIndex, self.LastIndex)
}

// Claims have the same on-chain content. Epoch index is implied by the position in History.
func (self *Claim) SameContent(other *Claim) bool {
	return self.DAppAddress == other.DAppAddress &&
		self.EpochHash == other.EpochHash &&
		self.FirstIndex == other.FirstIndex &&
		self.LastIndex == other.LastIndex
}
