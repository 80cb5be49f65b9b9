package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Name of the stream with claims produced for a dapp
const ClaimsStreamName = "rollups-claims"

// Identity of the dapp
type DAppMetadata struct {
	ChainId     uint64
	DAppAddress common.Address
}

// Redis key of a stream that belongs to the dapp.
// Braces form a hash tag, all dapp's streams land in the same cluster slot.
func (self DAppMetadata) StreamKey(name string) string {
	return fmt.Sprintf("{chain-%d:dapp-%s}:%s",
		self.ChainId,
		strings.ToLower(strings.TrimPrefix(self.DAppAddress.Hex(), "0x")),
		name)
}

func (self DAppMetadata) ClaimsStreamKey() string {
	return self.StreamKey(ClaimsStreamName)
}
