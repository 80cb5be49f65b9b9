package config

import (
	"github.com/spf13/viper"
)

// Identity of the served dapp and the contracts claims are submitted to
type Chain struct {
	// Chain id, part of the dapp identity and of every signed transaction
	Id uint64

	// JSON-RPC endpoint
	RpcUrl string

	// Address of the dapp the claims belong to
	DAppAddress string

	// Authority contract, receives submitClaim transactions
	AuthorityAddress string

	// History contract, emits NewClaimToHistory for every accepted claim
	HistoryAddress string

	// Block the History contract was deployed at. Logs are never searched before it
	DeployBlock uint64
}

func setChainDefaults() {
	viper.SetDefault("Chain.Id", "31337")
	viper.SetDefault("Chain.RpcUrl", "http://localhost:8545")
	viper.SetDefault("Chain.DAppAddress", "0x0000000000000000000000000000000000000000")
	viper.SetDefault("Chain.AuthorityAddress", "0x0000000000000000000000000000000000000000")
	viper.SetDefault("Chain.HistoryAddress", "0x0000000000000000000000000000000000000000")
	viper.SetDefault("Chain.DeployBlock", "0")
}
