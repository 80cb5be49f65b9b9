package config

import (
	"time"

	"github.com/spf13/viper"
)

type Sender struct {
	// Hex encoded private key of the account that owns the Authority contract
	PrivateKey string

	// Estimated gas is multiplied by this value
	GasLimitMultiplier float64

	// Max time spent waiting for the transaction receipt
	ReceiptTimeout time.Duration

	// Number of blocks, including the one with the transaction, required before the claim is considered sent. 0 and 1 mean no waiting
	Confirmations uint64

	// How often the chain head is checked while waiting for confirmations
	ConfirmationPollInterval time.Duration
}

func setSenderDefaults() {
	viper.SetDefault("Sender.PrivateKey", "")
	viper.SetDefault("Sender.GasLimitMultiplier", "1.2")
	viper.SetDefault("Sender.ReceiptTimeout", "10m")
	viper.SetDefault("Sender.Confirmations", "1")
	viper.SetDefault("Sender.ConfirmationPollInterval", "2s")
}
