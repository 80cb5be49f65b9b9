package config

import (
	"time"

	"github.com/spf13/viper"
)

type Checker struct {
	// Max number of blocks queried in one eth_getLogs request
	QueryBlockRange uint64

	// Number of eth_getLogs requests run in parallel
	NumWorkers int

	// Min time between two eth_getLogs requests and the allowed burst
	RateLimitInterval time.Duration
	RateLimitBurst    int

	// Claims in blocks at least this deep are cached
	Confirmations uint64

	// Cached claims are dropped after this time and read again from the deploy block
	CacheExpiration time.Duration

	// Retrying failed log queries. MaxElapsedTime 0 means no limit
	BackoffInitialInterval time.Duration
	BackoffMaxInterval     time.Duration
	BackoffMaxElapsedTime  time.Duration
}

func setCheckerDefaults() {
	viper.SetDefault("Checker.QueryBlockRange", "10000")
	viper.SetDefault("Checker.NumWorkers", "4")
	viper.SetDefault("Checker.RateLimitInterval", "100ms")
	viper.SetDefault("Checker.RateLimitBurst", "4")
	viper.SetDefault("Checker.Confirmations", "10")
	viper.SetDefault("Checker.CacheExpiration", "1h")
	viper.SetDefault("Checker.BackoffInitialInterval", "500ms")
	viper.SetDefault("Checker.BackoffMaxElapsedTime", "1m")
	viper.SetDefault("Checker.BackoffMaxInterval", "10s")
}
