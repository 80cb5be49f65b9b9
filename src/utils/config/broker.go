package config

import (
	"time"

	"github.com/spf13/viper"
)

type Broker struct {
	// How long a single blocking read waits for a new entry before it is issued again
	ConsumeTimeout time.Duration

	// Max time to wait for the first Redis ping
	ConnectTimeout time.Duration

	// Backoff of failed stream operations. MaxElapsedTime 0 means no limit
	BackoffInitialInterval time.Duration
	BackoffMaxInterval     time.Duration
	BackoffMaxElapsedTime  time.Duration
}

func setBrokerDefaults() {
	viper.SetDefault("Broker.ConsumeTimeout", "5m")
	viper.SetDefault("Broker.ConnectTimeout", "30s")
	viper.SetDefault("Broker.BackoffInitialInterval", "1s")
	viper.SetDefault("Broker.BackoffMaxInterval", "30s")
	viper.SetDefault("Broker.BackoffMaxElapsedTime", "2m")
}
