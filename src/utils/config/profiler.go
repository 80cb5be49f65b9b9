package config

import (
	"github.com/spf13/viper"
)

type Profiler struct {
	// Are pprof endpoints registered in the REST server
	Enabled bool
}

func setProfilerDefaults() {
	viper.SetDefault("Profiler.Enabled", "false")
}
