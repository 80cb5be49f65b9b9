package build_info

// Overwritten during build with -ldflags "-X github.com/warp-contracts/claimer/src/utils/build_info.Version=..."
var Version = "dev"
