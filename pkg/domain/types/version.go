package types

// Version is the prepare-release CLI version. Set at build time via
// -ldflags "-X .../pkg/domain/types.Version=v1.0.0".
var Version = "dev"
