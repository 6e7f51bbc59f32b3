package config

// Version is the trail binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/trail/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
