package version

// Version is the build version. Release builds override it with
// -ldflags "-X cameraapitest/pkg/version.Version=...".
var Version = "v0.1.0"
