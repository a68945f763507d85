// Package common holds process-wide settings shared by the binaries.
package common

// Version is set at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"

// PackageName identifies this project in logs.
const PackageName = "coldwallet-ceremony"
