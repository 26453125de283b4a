package version

import "runtime"

// Set at build time with -ldflags "-X sftpfind/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	Package = "source"
	Arch    = runtime.GOARCH
	OS      = runtime.GOOS
)
