package main

import (
	"fmt"
	"runtime"
	"strings"
)

// Set at link time by `make build` with -ldflags "-X main.Version=...".
// Plain `go build` keeps the defaults.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// versionString is the -version output: the release and target on the first
// line, then commit and build date when they were injected.
func versionString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "sexpc %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	if Commit != "" {
		fmt.Fprintf(&sb, "  commit: %s\n", Commit)
	}
	if BuildDate != "" {
		fmt.Fprintf(&sb, "  built:  %s\n", BuildDate)
	}
	return sb.String()
}

func printVersion() {
	fmt.Print(versionString())
}
