// Package build carries version information stamped in at link time:
//
//	go build -ldflags "-X github.com/drummonds/localpdf/internal/build.Version=v1.2.0"
package build

// Version is the release the binary was built from
var Version = "dev"
