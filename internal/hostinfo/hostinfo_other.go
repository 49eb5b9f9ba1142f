//go:build !linux

package hostinfo

import "runtime"

func collectPlatform() Info {
	return Info{OS: runtime.GOOS, Arch: runtime.GOARCH}
}
