//go:build !linux

package system

import (
	"errors"
	"os"
)

func ioctlDeviceSize(path string) (uint64, error) {
	return 0, errors.New("block device size queries are only supported on linux")
}

// IsPrivileged reports whether the process runs with an effective UID of 0.
func IsPrivileged() bool {
	return os.Geteuid() == 0
}
