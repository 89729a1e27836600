//go:build linux

package system

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctlDeviceSize asks the kernel for the byte size of a block device.
func ioctlDeviceSize(path string) (uint64, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var size uint64
	// #nosec G103 - BLKGETSIZE64 writes a single uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, fmt.Errorf("BLKGETSIZE64 %s: %w", path, errno)
	}
	return size, nil
}

// IsPrivileged reports whether the process runs with an effective UID of 0.
func IsPrivileged() bool {
	return unix.Geteuid() == 0
}
