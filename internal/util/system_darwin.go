//go:build darwin

package util

import "golang.org/x/sys/unix"

func physicalCoresDarwin() int {
	cores, err := unix.SysctlUint32("hw.physicalcpu")
	if err != nil {
		return 0
	}
	return int(cores)
}
