//go:build !darwin

package util

func physicalCoresDarwin() int { return 0 }
