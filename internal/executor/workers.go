package executor

import "github.com/five82/gifsizer/internal/util"

// memFraction is the share of available memory concurrent encodes may use.
const memFraction = 0.5

// encoderOverhead approximates gifski plus gifsicle resident memory.
const encoderOverhead = uint64(256 << 20)

// DefaultWorkers sizes the pool from physical cores, capped by memory for
// an encode of unknown dimensions.
func DefaultWorkers() int {
	return CalculateWorkers(util.PhysicalCores(), 0, 0, 0)
}

// CalculateWorkers caps base by the number of encodes of frames frames at
// width x height that fit in available memory. Returns at least 1.
func CalculateWorkers(base int, width, height uint32, frames int) int {
	workers := max(base, 1)
	memWorkers := util.MaxWorkersForMemory(WorkerMemoryBytes(width, height, frames), memFraction)
	return max(min(workers, memWorkers), 1)
}

// WorkerMemoryBytes estimates the memory of one encode. gifski holds every
// RGBA frame it is fed.
func WorkerMemoryBytes(width, height uint32, frames int) uint64 {
	return uint64(width)*uint64(height)*4*uint64(max(frames, 1)) + encoderOverhead
}
