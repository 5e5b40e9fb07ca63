package util

import (
	"runtime"
)

// HeapAllocMB returns the live heap in MB, logged after each build so watch
// sessions show analyzer cache growth.
func HeapAllocMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc / 1024 / 1024
}
