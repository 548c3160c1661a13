package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Route searches allocate many short-lived TokenAmounts and pool clones, so the
// service trades memory for fewer collections.
const (
	smallServerGOGC     = 200
	smallServerMemLimit = 1 * 1024 * 1024 * 1024

	largeServerGOGC     = 400
	largeServerMemLimit = 4 * 1024 * 1024 * 1024
)

func detectServerProfile() (gogc int, memLimit int64) {
	if runtime.NumCPU() <= 2 {
		return smallServerGOGC, smallServerMemLimit
	}
	return largeServerGOGC, largeServerMemLimit
}

// InitRuntime applies GC settings unless GOGC / GOMEMLIMIT are set explicitly.
func InitRuntime() {
	gogc, memLimit := detectServerProfile()

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(gogc)
	}
	if os.Getenv("GOMEMLIMIT") == "" {
		debug.SetMemoryLimit(memLimit)
	}

	log.Info().
		Int("num_cpu", runtime.NumCPU()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Int("gogc", gogc).
		Int64("mem_limit_bytes", memLimit).
		Str("go_version", runtime.Version()).
		Msg("[runtime] settings applied")
}
