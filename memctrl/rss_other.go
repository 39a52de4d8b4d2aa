//go:build !linux

package memctrl

import (
	"runtime"
)

// readProcessRSS falls back to the Go heap's Sys figure on platforms
// without /proc. It undercounts true RSS (no non-Go memory) but keeps
// the threshold bands directionally meaningful in dev environments.
func readProcessRSS() (int64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Sys), nil
}
