package unit

import (
	"fmt"
	"sync"
)

var names = struct {
	sync.Mutex
	counts map[string]int
}{counts: make(map[string]int)}

// nextName returns "<kind>_<n>" from a process-wide per-kind counter.
func nextName(kind string) string {
	names.Lock()
	defer names.Unlock()
	names.counts[kind]++
	return fmt.Sprintf("%s_%d", kind, names.counts[kind])
}
