// Package memory provides the ephemeral, thread-safe store that holds unit
// outputs during a single graph execution.
//
// # Purpose
//
// Every forward call gets a fresh Store. The executor puts each unit's output
// under the unit's name together with the number of downstream reads it will
// receive. Each read through Consume decrements that count; when it reaches
// zero the entry is dropped unless it has been pinned as a graph output.
//
// # Concurrency Model
//
// Entries live in a sync.Map and their counters are atomic, so units of one
// tier can write and read distinct keys from parallel goroutines.
package memory
