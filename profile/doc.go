// Package profile provides optional runtime profiling for the weft
// command.
//
// Profiling integrates [github.com/pkg/profile] behind the "pprof" build
// tag. Without the tag every operation is a no-op with zero overhead; with
// it, the command accepts pprof flags selecting a mode and output
// directory.
//
// Supported modes when enabled: allocs, block, clock, cpu, goroutine,
// heap, mem, mutex, thread, and trace. [Modes] returns the list
// programmatically. Profile files are written to the selected directory
// with names matching the mode (cpu.pprof, heap.pprof, ...), analyzable
// with:
//
//	go tool pprof ./weft cpu.pprof
//
// Building with the tag also imports [net/http/pprof], registering the
// /debug/pprof/ HTTP handlers for applications that serve them.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
