//go:build !wasm

package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

var runtimes sync.Map

// GetRuntime returns the runtime bound to the calling goroutine, creating
// one with the default options on first use.
func GetRuntime() *Runtime {
	gid := getGID()

	if r, ok := runtimes.Load(gid); ok {
		return r.(*Runtime)
	}

	r := NewRuntime()
	runtimes.Store(gid, r)
	return r
}

// BindRuntime makes r the runtime of the calling goroutine.
func BindRuntime(r *Runtime) {
	runtimes.Store(getGID(), r)
}

// UnbindRuntime forgets the runtime of the calling goroutine.
func UnbindRuntime() {
	runtimes.Delete(getGID())
}

func getGID() int64 {
	return goid.Get()
}
