//go:build wasm

package internal

import "sync"

var (
	mu            sync.Mutex
	globalRuntime *Runtime
)

func GetRuntime() *Runtime {
	mu.Lock()
	defer mu.Unlock()

	if globalRuntime == nil {
		globalRuntime = NewRuntime()
	}
	return globalRuntime
}

func BindRuntime(r *Runtime) {
	mu.Lock()
	globalRuntime = r
	mu.Unlock()
}

func UnbindRuntime() {
	mu.Lock()
	globalRuntime = nil
	mu.Unlock()
}

// wasm runs a single goroutine-visible runtime
func getGID() int64 {
	return 1
}
